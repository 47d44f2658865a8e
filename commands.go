package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mohamedamezian/NN-Instagram/db"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/graph"
	"github.com/mohamedamezian/NN-Instagram/store"
	"github.com/mohamedamezian/NN-Instagram/syncer"
	"github.com/mohamedamezian/NN-Instagram/util"
	"github.com/mohamedamezian/NN-Instagram/web"
	"github.com/spf13/cobra"
)

var (
	tenantFlag     string
	timeoutFlag    time.Duration
	tokenFlag      string
	remoteUserFlag string
	expiresInFlag  time.Duration
	limitFlag      int
)

func providerOf(conf *util.AppConfig) string {
	if conf.Conf.Sync.Provider == "" {
		return domain.DefaultProvider
	}
	return conf.Conf.Sync.Provider
}

func newSyncer(conf *util.AppConfig, database *db.DB) *syncer.Syncer {
	gc := graph.NewClient(conf)
	return syncer.New(conf, database, gc, gc, store.NewClient(conf))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API:
  POST /api/sync     run one sync for a tenant
  GET  /api/runs     list recent runs
  GET  /feed         RSS of recent runs
  GET  /healthz      liveness`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, done, err := loadConfig()
		if err != nil {
			return err
		}
		defer done()

		fmt.Println("Configuration: ")
		redacted := conf.Redacted()
		fmt.Println(util.PrettyPrint(redacted))

		database := db.GetDB(conf)
		defer database.Close()

		srv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort),
			Handler: web.NewRouter(conf, newSyncer(conf, database), database),
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		errs := make(chan error, 1)
		go func() {
			log.Printf("Starting HTTP server on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()

		select {
		case err := <-errs:
			return err
		case <-stop:
		}

		log.Println("Stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync for a tenant and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, done, err := loadConfig()
		if err != nil {
			return err
		}
		defer done()

		database := db.GetDB(conf)
		defer database.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if timeoutFlag > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
			defer cancel()
		}

		res := newSyncer(conf, database).Run(ctx, tenantFlag)
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return res.Err
	},
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Store the remote access token of a tenant",
	Long: `Store the access token of a tenant's remote account, as the OAuth flow
would. The username is learned on the next sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, done, err := loadConfig()
		if err != nil {
			return err
		}
		defer done()
		if tokenFlag == "" {
			return errors.New("--token is required")
		}

		acc := &domain.Account{
			Tenant:       tenantFlag,
			Provider:     providerOf(conf),
			AccessToken:  tokenFlag,
			RemoteUserId: remoteUserFlag,
		}
		if expiresInFlag > 0 {
			acc.ExpiresAt = time.Now().Add(expiresInFlag)
		}

		database := db.GetDB(conf)
		defer database.Close()
		if err := database.UpsertAccount(acc); err != nil {
			return fmt.Errorf("failed to link account: %w", err)
		}
		fmt.Printf("Linked %s account of %s (token %s)\n", acc.Provider, acc.Tenant, util.Mask(acc.AccessToken))
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Forget the remote account of a tenant",
	Long: `Forget the remote account of a tenant. Records already synced to the
store are left in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, done, err := loadConfig()
		if err != nil {
			return err
		}
		defer done()

		database := db.GetDB(conf)
		defer database.Close()
		if err := database.DeleteAccount(tenantFlag, providerOf(conf)); err != nil {
			return fmt.Errorf("failed to unlink account: %w", err)
		}
		fmt.Printf("Unlinked %s account of %s\n", providerOf(conf), tenantFlag)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent sync runs of a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, done, err := loadConfig()
		if err != nil {
			return err
		}
		defer done()

		database := db.GetDB(conf)
		defer database.Close()
		runs, err := database.ReadSyncRuns(tenantFlag, limitFlag)
		if err != nil {
			return fmt.Errorf("failed to read runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Printf("No runs for %s\n", tenantFlag)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSTATUS\tUSER\tFETCHED\tSYNCED\tSKIPPED\tMESSAGE")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.StartedAt.Format(util.DateTimeFormat()), r.Status, r.Username,
				r.PostsFetched, r.PostsSynced, r.PostsSkipped, r.Message)
		}
		return w.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(util.GetNameAndVersion())
	},
}

func init() {
	for _, c := range []*cobra.Command{syncCmd, linkCmd, unlinkCmd, runsCmd} {
		c.Flags().StringVar(&tenantFlag, "tenant", "", "tenant (shop) identifier")
		c.MarkFlagRequired("tenant")
	}
	syncCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "abort the run after this long (0 = no limit)")
	linkCmd.Flags().StringVar(&tokenFlag, "token", "", "long-lived remote access token")
	linkCmd.Flags().StringVar(&remoteUserFlag, "remote-user-id", "", "remote account id")
	linkCmd.Flags().DurationVar(&expiresInFlag, "expires-in", 60*24*time.Hour, "token lifetime (0 = never expires)")
	runsCmd.Flags().IntVar(&limitFlag, "limit", 20, "number of runs to show")
}
