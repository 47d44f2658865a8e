package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/store"
	"github.com/mohamedamezian/NN-Instagram/util"
)

// ErrNoAccount means the tenant has no linked account for the provider.
var ErrNoAccount = errors.New("no linked account")

const (
	ListReplace = "replace"
	ListRetain  = "retain"
)

// Result is what a caller sees of one run. Err is set for fatal failures only;
// per-post failures just lower Synced.
type Result struct {
	OK             bool    `json:"ok"`
	Tenant         string  `json:"tenant"`
	Username       string  `json:"username,omitempty"`
	DisplayName    string  `json:"displayName,omitempty"`
	Fetched        int     `json:"fetched"`
	Synced         int     `json:"synced"`
	Skipped        int     `json:"skipped"`
	ListId         string  `json:"listId,omitempty"`
	Message        string  `json:"message"`
	ReconciledFrom string  `json:"reconciledFrom,omitempty"`
	Reconcile      *Report `json:"reconcile,omitempty"`
	Err            error   `json:"-"`
}

// Syncer runs the whole pipeline for one tenant at a time.
type Syncer struct {
	accounts     Accounts
	fetcher      Fetcher
	lookup       *Lookup
	transferer   *Transferer
	upserter     *Upserter
	aggregator   *Aggregator
	reconciler   *Reconciler
	provider     string
	listStrategy string
	now          func() time.Time
}

func New(conf *util.AppConfig, accounts Accounts, fetcher Fetcher, downloader Downloader, st Store) *Syncer {
	sc := conf.Conf.Store
	provider := conf.Conf.Sync.Provider
	if provider == "" {
		provider = domain.DefaultProvider
	}
	strategy := conf.Conf.Sync.ListStrategy
	if strategy != ListRetain {
		strategy = ListReplace
	}
	return &Syncer{
		accounts:     accounts,
		fetcher:      fetcher,
		lookup:       NewLookup(st, sc.PostType),
		transferer:   NewTransferer(st, downloader),
		upserter:     NewUpserter(st, sc.PostType),
		aggregator:   NewAggregator(st, sc.ListType),
		reconciler:   NewReconciler(st, sc.PostType, sc.ListType, conf.Conf.Sync.DeleteRetries),
		provider:     provider,
		listStrategy: strategy,
		now:          time.Now,
	}
}

// Run synchronizes the tenant's remote feed into the store. Posts are handled
// one after another; the run stops between posts when ctx is done.
func (s *Syncer) Run(ctx context.Context, tenant string) Result {
	started := s.now()
	res := Result{Tenant: tenant}
	acc := s.run(ctx, tenant, &res)
	s.journal(tenant, acc, &res, started)
	return res
}

func (s *Syncer) run(ctx context.Context, tenant string, res *Result) *domain.Account {
	acc, err := s.accounts.ReadAccount(tenant, s.provider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.fail(res, fmt.Errorf("%w for tenant %s", ErrNoAccount, tenant))
		} else {
			s.fail(res, fmt.Errorf("failed to read account: %w", err))
		}
		return nil
	}

	feed, err := s.fetcher.Fetch(ctx, acc.Credential())
	if err != nil {
		s.fail(res, fmt.Errorf("fetch failed: %w", err))
		return acc
	}

	username := feed.Profile.Username
	res.Username = username
	res.DisplayName = feed.Profile.Name
	res.Fetched = len(feed.Posts)

	if len(feed.Posts) == 0 {
		res.OK = true
		res.Message = "nothing to sync"
		log.Printf("Sync: No posts for %s, nothing written", username)
		return acc
	}

	if acc.Username != "" && acc.Username != username {
		report := s.reconciler.Reconcile(ctx, acc.Username)
		res.ReconciledFrom = acc.Username
		res.Reconcile = &report
		if err := s.accounts.UpdateAccountUsername(acc.Id, username); err != nil {
			log.Printf("Sync: Failed to persist username %s: %v", username, err)
		}
	}

	ids := make([]string, 0, len(feed.Posts))
	for i := range feed.Posts {
		if err := ctx.Err(); err != nil {
			s.fail(res, fmt.Errorf("sync interrupted after %d of %d posts: %w", i, len(feed.Posts), err))
			return acc
		}
		out := s.processPost(ctx, &feed.Posts[i], username)
		if errors.Is(out.err, store.ErrNotConfigured) {
			s.fail(res, out.err)
			return acc
		}
		switch {
		case out.id != "":
			ids = append(ids, out.id)
			res.Synced++
		case s.listStrategy == ListRetain && out.existingId != "":
			ids = append(ids, out.existingId)
			res.Skipped++
		default:
			res.Skipped++
		}
	}

	if list, err := s.aggregator.Write(ctx, feed, ids, username, feed.Profile.Name); err != nil {
		if !errors.Is(err, ErrNothingToList) {
			log.Printf("Sync: Failed to write feed list for %s: %v", username, err)
		}
	} else {
		res.ListId = list.Id
		log.Printf("Sync: Feed list %s now holds %d posts", list.Handle, len(list.PostIds))
	}

	if acc.Username == "" {
		if err := s.accounts.UpdateAccountUsername(acc.Id, username); err != nil {
			log.Printf("Sync: Failed to persist username %s: %v", username, err)
		}
	}

	res.OK = true
	res.Message = fmt.Sprintf("synced %d of %d posts", res.Synced, res.Fetched)
	log.Printf("Sync: %s for %s (%d skipped)", res.Message, username, res.Skipped)
	return acc
}

func (s *Syncer) fail(res *Result, err error) {
	res.OK = false
	res.Err = err
	res.Message = err.Error()
	log.Printf("Sync: Run for %s failed: %v", res.Tenant, err)
}

func (s *Syncer) journal(tenant string, acc *domain.Account, res *Result, started time.Time) {
	run := &domain.SyncRun{
		Id:             uuid.New(),
		Tenant:         tenant,
		Username:       res.Username,
		DisplayName:    res.DisplayName,
		PostsFetched:   res.Fetched,
		PostsSynced:    res.Synced,
		PostsSkipped:   res.Skipped,
		Message:        res.Message,
		ReconciledFrom: res.ReconciledFrom,
		StartedAt:      started,
		FinishedAt:     s.now(),
	}
	if acc != nil {
		run.AccountId = acc.Id
	}
	switch {
	case !res.OK:
		run.Status = domain.RunFailed
	case res.Fetched == 0:
		run.Status = domain.RunEmpty
	default:
		run.Status = domain.RunSucceeded
	}
	if err := s.accounts.CreateSyncRun(run); err != nil {
		log.Printf("Sync: Failed to journal run for %s: %v", tenant, err)
	}
}
