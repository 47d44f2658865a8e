package main

import (
	"fmt"
	"os"

	"github.com/mohamedamezian/NN-Instagram/util"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   util.Name,
	Short: "Sync an Instagram feed into Shopify metaobjects",
	Long: `nn-instagram copies the posts of a linked Instagram account into a
Shopify store as one metaobject per post plus a feed list, uploading the
media to the store's files.

Configuration is read from config.yaml in the working directory or
~/.config/nn-instagram/, with NNIG_* environment overrides.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.AddCommand(serveCmd, syncCmd, linkCmd, unlinkCmd, runsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging. The returned
// function releases the log file.
func loadConfig() (*util.AppConfig, func(), error) {
	conf, err := util.ReadConfFrom(configPath)
	if err != nil {
		return nil, nil, err
	}
	closer := util.SetupLogging(conf)
	return conf, func() {
		if closer != nil {
			closer.Close()
		}
	}, nil
}
