// Package main is the entry point for the link scrapper CLI.
//
// Usage:
//
//	scrapper run                    # poll tracked links on an interval
//	scrapper poll <link>            # run one detection cycle for a link
//	scrapper state get <link>       # show the stored fingerprint
//	scrapper state delete <link>    # forget a link
//	scrapper version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-link-scrapper/internal/config"
	"github.com/samvad-hq/samvad-link-scrapper/internal/logger"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "scrapper",
	Short: "Detect updates on tracked GitHub and StackOverflow links",
	Long: `scrapper polls tracked links, compares each resource against the last
fingerprint it recorded and notifies subscribers when something changed.

Configuration is read from environment variables (and configs/.env):
  LINKS_FILE, PUBLISHERS_FILE, POLL_INTERVAL, STORAGE_TYPE, BBOLT_PATH,
  GITHUB_TOKEN, STACKOVERFLOW_KEY, LOG_LEVEL ...`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scrapper %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// bootstrap loads configuration and the process logger shared by all commands.
func bootstrap() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
