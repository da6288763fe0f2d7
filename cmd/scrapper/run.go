package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-link-scrapper/internal/app"
	"github.com/samvad-hq/samvad-link-scrapper/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll tracked links until interrupted",
	Long: `Start the poll loop. The links file is reloaded on every cycle and
changes are fanned out to every enabled publisher. Stops on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runScrapper,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScrapper(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Close()

	log.InfoObj("scrapper starting", "config", map[string]any{
		"app_env":        cfg.Env,
		"links_file":     cfg.LinksFile,
		"storage_type":   cfg.StorageType,
		"poll_interval":  cfg.PollInterval.String(),
		"max_concurrent": cfg.MaxConcurrentPolls,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scrapper, err := app.NewScrapper(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize scrapper", "error", err.Error())
		return err
	}

	if err := scrapper.Run(ctx); err != nil {
		return fmt.Errorf("scrapper run: %w", err)
	}
	return nil
}
