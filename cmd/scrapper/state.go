package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-link-scrapper/internal/app"
	"github.com/samvad-hq/samvad-link-scrapper/internal/logger"
	"github.com/samvad-hq/samvad-link-scrapper/internal/storage"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/clients"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset stored link fingerprints",
}

var stateGetCmd = &cobra.Command{
	Use:   "get <link>",
	Short: "Print the stored fingerprint of a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store storage.Store, link string) error {
			fp, ok, err := store.Get(link)
			if err != nil {
				return fmt.Errorf("read state: %w", err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: never observed\n", link)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", link, fp)
			return nil
		}, args[0])
	},
}

var stateDeleteCmd = &cobra.Command{
	Use:   "delete <link>",
	Short: "Forget a link so its next poll counts as a first observation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store storage.Store, link string) error {
			if err := store.Delete(link); err != nil {
				return fmt.Errorf("delete state: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted\n", link)
			return nil
		}, args[0])
	},
}

func init() {
	stateCmd.AddCommand(stateGetCmd, stateDeleteCmd)
	rootCmd.AddCommand(stateCmd)
}

// withStore normalizes raw the same way the poller does and opens the configured store.
func withStore(fn func(store storage.Store, link string) error, raw string) error {
	link, err := clients.NormalizeLink(raw)
	if err != nil {
		return err
	}

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Close()

	store, err := app.OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store, link)
}

func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
