package main

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-link-scrapper/internal/app"
	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
	"github.com/samvad-hq/samvad-link-scrapper/internal/logger"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/clients"
)

var pollCmd = &cobra.Command{
	Use:   "poll <link>",
	Short: "Run one detection cycle for a link",
	Long: `Fetch the resource behind a GitHub repository or StackOverflow question
link, compare it against the stored fingerprint, record the new state and
print the outcome. No notifications are sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

type pollOutput struct {
	Link      string    `json:"link"`
	Provider  string    `json:"provider"`
	Previous  *string   `json:"previous"`
	Current   string    `json:"current"`
	Changed   bool      `json:"changed"`
	Summary   string    `json:"summary,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

func newPollOutput(evt domain.ChangeEvent) pollOutput {
	return pollOutput{
		Link:      evt.Link,
		Provider:  evt.Provider,
		Previous:  evt.Previous,
		Current:   evt.Current,
		Changed:   evt.Changed,
		Summary:   evt.Summary,
		CheckedAt: evt.CheckedAt,
	}
}

func runPoll(cmd *cobra.Command, args []string) error {
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

	reg, err := app.NewRegistry(cfg, store, log)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, cfg.PollTimeout)
	defer cancel()

	evt, err := reg.Poll(ctx, args[0])
	if err != nil {
		return fmt.Errorf("poll %s (%s): %w", args[0], clients.Kind(err), err)
	}

	out, err := json.MarshalIndent(newPollOutput(evt), "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
