package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
)

// EmptyFingerprint is the fingerprint of a resource with no items.
const EmptyFingerprint = domain.EmptyFingerprint

// Strategy is the provider-specific half of a poll cycle. Implementations
// must be safe for concurrent use.
type Strategy[S any] interface {
	// Name identifies the provider, e.g. "github".
	Name() string
	// Translate maps a tracked link to the provider API endpoint. It is pure
	// and fails with ErrInvalidLinkFormat for links of the wrong shape.
	Translate(link string) (string, error)
	// Fetch performs exactly one request and decodes the snapshot.
	Fetch(ctx context.Context, uri string) (S, error)
	// Fingerprint derives the comparable state of a snapshot.
	Fingerprint(snapshot S) string
	// Summarize renders the newest item for humans.
	Summarize(snapshot S) string
}

// StateStore is the subset of the state store a Client reads and writes.
type StateStore interface {
	Get(link string) (string, bool, error)
	Save(link, fingerprint string) (string, bool, error)
}

// Poller runs one poll cycle for a link.
type Poller interface {
	Provider() string
	Poll(ctx context.Context, link string) (domain.ChangeEvent, error)
}

// Client is the change detector: it translates, fetches, fingerprints and
// compares against the store, persisting only when the fingerprint moved.
type Client[S any] struct {
	strategy Strategy[S]
	store    StateStore
	log      Logger
	now      func() time.Time
}

// NewClient builds a change detector for one provider strategy.
func NewClient[S any](strategy Strategy[S], store StateStore, log Logger) *Client[S] {
	return &Client[S]{
		strategy: strategy,
		store:    store,
		log:      ensureLogger(log),
		now:      time.Now,
	}
}

// Provider returns the strategy name.
func (c *Client[S]) Provider() string { return c.strategy.Name() }

// Poll runs one cycle for link. The store is written only after a fetch has
// completed and been fingerprinted; any earlier failure leaves it untouched,
// so the next cycle retries from the same baseline.
func (c *Client[S]) Poll(ctx context.Context, link string) (domain.ChangeEvent, error) {
	if c == nil || c.strategy == nil || c.store == nil {
		return domain.ChangeEvent{}, fmt.Errorf("client is not initialized")
	}

	uri, err := c.strategy.Translate(link)
	if err != nil {
		return domain.ChangeEvent{}, err
	}

	snapshot, err := c.strategy.Fetch(ctx, uri)
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("fetch %s: %w", link, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: poll %s: %w", ErrNetwork, link, err)
	}

	evt := domain.ChangeEvent{
		Link:      link,
		Provider:  c.strategy.Name(),
		Current:   c.strategy.Fingerprint(snapshot),
		Summary:   c.strategy.Summarize(snapshot),
		Snapshot:  snapshot,
		CheckedAt: c.now().UTC(),
	}

	stored, ok, err := c.store.Get(link)
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: get %s: %w", ErrStorage, link, err)
	}
	if ok && stored == evt.Current {
		evt.Previous = &stored
		c.logUnchanged(evt)
		return evt, nil
	}

	replaced, existed, err := c.store.Save(link, evt.Current)
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: save %s: %w", ErrStorage, link, err)
	}
	if existed {
		evt.Previous = &replaced
		// A concurrent cycle already recorded this transition and reported it.
		if replaced == evt.Current {
			c.logUnchanged(evt)
			return evt, nil
		}
	}

	evt.Changed = true
	c.log.InfoObj("link updated", "poll_result", map[string]any{
		"provider": evt.Provider,
		"link":     evt.Link,
		"previous": evt.PreviousValue(),
		"current":  evt.Current,
		"summary":  evt.Summary,
	})
	return evt, nil
}

func (c *Client[S]) logUnchanged(evt domain.ChangeEvent) {
	c.log.DebugObj("link unchanged", "poll_result", map[string]any{
		"provider": evt.Provider,
		"link":     evt.Link,
		"current":  evt.Current,
	})
}
