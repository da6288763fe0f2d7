package poller

import (
	"context"

	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/publishers"
)

// LinkPoller runs one detection cycle for a link. *clients.Registry satisfies it.
type LinkPoller interface {
	Poll(ctx context.Context, link string) (domain.ChangeEvent, error)
}

// EventPublisher publishes change events downstream. *publishers.Fanout satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// MetadataScraper enriches an event with metadata from the tracked page (e.g., OG tags).
type MetadataScraper interface {
	Enrich(ctx context.Context, evt publishers.Event) (publishers.Event, error)
}
