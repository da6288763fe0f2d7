package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
	"github.com/samvad-hq/samvad-link-scrapper/internal/logger"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/clients"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/publishers"
)

const (
	defaultWorkers     = 4
	defaultLinkTimeout = 20 * time.Second
)

// Options tunes a Service. Zero values fall back to defaults; a zero
// RequestsPerSecond disables rate limiting.
type Options struct {
	Workers           int
	LinkTimeout       time.Duration
	RequestsPerSecond float64
	Scraper           MetadataScraper
	Log               logger.Logger
}

// Report summarizes one pass over the tracked links.
type Report struct {
	Checked   int
	Changed   int
	Failed    int
	Published int
}

// Service polls tracked links concurrently and publishes detected changes.
type Service struct {
	links     LinkPoller
	publisher EventPublisher
	scraper   MetadataScraper
	limiter   *rate.Limiter
	workers   int
	timeout   time.Duration
	log       logger.Logger
}

// NewService wires a poller around a link poller and an optional publisher.
func NewService(links LinkPoller, publisher EventPublisher, opts Options) *Service {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := opts.LinkTimeout
	if timeout <= 0 {
		timeout = defaultLinkTimeout
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Service{
		links:     links,
		publisher: publisher,
		scraper:   opts.Scraper,
		limiter:   limiter,
		workers:   workers,
		timeout:   timeout,
		log:       logger.Ensure(opts.Log),
	}
}

// Run executes one poll pass over tracked. A failing link never prevents the
// others from being checked; all failures are joined into the returned error.
func (s *Service) Run(ctx context.Context, tracked []domain.TrackedLink) (Report, error) {
	if s == nil || s.links == nil {
		return Report{}, fmt.Errorf("poller service is not initialized")
	}
	if len(tracked) == 0 {
		return Report{}, nil
	}

	workers := s.workers
	if workers > len(tracked) {
		workers = len(tracked)
	}

	var (
		mu     sync.Mutex
		errs   []error
		report Report
	)
	record := func(fn func(r *Report), err error) {
		mu.Lock()
		defer mu.Unlock()
		if fn != nil {
			fn(&report)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	p := pool.New().WithMaxGoroutines(workers)
	for _, link := range tracked {
		p.Go(func() {
			defer func() {
				if rec := recover(); rec != nil {
					record(func(r *Report) { r.Failed++ }, fmt.Errorf("poll %s panic: %v", link.URL, rec))
				}
			}()
			s.pollOne(ctx, link, record)
		})
	}
	p.Wait()

	s.log.InfoObj("poll pass completed", "poll_pass", map[string]any{
		"links":     len(tracked),
		"checked":   report.Checked,
		"changed":   report.Changed,
		"failed":    report.Failed,
		"published": report.Published,
	})
	return report, errors.Join(errs...)
}

func (s *Service) pollOne(ctx context.Context, link domain.TrackedLink, record func(func(*Report), error)) {
	if err := s.wait(ctx); err != nil {
		record(func(r *Report) { r.Failed++ }, fmt.Errorf("poll %s: %w", link.URL, err))
		return
	}

	linkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	change, err := s.links.Poll(linkCtx, link.URL)
	if err != nil {
		s.log.WarnObj("link poll failed", "poll_error", map[string]any{
			"link":       link.URL,
			"error_kind": clients.Kind(err),
			"error":      err.Error(),
		})
		record(func(r *Report) { r.Failed++ }, fmt.Errorf("poll %s: %w", link.URL, err))
		return
	}

	record(func(r *Report) {
		r.Checked++
		if change.Changed {
			r.Changed++
		}
	}, nil)
	if !change.Changed || s.publisher == nil {
		return
	}

	evt := publishers.NewEvent(change, link.Subscribers)
	evt = s.enrich(linkCtx, evt)

	delivered, err := s.publisher.Publish(linkCtx, evt)
	record(func(r *Report) {
		if delivered > 0 {
			r.Published++
		}
	}, wrapPublishErr(link.URL, err))
	if err != nil {
		s.log.ErrorObj("change notification failed", "publish_error", map[string]any{
			"link":      evt.Link,
			"event_id":  evt.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

func (s *Service) enrich(ctx context.Context, evt publishers.Event) publishers.Event {
	if s.scraper == nil {
		return evt
	}
	if err := s.wait(ctx); err != nil {
		return evt
	}
	enriched, err := s.scraper.Enrich(ctx, evt)
	if err != nil {
		s.log.DebugObj("page metadata scrape failed", "metadata_error", map[string]any{
			"link":  evt.Link,
			"error": err.Error(),
		})
	}
	return enriched
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return ctx.Err()
	}
	return s.limiter.Wait(ctx)
}

func wrapPublishErr(link string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("publish %s: %w", link, err)
}
