package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-link-scrapper/internal/config"
	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
	"github.com/samvad-hq/samvad-link-scrapper/internal/logger"
	"github.com/samvad-hq/samvad-link-scrapper/internal/poller"
	"github.com/samvad-hq/samvad-link-scrapper/internal/storage"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/clients"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/httpclient"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/links"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/publishers"
)

// LinkSource returns the current tracked-link list.
type LinkSource func() ([]domain.TrackedLink, error)

// Scrapper is the polling runtime. It owns the state store and publishers,
// reloads the tracked links every cycle and drives the poller on a ticker.
type Scrapper struct {
	cfg      *config.Config
	store    storage.Store
	registry *clients.Registry
	fanout   *publishers.Fanout
	poller   *poller.Service
	source   LinkSource
	interval time.Duration
	log      logger.Logger

	mu       sync.Mutex
	lastGood []domain.TrackedLink
}

// OpenStore opens the state store selected by configuration.
func OpenStore(cfg *config.Config, log logger.Logger) (storage.Store, error) {
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Ensure(log).InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})
	return store, nil
}

// NewRegistry builds the provider registry over store using configured credentials.
func NewRegistry(cfg *config.Config, store storage.Store, log logger.Logger) (*clients.Registry, error) {
	reg, err := clients.DefaultRegistry(clients.Options{
		HTTP:  httpclient.NewRestyClient(cfg.HTTPTimeout, cfg.UserAgent),
		Store: store,
		Log:   logger.Ensure(log),
		GitHub: clients.GitHubOptions{
			BaseURL: cfg.GitHubAPIURL,
			Token:   cfg.GitHubToken,
		},
		StackOverflow: clients.StackOverflowOptions{
			BaseURL: cfg.StackOverflowAPIURL,
			Key:     cfg.StackOverflowKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	return reg, nil
}

// NewScrapper builds the runtime from config files.
func NewScrapper(ctx context.Context, cfg *config.Config, log logger.Logger) (*Scrapper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg, log)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}

	reg, err := NewRegistry(cfg, store, log)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, err
	}
	log.InfoObj("provider registry ready", "providers_meta", map[string]any{
		"providers": reg.Providers(),
	})

	var scraper poller.MetadataScraper
	if cfg.EnrichNotifications {
		scraper = poller.NewScraper(httpclient.NewRestyClient(cfg.HTTPTimeout, cfg.UserAgent))
	}

	svc := poller.NewService(reg, fanout, poller.Options{
		Workers:           cfg.MaxConcurrentPolls,
		LinkTimeout:       cfg.PollTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Scraper:           scraper,
		Log:               log,
	})

	linksFile := cfg.LinksFile
	return &Scrapper{
		cfg:      cfg,
		store:    store,
		registry: reg,
		fanout:   fanout,
		poller:   svc,
		source:   func() ([]domain.TrackedLink, error) { return links.Load(linksFile) },
		interval: cfg.PollInterval,
		log:      log,
	}, nil
}

// buildFanout loads enabled publishers. A missing publishers file falls back
// to the log publisher so local runs still surface changes.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	var enabled []publishers.PublisherConfig

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.WarnObj("publishers file not found; logging changes only", "publishers_file", cfg.PublishersFile)
		enabled = []publishers.PublisherConfig{{ID: "log", Type: publishers.TypeLog}}
	case err != nil:
		return nil, fmt.Errorf("load publishers registry: %w", err)
	default:
		enabled = publisherReg.Enabled()
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the poll loop until the context is cancelled.
func (s *Scrapper) Run(ctx context.Context) error {
	if s == nil || s.poller == nil {
		return fmt.Errorf("scrapper is not initialized")
	}
	defer s.Close()

	s.log.InfoObj("scrapper loop starting", "scrapper_state", map[string]any{
		"links_file":       s.cfg.LinksFile,
		"publishers_count": s.fanout.Size(),
		"poll_interval":    s.interval.String(),
	})

	if err := s.RunOnce(ctx); err != nil {
		s.log.ErrorObj("initial poll failed", "error", err.Error())
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("scrapper loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled poll failed", "error", err.Error())
			}
		}
	}
}

// RunOnce reloads the tracked links and performs a single poll pass.
func (s *Scrapper) RunOnce(ctx context.Context) error {
	tracked, err := s.trackedLinks()
	if err != nil {
		return err
	}
	if len(tracked) == 0 {
		s.log.WarnObj("no links tracked; skipping poll", "links_file", s.cfg.LinksFile)
		return nil
	}

	start := time.Now()
	report, err := s.poller.Run(ctx, tracked)
	s.log.InfoObj("poll cycle completed", "poll_meta", map[string]any{
		"links_count": len(tracked),
		"changed":     report.Changed,
		"failed":      report.Failed,
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return err
}

// trackedLinks reloads the source, keeping the last good list when it fails.
func (s *Scrapper) trackedLinks() ([]domain.TrackedLink, error) {
	tracked, err := s.source()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.lastGood == nil {
			return nil, fmt.Errorf("load links: %w", err)
		}
		s.log.WarnObj("links reload failed; using last good list", "links_error", map[string]any{
			"links_file": s.cfg.LinksFile,
			"count":      len(s.lastGood),
			"error":      err.Error(),
		})
		return s.lastGood, nil
	}
	s.lastGood = tracked
	s.log.DebugObj("links reloaded", "links_meta", map[string]any{
		"count": len(tracked),
		"links": links.URLs(tracked),
	})
	return tracked, nil
}

// Close releases the store and publisher clients, logging any errors encountered.
func (s *Scrapper) Close() {
	if s == nil {
		return
	}
	if s.fanout != nil {
		if err := s.fanout.Close(); err != nil {
			s.log.ErrorObj("publishers close failed", "error", err.Error())
		}
		s.fanout = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.ErrorObj("storage close failed", "error", err.Error())
		}
		s.store = nil
	}
}
