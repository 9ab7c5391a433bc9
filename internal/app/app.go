// Package app wires configuration, the curation engine and the publishers
// into runnable jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/deusflow/dailydigest/internal/cache"
	"github.com/deusflow/dailydigest/internal/catalog"
	"github.com/deusflow/dailydigest/internal/config"
	"github.com/deusflow/dailydigest/internal/digest"
	"github.com/deusflow/dailydigest/internal/logger"
	"github.com/deusflow/dailydigest/internal/metrics"
	"github.com/deusflow/dailydigest/internal/ratelimit"
	"github.com/deusflow/dailydigest/internal/retry"
	"github.com/deusflow/dailydigest/internal/rss"
	"github.com/deusflow/dailydigest/internal/storage"
)

const summaryPreview = 3

// Curator produces one digest per call.
type Curator interface {
	Run(ctx context.Context, params digest.RunParams) (*digest.Digest, error)
}

type App struct {
	curator   Curator
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	closers   []io.Closer
}

// New builds the full pipeline from cfg. A bad catalog fails here, before
// any feed is fetched. out receives the console summary of every run.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *slog.Logger, out io.Writer) (*App, error) {
	a := &App{metrics: m, logger: log}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	for category, labels := range cat.Unserved() {
		log.Warn("category lists sub-categories no source provides", "category", category, "subcategories", labels)
	}

	opts := []rss.Option{
		rss.WithLimiter(ratelimit.NewHostLimiter(cfg.HostRate, cfg.HostBurst)),
		rss.WithLogger(logger.Component(log, "rss")),
	}
	if store := a.feedCache(ctx, cfg); store != nil {
		opts = append(opts, rss.WithCache(store))
	}
	client := rss.NewClient(rss.ClientConfig{
		Timeout:    cfg.FetchTimeout,
		MaxEntries: cfg.EntriesPerFeed,
		UserAgent:  cfg.UserAgent,
		Retry:      retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true},
		CacheTTL:   cfg.FeedCacheTTL,
	}, opts...)

	collector := rss.NewCollector(client, cfg.FetchConcurrency, logger.Component(log, "collector")).
		WithObserver(func(r rss.FeedResult) {
			m.ObserveFeed(r.Feed.Source, r.Err, r.Duration)
		})

	engine, err := digest.NewEngine(cat, collector, digest.Options{
		Normalize:           cfg.Normalize,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Rank:                cfg.Rank,
		RunTimeout:          cfg.RunTimeout,
	}, logger.Component(log, "digest"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.curator = engine

	publishers := MultiPublisher{NewSummaryPublisher(out, summaryPreview)}
	if cfg.DatabaseURL != "" {
		pg, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, logger.Component(log, "postgres"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pg)
		publishers = append(publishers, pg)
	}
	if cfg.OutputPath != "" {
		publishers = append(publishers, storage.NewFileStore(cfg.OutputPath))
	}
	a.publisher = publishers

	log.Info("app ready",
		"sources", len(cat.Sources),
		"feeds", len(cat.Feeds()),
		"categories", len(cat.Categories),
		"publishers", len(publishers),
	)
	return a, nil
}

// NewWithCurator assembles an App from ready-made parts.
func NewWithCurator(c Curator, p Publisher, m *metrics.Metrics, log *slog.Logger) *App {
	return &App{curator: c, publisher: p, metrics: m, logger: log}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// feedCache picks Redis when configured and reachable, memory otherwise.
func (a *App) feedCache(ctx context.Context, cfg *config.Config) cache.Store {
	if cfg.FeedCacheTTL <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		r, err := cache.DialRedis(ctx, cfg.RedisAddr, "dailydigest:")
		if err == nil {
			a.closers = append(a.closers, r)
			return r
		}
		a.logger.Warn("redis unavailable, using in-memory feed cache", "addr", cfg.RedisAddr, "error", err)
	}
	mem := cache.NewMemory(cfg.FeedCacheTTL)
	a.closers = append(a.closers, mem)
	return mem
}

// RunOnce curates and publishes one digest. Feed failures only thin out the
// digest; the returned error is a cancelled run or a failed publish.
func (a *App) RunOnce(ctx context.Context, params digest.RunParams) (*digest.Digest, error) {
	start := time.Now()

	d, err := a.curator.Run(ctx, params)
	if err != nil {
		a.metrics.RecordRun(time.Since(start), err)
		return nil, fmt.Errorf("curation: %w", err)
	}

	for reason, n := range d.Stats.Rejected {
		a.metrics.AddRejections(string(reason), n)
	}
	for _, c := range d.Categories {
		a.metrics.SetSelected(c.Name, len(c.Articles))
	}

	if err := a.publisher.Publish(ctx, d); err != nil {
		a.metrics.RecordRun(time.Since(start), err)
		a.logger.Error("publish failed", "run_id", d.RunID, "error", err)
		return d, fmt.Errorf("publish digest %s: %w", d.RunID, err)
	}

	a.metrics.RecordRun(time.Since(start), nil)
	a.logger.Info("digest delivered", "run_id", d.RunID, "edition", d.Edition, "articles", d.Stats.ArticlesSelected)
	return d, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
