package rss

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/dailydigest/internal/catalog"
	"github.com/deusflow/dailydigest/internal/news"
)

const DefaultConcurrency = 8

// Fetcher retrieves the entries of one feed.
type Fetcher interface {
	FetchFeed(ctx context.Context, feed catalog.Feed) ([]news.RawEntry, error)
}

// FeedResult is the outcome of one feed. A failed feed has Err set and no entries.
type FeedResult struct {
	Feed     catalog.Feed
	Entries  []news.RawEntry
	Err      error
	Duration time.Duration
}

// Observer is told about every finished feed, from the fetching goroutine.
type Observer func(FeedResult)

// Collector fans feed fetches out over a bounded number of goroutines.
type Collector struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
	observe     Observer
}

func NewCollector(f Fetcher, concurrency int, logger *slog.Logger) *Collector {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{fetcher: f, concurrency: concurrency, logger: logger}
}

// WithObserver returns a copy of c that reports each result to fn.
func (c *Collector) WithObserver(fn Observer) *Collector {
	cp := *c
	cp.observe = fn
	return &cp
}

// Collect fetches every feed and returns one result per feed, in the order
// of feeds. Failures never abort the other fetches.
func (c *Collector) Collect(ctx context.Context, feeds []catalog.Feed) []FeedResult {
	results := make([]FeedResult, len(feeds))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, feed := range feeds {
		i, feed := i, feed
		g.Go(func() error {
			results[i] = c.fetchOne(ctx, feed)
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r.Err == nil {
			ok++
		}
	}
	c.logger.Info("processed feeds", "ok", ok, "total", len(feeds))
	return results
}

func (c *Collector) fetchOne(ctx context.Context, feed catalog.Feed) FeedResult {
	start := time.Now()
	res := FeedResult{Feed: feed}

	if err := ctx.Err(); err != nil {
		res.Err = err
	} else {
		res.Entries, res.Err = c.fetcher.FetchFeed(ctx, feed)
	}
	res.Duration = time.Since(start)
	if res.Err != nil {
		res.Entries = nil
		c.logger.Warn("feed failed", "source", feed.Source, "subcategory", feed.Subcategory, "url", feed.URL, "error", res.Err)
	} else {
		c.logger.Debug("feed loaded", "source", feed.Source, "subcategory", feed.Subcategory, "entries", len(res.Entries), "took", res.Duration)
	}

	if c.observe != nil {
		c.observe(res)
	}
	return res
}
