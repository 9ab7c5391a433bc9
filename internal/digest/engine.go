package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/dailydigest/internal/catalog"
	"github.com/deusflow/dailydigest/internal/category"
	"github.com/deusflow/dailydigest/internal/dedup"
	"github.com/deusflow/dailydigest/internal/news"
	"github.com/deusflow/dailydigest/internal/rank"
	"github.com/deusflow/dailydigest/internal/rss"
)

// FeedCollector fetches a list of feeds and reports one result per feed,
// in the same order.
type FeedCollector interface {
	Collect(ctx context.Context, feeds []catalog.Feed) []rss.FeedResult
}

type Options struct {
	Normalize           news.Rules
	SimilarityThreshold float64
	Rank                rank.Weights
	RunTimeout          time.Duration // 0 means no run-level bound
}

func DefaultOptions() Options {
	return Options{
		Normalize:           news.DefaultRules(),
		SimilarityThreshold: dedup.DefaultThreshold,
		Rank:                rank.DefaultWeights(),
		RunTimeout:          2 * time.Minute,
	}
}

// Engine runs the curation pipeline. Build one per catalog; Run may be
// called any number of times, each run is independent.
type Engine struct {
	feeds      []catalog.Feed
	collector  FeedCollector
	normalizer *news.Normalizer
	matcher    *category.Matcher
	dedup      *dedup.Deduplicator
	ranker     *rank.Ranker
	runTimeout time.Duration
	logger     *slog.Logger
	newID      func() string
}

// NewEngine validates the catalog and compiles its rules. Any catalog
// problem is returned wrapping catalog.ErrInvalidCatalog, before anything
// is fetched.
func NewEngine(cat *catalog.Catalog, collector FeedCollector, opts Options, logger *slog.Logger) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: nil catalog", catalog.ErrInvalidCatalog)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	matcher, err := category.NewMatcher(cat.Categories)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		feeds:      cat.Feeds(),
		collector:  collector,
		normalizer: news.NewNormalizer(opts.Normalize),
		matcher:    matcher,
		dedup:      dedup.New(opts.SimilarityThreshold),
		ranker:     rank.New(opts.Rank),
		runTimeout: opts.RunTimeout,
		logger:     logger,
		newID:      uuid.NewString,
	}, nil
}

// Run performs one curation batch. Feed failures and rejected entries only
// thin out the result. The error is non-nil only when ctx itself is
// cancelled, in which case no digest is produced.
func (e *Engine) Run(ctx context.Context, params RunParams) (*Digest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	runAt := params.RunAt
	if runAt.IsZero() {
		runAt = start
	}
	edition := params.Edition
	if edition == "" {
		edition = EditionFor(runAt)
	}

	d := &Digest{
		RunID:   e.newID(),
		Edition: edition,
		RunAt:   runAt,
		Stats:   Stats{Rejected: make(map[news.RejectReason]int)},
	}
	log := e.logger.With("run_id", d.RunID, "edition", edition)
	log.Info("curation run started", "feeds", len(e.feeds))

	fetchCtx := ctx
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}
	results := e.collector.Collect(fetchCtx, e.feeds)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s aborted: %w", d.RunID, err)
	}

	articles := e.normalize(results, runAt, &d.Stats)

	for _, bucket := range e.matcher.Match(articles) {
		unique := e.dedup.Apply(bucket.Articles)
		d.Stats.DuplicatesDropped += len(bucket.Articles) - len(unique)

		selected := e.ranker.Select(unique, runAt)
		d.Stats.ArticlesSelected += len(selected)
		d.Categories = append(d.Categories, CategoryResult{Name: bucket.Category, Articles: selected})
	}

	d.Stats.Duration = time.Since(start)
	log.Info("curation run finished",
		"feeds_ok", d.Stats.FeedsOK,
		"feeds_failed", d.Stats.FeedsFailed,
		"entries", d.Stats.EntriesSeen,
		"accepted", d.Stats.ArticlesAccepted,
		"selected", d.Stats.ArticlesSelected,
		"took", d.Stats.Duration,
	)
	return d, nil
}

// normalize flattens the feed results, in feed order, into accepted articles.
func (e *Engine) normalize(results []rss.FeedResult, runAt time.Time, stats *Stats) []news.Article {
	var articles []news.Article
	stats.FeedsTotal = len(results)
	for _, r := range results {
		if r.Err != nil {
			stats.FeedsFailed++
			stats.Failures = append(stats.Failures, FeedFailure{
				Source:      r.Feed.Source,
				Subcategory: r.Feed.Subcategory,
				URL:         r.Feed.URL,
				Error:       r.Err.Error(),
			})
			continue
		}
		stats.FeedsOK++

		for _, raw := range r.Entries {
			stats.EntriesSeen++
			a, err := e.normalizer.Normalize(raw, r.Feed, runAt)
			if err != nil {
				reason, ok := news.ReasonOf(err)
				if !ok {
					reason = news.RejectMalformed
				}
				stats.Rejected[reason]++
				e.logger.Debug("entry rejected", "source", r.Feed.Source, "link", raw.Link, "reason", err)
				continue
			}
			articles = append(articles, a)
		}
	}
	stats.ArticlesAccepted = len(articles)
	return articles
}
