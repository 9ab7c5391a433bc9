// Package rss downloads and parses the catalog's feed endpoints.
package rss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/dailydigest/internal/cache"
	"github.com/deusflow/dailydigest/internal/catalog"
	"github.com/deusflow/dailydigest/internal/news"
	"github.com/deusflow/dailydigest/internal/ratelimit"
	"github.com/deusflow/dailydigest/internal/retry"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxEntries = 30
	DefaultUserAgent  = "dailydigest/1.0 (+https://github.com/deusflow/dailydigest)"

	maxBodyBytes = 10 << 20
)

// ErrBodyTooLarge is returned for feed documents above the size limit.
var ErrBodyTooLarge = errors.New("feed body too large")

// StatusError is a non-2xx answer from a feed endpoint.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

type ClientConfig struct {
	Timeout    time.Duration // per feed, covering waits and retries
	MaxEntries int
	UserAgent  string
	Retry      retry.RetryConfig
	CacheTTL   time.Duration
}

// Client fetches a single feed. It is safe for concurrent use.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	cache   cache.Store
	limiter *ratelimit.HostLimiter
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache stores raw feed documents in store for the configured CacheTTL.
func WithCache(store cache.Store) Option {
	return func(c *Client) { c.cache = store }
}

func WithLimiter(l *ratelimit.HostLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(cfg ClientConfig, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFeed downloads and parses one feed, returning at most MaxEntries
// entries in document order. Every failure is returned; the caller decides
// how to isolate it.
func (c *Client) FetchFeed(ctx context.Context, feed catalog.Feed) ([]news.RawEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, cached, err := c.document(ctx, feed.URL)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.URL, err)
	}

	if c.cache != nil && !cached && c.cfg.CacheTTL > 0 {
		if err := c.cache.Set(ctx, cache.Key(feed.URL), body, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("feed cache write failed", "url", feed.URL, "error", err)
		}
	}

	items := parsed.Items
	if len(items) > c.cfg.MaxEntries {
		items = items[:c.cfg.MaxEntries]
	}
	entries := make([]news.RawEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, toRawEntry(item))
	}
	return entries, nil
}

// document returns the raw feed bytes, from cache when possible.
func (c *Client) document(ctx context.Context, url string) ([]byte, bool, error) {
	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, cache.Key(url))
		if err != nil {
			c.logger.Warn("feed cache read failed", "url", url, "error", err)
		} else if ok {
			c.logger.Debug("feed cache hit", "url", url)
			return body, true, nil
		}
	}

	var body []byte
	err := retry.WithRetry(ctx, c.cfg.Retry, func() error {
		var err error
		body, err = c.download(ctx, url)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return body, false, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return nil, retry.Permanent(fmt.Errorf("rate limit wait %s: %w", url, err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		serr := &StatusError{URL: url, Code: resp.StatusCode}
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(serr)
		}
		return nil, serr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, retry.Permanent(fmt.Errorf("%s: %w", url, ErrBodyTooLarge))
	}
	return body, nil
}
