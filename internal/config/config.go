// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // scratch images ship no zoneinfo

	"github.com/deusflow/dailydigest/internal/news"
	"github.com/deusflow/dailydigest/internal/rank"
)

type Config struct {
	// Catalog; empty means the built-in default catalog
	CatalogPath string

	// Fetch settings
	FetchTimeout     time.Duration // per feed
	FetchConcurrency int
	EntriesPerFeed   int
	RetryAttempts    int
	RetryDelay       time.Duration
	HostRate         float64 // requests per second per host, 0 = unlimited
	HostBurst        int
	UserAgent        string
	RunTimeout       time.Duration

	// Curation heuristics
	Normalize           news.Rules
	SimilarityThreshold float64
	Rank                rank.Weights

	// Output collaborators
	DatabaseURL  string
	OutputPath   string
	RedisAddr    string
	FeedCacheTTL time.Duration

	// App settings
	Debug             bool
	LogFormat         string
	Timezone          string
	MorningHour       int
	EveningHour       int
	MonitoringEnabled bool
	MonitoringPort    string
}

func Default() *Config {
	return &Config{
		FetchTimeout:        10 * time.Second,
		FetchConcurrency:    8,
		EntriesPerFeed:      30,
		RetryAttempts:       1,
		RetryDelay:          2 * time.Second,
		HostRate:            2,
		HostBurst:           2,
		RunTimeout:          2 * time.Minute,
		Normalize:           news.DefaultRules(),
		SimilarityThreshold: 0.7,
		Rank:                rank.DefaultWeights(),
		FeedCacheTTL:        10 * time.Minute,
		LogFormat:           "text",
		Timezone:            "UTC",
		MorningHour:         6,
		EveningHour:         18,
		MonitoringPort:      "8080",
	}
}

// Load applies environment overrides on top of Default and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	cfg.CatalogPath = os.Getenv("CATALOG_PATH")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.OutputPath = os.Getenv("DIGEST_OUTPUT_PATH")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.UserAgent = os.Getenv("USER_AGENT")

	cfg.FetchTimeout = getEnvDurationOrDefault("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.EntriesPerFeed = getEnvIntOrDefault("ENTRIES_PER_FEED", cfg.EntriesPerFeed)
	cfg.RetryAttempts = getEnvIntOrDefault("FETCH_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryDelay = getEnvDurationOrDefault("FETCH_RETRY_DELAY", cfg.RetryDelay)
	cfg.HostRate = getEnvFloatOrDefault("HOST_RATE_LIMIT", cfg.HostRate)
	cfg.HostBurst = getEnvIntOrDefault("HOST_BURST", cfg.HostBurst)
	cfg.RunTimeout = getEnvDurationOrDefault("RUN_TIMEOUT", cfg.RunTimeout)
	cfg.FeedCacheTTL = getEnvDurationOrDefault("FEED_CACHE_TTL", cfg.FeedCacheTTL)

	cfg.Normalize.MaxAge = getEnvDurationOrDefault("NEWS_MAX_AGE", cfg.Normalize.MaxAge)
	cfg.Normalize.QualityThreshold = getEnvFloatOrDefault("QUALITY_THRESHOLD", cfg.Normalize.QualityThreshold)
	cfg.Normalize.DescriptionMaxLen = getEnvIntOrDefault("DESCRIPTION_MAX_RUNES", cfg.Normalize.DescriptionMaxLen)
	cfg.SimilarityThreshold = getEnvFloatOrDefault("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.Rank.Limit = getEnvIntOrDefault("ARTICLES_PER_CATEGORY", cfg.Rank.Limit)
	cfg.Rank.RecencyWindow = getEnvDurationOrDefault("RECENCY_WINDOW", cfg.Rank.RecencyWindow)

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Timezone = getEnvOrDefault("TIMEZONE", cfg.Timezone)
	cfg.MorningHour = getEnvIntOrDefault("MORNING_CURATION_HOUR", cfg.MorningHour)
	cfg.EveningHour = getEnvIntOrDefault("EVENING_CURATION_HOUR", cfg.EveningHour)
	cfg.MonitoringEnabled = os.Getenv("ENABLE_HTTP_MONITORING") == "true"
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	return cfg, cfg.Validate()
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Validate() error {
	var errs []error
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT must be positive"))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RUN_TIMEOUT must be positive"))
	}
	if c.FetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("FETCH_CONCURRENCY must be at least 1"))
	}
	if c.EntriesPerFeed < 1 {
		errs = append(errs, fmt.Errorf("ENTRIES_PER_FEED must be at least 1"))
	}
	if c.Normalize.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("NEWS_MAX_AGE must be positive"))
	}
	if c.Normalize.DescriptionMaxLen < 1 {
		errs = append(errs, fmt.Errorf("DESCRIPTION_MAX_RUNES must be at least 1"))
	}
	if c.Normalize.QualityThreshold < 0 || c.Normalize.QualityThreshold >= 1 {
		errs = append(errs, fmt.Errorf("QUALITY_THRESHOLD must be in [0, 1)"))
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]"))
	}
	if c.Rank.Limit < 1 {
		errs = append(errs, fmt.Errorf("ARTICLES_PER_CATEGORY must be at least 1"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'text' or 'json'"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	if !validHour(c.MorningHour) || !validHour(c.EveningHour) {
		errs = append(errs, fmt.Errorf("curation hours must be within 0-23"))
	} else if c.MorningHour == c.EveningHour {
		errs = append(errs, fmt.Errorf("MORNING_CURATION_HOUR and EVENING_CURATION_HOUR must differ"))
	}
	return errors.Join(errs...)
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
