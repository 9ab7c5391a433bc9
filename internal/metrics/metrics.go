// Package metrics exposes curation counters to Prometheus and keeps the
// last-run status served by /health.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dailydigest"

type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	feedFetches     *prometheus.CounterVec
	feedDuration    *prometheus.HistogramVec
	entriesRejected *prometheus.CounterVec
	articlesChosen  *prometheus.GaugeVec

	mu            sync.RWMutex
	lastRunTime   time.Time
	lastDuration  time.Duration
	lastErrorTime time.Time
	lastError     string
	runCount      int64
	isHealthy     bool
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Curation runs by outcome",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of curation runs",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}),
		feedFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Feed fetches by source and outcome",
		}, []string{"source", "status"}),
		feedDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of a single feed fetch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		entriesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_rejected_total",
			Help:      "Feed entries dropped by the normalizer",
		}, []string{"reason"}),
		articlesChosen: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "articles_selected",
			Help:      "Articles selected per category in the last run",
		}, []string{"category"}),
		isHealthy: true,
	}
}

func (m *Metrics) ObserveFeed(source string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.feedFetches.WithLabelValues(source, status).Inc()
	m.feedDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) AddRejections(reason string, n int) {
	if n > 0 {
		m.entriesRejected.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) SetSelected(category string, n int) {
	m.articlesChosen.WithLabelValues(category).Set(float64(n))
}

// RecordRun stores the outcome of a run. A failed run marks the process
// unhealthy until the next successful one.
func (m *Metrics) RecordRun(d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCount++
	m.lastDuration = d
	if err != nil {
		m.lastError = err.Error()
		m.lastErrorTime = time.Now()
		m.isHealthy = false
		return
	}
	m.lastRunTime = time.Now()
	m.isHealthy = true
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs":                 m.runCount,
		"last_run_duration_ms": m.lastDuration.Milliseconds(),
		"last_run_time":        formatTime(m.lastRunTime),
		"last_error_time":      formatTime(m.lastErrorTime),
		"last_error":           m.lastError,
		"is_healthy":           m.isHealthy,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
