package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/dailydigest/internal/config"
	"github.com/deusflow/dailydigest/internal/digest"
	"github.com/deusflow/dailydigest/internal/metrics"
	"github.com/deusflow/dailydigest/internal/news"
	"github.com/deusflow/dailydigest/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

type fakeCurator struct {
	d   *digest.Digest
	err error
}

func (f *fakeCurator) Run(context.Context, digest.RunParams) (*digest.Digest, error) {
	return f.d, f.err
}

type recordingPublisher struct {
	got []*digest.Digest
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, d *digest.Digest) error {
	r.got = append(r.got, d)
	return r.err
}

func smallDigest() *digest.Digest {
	return &digest.Digest{
		RunID:   "run-1",
		Edition: digest.EditionMorning,
		RunAt:   time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC),
		Categories: []digest.CategoryResult{
			{Name: "Portugal", Articles: []news.Article{
				{Title: "Lisbon opens new metro line", URL: "https://a.example/1", Quality: 0.9},
				{Title: "Porto wins derby", URL: "https://a.example/2", Quality: 0.6},
			}},
			{Name: "Spain", Articles: []news.Article{}},
		},
		Stats: digest.Stats{
			FeedsTotal:       3,
			FeedsOK:          2,
			FeedsFailed:      1,
			Rejected:         map[news.RejectReason]int{news.RejectStale: 2},
			ArticlesSelected: 2,
			Failures:         []digest.FeedFailure{{Source: "DW", Subcategory: "europe", Error: "timeout"}},
		},
	}
}

func TestRunOnceRecordsMetricsAndPublishes(t *testing.T) {
	m := metrics.New()
	pub := &recordingPublisher{}
	a := NewWithCurator(&fakeCurator{d: smallDigest()}, pub, m, quietLogger())

	d, err := a.RunOnce(context.Background(), digest.RunParams{})
	require.NoError(t, err)
	require.Len(t, pub.got, 1)
	assert.Same(t, d, pub.got[0])
	assert.True(t, m.Healthy())

	out := scrape(t, m)
	assert.Contains(t, out, `dailydigest_entries_rejected_total{reason="stale"} 2`)
	assert.Contains(t, out, `dailydigest_articles_selected{category="Portugal"} 2`)
	assert.Contains(t, out, `dailydigest_articles_selected{category="Spain"} 0`)
	assert.Contains(t, out, `dailydigest_runs_total{status="ok"} 1`)
}

func TestRunOncePublishFailureMarksUnhealthy(t *testing.T) {
	m := metrics.New()
	pub := &recordingPublisher{err: errors.New("db down")}
	a := NewWithCurator(&fakeCurator{d: smallDigest()}, pub, m, quietLogger())

	d, err := a.RunOnce(context.Background(), digest.RunParams{})
	require.Error(t, err)
	assert.NotNil(t, d)
	assert.Contains(t, err.Error(), "db down")
	assert.False(t, m.Healthy())
}

func TestRunOnceCurationFailureSkipsPublish(t *testing.T) {
	m := metrics.New()
	pub := &recordingPublisher{}
	a := NewWithCurator(&fakeCurator{err: context.Canceled}, pub, m, quietLogger())

	_, err := a.RunOnce(context.Background(), digest.RunParams{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.got)
	assert.Contains(t, scrape(t, m), `dailydigest_runs_total{status="error"} 1`)
}

func TestNewRejectsMissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, metrics.New(), quietLogger(), io.Discard)
	assert.Error(t, err)
}

func TestNewRunOnceEndToEnd(t *testing.T) {
	fresh := time.Now().UTC().Add(-20 * time.Minute).Format(time.RFC1123Z)
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Iberia</title><link>https://iberia.example</link><description>d</description>
<item>
  <title>Madrid unveils plan for affordable housing</title>
  <link>https://iberia.example/madrid-housing</link>
  <description>%s</description>
  <author>desk@iberia.example (Desk)</author>
  <pubDate>%s</pubDate>
</item>
</channel></rss>`, strings.Repeat("City council housing plan details. ", 8), fresh)
	}))
	defer feed.Close()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(fmt.Sprintf(`
sources:
  - name: Iberia Wire
    feeds:
      spain: %s
categories:
  - name: Spain
    subcategories: [spain]
    predicate: {kind: include_any, include: [madrid, spain]}
  - name: Portugal
    subcategories: [portugal]
`, feed.URL)), 0o644))

	cfg := config.Default()
	cfg.CatalogPath = catalogPath
	cfg.OutputPath = filepath.Join(dir, "digest.json")
	cfg.HostRate = 0

	m := metrics.New()
	var summary bytes.Buffer
	a, err := New(context.Background(), cfg, m, quietLogger(), &summary)
	require.NoError(t, err)
	defer a.Close()

	d, err := a.RunOnce(context.Background(), digest.RunParams{Edition: digest.EditionEvening})
	require.NoError(t, err)
	assert.Equal(t, digest.EditionEvening, d.Edition)

	spain, ok := d.Category("Spain")
	require.True(t, ok)
	require.Len(t, spain, 1)
	assert.Equal(t, "Madrid unveils plan for affordable housing", spain[0].Title)

	saved, err := storage.NewFileStore(cfg.OutputPath).Load()
	require.NoError(t, err)
	assert.Equal(t, d.RunID, saved.RunID)

	assert.Contains(t, summary.String(), "Spain (1)")
	assert.Contains(t, summary.String(), "Portugal (0)")
	assert.Contains(t, scrape(t, m), `dailydigest_feed_fetches_total{source="Iberia Wire",status="ok"} 1`)
}
