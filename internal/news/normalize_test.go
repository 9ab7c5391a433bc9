package news

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/dailydigest/internal/catalog"
)

var (
	runAt    = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	europe   = catalog.Feed{Source: "BBC News", Subcategory: "europe", URL: "https://feeds.example/europe.xml"}
	longDesc = strings.Repeat("word ", 39) + "words" // 200 runes
)

func ptr(t time.Time) *time.Time { return &t }

func fullEntry() RawEntry {
	return RawEntry{
		Title:          "Portugal Eyes New Visa Rules",
		Link:           "https://news.example/portugal-visa",
		Summary:        longDesc,
		Author:         "Ana Silva",
		MediaThumbnail: []MediaRef{{URL: "https://img.example/visa.jpg"}},
		Published:      ptr(runAt.Add(-time.Hour)),
	}
}

func TestNormalizeFullSignalsScoresOne(t *testing.T) {
	n := NewNormalizer(DefaultRules())

	a, err := n.Normalize(fullEntry(), europe, runAt)
	require.NoError(t, err)

	assert.Equal(t, "Portugal Eyes New Visa Rules", a.Title)
	assert.Equal(t, "https://news.example/portugal-visa", a.URL)
	assert.Equal(t, "BBC News", a.Source)
	assert.Equal(t, "europe", a.Subcategory)
	assert.Equal(t, "Ana Silva", a.Author)
	assert.Equal(t, "https://img.example/visa.jpg", a.ImageURL)
	assert.Len(t, []rune(a.Description), 200)
	require.NotNil(t, a.PublishedAt)
	assert.True(t, a.PublishedAt.Equal(runAt.Add(-time.Hour)))
	assert.InDelta(t, 1.0, a.Quality, 1e-9)
}

func TestNormalizeRejectsStaleEvenWithMaxSignals(t *testing.T) {
	n := NewNormalizer(DefaultRules())
	raw := fullEntry()
	raw.Published = ptr(runAt.Add(-49 * time.Hour))

	_, err := n.Normalize(raw, europe, runAt)
	reason, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, RejectStale, reason)
}

func TestNormalizeTimestampFallbacks(t *testing.T) {
	n := NewNormalizer(DefaultRules())

	t.Run("updated used when published missing", func(t *testing.T) {
		raw := fullEntry()
		updated := runAt.Add(-2 * time.Hour)
		raw.Published = nil
		raw.Updated = &updated

		a, err := n.Normalize(raw, europe, runAt)
		require.NoError(t, err)
		require.NotNil(t, a.PublishedAt)
		assert.True(t, a.PublishedAt.Equal(updated))
		// no explicit published bonus
		assert.InDelta(t, 0.9, a.Quality, 1e-9)
	})

	t.Run("missing timestamps count as fresh", func(t *testing.T) {
		raw := fullEntry()
		raw.Published = nil

		a, err := n.Normalize(raw, europe, runAt)
		require.NoError(t, err)
		assert.Nil(t, a.PublishedAt)
		assert.True(t, a.EffectiveTime(runAt).Equal(runAt))
	})

	t.Run("stale updated timestamp", func(t *testing.T) {
		raw := fullEntry()
		raw.Published = nil
		raw.Updated = ptr(runAt.Add(-72 * time.Hour))

		_, err := n.Normalize(raw, europe, runAt)
		reason, _ := ReasonOf(err)
		assert.Equal(t, RejectStale, reason)
	})
}

func TestNormalizePaywall(t *testing.T) {
	n := NewNormalizer(DefaultRules())

	tests := []struct {
		name    string
		title   string
		summary string
	}{
		{"keyword in title any case", "Inside the PAYWALL economy of news sites", longDesc},
		{"keyword in summary", "A perfectly ordinary headline here", "Only for Subscribers: " + longDesc},
		{"phrase in summary", "A perfectly ordinary headline here", "Please sign up to read the full story. " + longDesc},
		{"short teaser with dots", "A perfectly ordinary headline here", "The minister said that the plan..."},
		{"short teaser with unicode ellipsis", "A perfectly ordinary headline here", "<p>The minister said that the plan…</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fullEntry()
			raw.Title = tt.title
			raw.Summary = tt.summary

			_, err := n.Normalize(raw, europe, runAt)
			reason, ok := ReasonOf(err)
			require.True(t, ok, "expected rejection, got %v", err)
			assert.Equal(t, RejectPaywalled, reason)
		})
	}
}

func TestNormalizeLongSummaryEndingInEllipsisIsKept(t *testing.T) {
	n := NewNormalizer(DefaultRules())
	raw := fullEntry()
	raw.Summary = longDesc + "..."

	_, err := n.Normalize(raw, europe, runAt)
	require.NoError(t, err)
}

func TestNormalizeMalformed(t *testing.T) {
	n := NewNormalizer(DefaultRules())

	for name, mutate := range map[string]func(*RawEntry){
		"empty title":       func(r *RawEntry) { r.Title = "   " },
		"only source title": func(r *RawEntry) { r.Title = "| BBC News" },
		"markup only title": func(r *RawEntry) { r.Title = "<img src='x.png'>" },
		"empty link":        func(r *RawEntry) { r.Link = "" },
	} {
		t.Run(name, func(t *testing.T) {
			raw := fullEntry()
			mutate(&raw)

			_, err := n.Normalize(raw, europe, runAt)
			reason, ok := ReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, RejectMalformed, reason)
		})
	}
}

func TestNormalizeQualityGate(t *testing.T) {
	n := NewNormalizer(DefaultRules())

	t.Run("score exactly at threshold is rejected", func(t *testing.T) {
		raw := RawEntry{
			Title:   "Short",
			Link:    "https://news.example/a",
			Summary: strings.Repeat("a", 60),
		}
		_, err := n.Normalize(raw, europe, runAt)
		reason, _ := ReasonOf(err)
		assert.Equal(t, RejectLowQuality, reason)
	})

	t.Run("score just above threshold is kept", func(t *testing.T) {
		raw := RawEntry{
			Title:   "A headline that is long enough",
			Link:    "https://news.example/b",
			Summary: strings.Repeat("a", 60),
		}
		a, err := n.Normalize(raw, europe, runAt)
		require.NoError(t, err)
		assert.InDelta(t, 0.4, a.Quality, 1e-9)
	})
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"  Big   news\tabout things  | BBC News": "Big news about things",
		"Markets rally - March 2025":              "Markets rally",
		"Markets rally - december 2024":           "Markets rally",
		"<b>Bold</b> &amp; title":                 "Bold & title",
		"Election results | Europe | DW":          "Election results | Europe",
		"Pre-season starts - 2025":                "Pre-season starts - 2025",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanTitle(in), "input %q", in)
	}
}

func TestDescriptionExtraction(t *testing.T) {
	n := NewNormalizer(DefaultRules())

	t.Run("markup stripped", func(t *testing.T) {
		got := n.description(RawEntry{Summary: "<p>Hello <b>world</b></p>\n<script>alert(1)</script>"})
		assert.Equal(t, "Hello world", got)
	})

	t.Run("falls back to content then description", func(t *testing.T) {
		assert.Equal(t, "Content body", n.description(RawEntry{Content: "<div>Content  body</div>"}))
		assert.Equal(t, "Plain", n.description(RawEntry{Summary: "  ", Description: "Plain"}))
	})

	t.Run("capped with ellipsis", func(t *testing.T) {
		got := n.description(RawEntry{Summary: strings.Repeat("é", 600)})
		assert.Equal(t, 503, len([]rune(got)))
		assert.True(t, strings.HasSuffix(got, "..."))
	})
}

func TestExtractAuthorPrecedence(t *testing.T) {
	assert.Equal(t, "Direct", extractAuthor(RawEntry{Author: "Direct", AuthorDetailName: "Detail", Creator: "Creator"}))
	assert.Equal(t, "Detail", extractAuthor(RawEntry{AuthorDetailName: "Detail", Creator: "Creator"}))
	assert.Equal(t, "Creator", extractAuthor(RawEntry{Creator: " Creator "}))
	assert.Equal(t, "", extractAuthor(RawEntry{}))
}

func TestExtractImagePrecedence(t *testing.T) {
	raw := RawEntry{
		MediaContent:   []MediaRef{{URL: "https://v.example/clip.mp4", Type: "video/mp4"}},
		MediaThumbnail: []MediaRef{{URL: "https://i.example/thumb.jpg"}},
		Enclosures:     []MediaRef{{URL: "https://i.example/enc.jpg", Type: "image/jpeg"}},
	}
	assert.Equal(t, "https://i.example/thumb.jpg", extractImage(raw))

	raw.MediaContent = append(raw.MediaContent, MediaRef{URL: "https://i.example/media.png", Type: "image/png"})
	assert.Equal(t, "https://i.example/media.png", extractImage(raw))

	assert.Equal(t, "https://i.example/enc.jpg", extractImage(RawEntry{
		Enclosures: []MediaRef{{URL: "https://a.example/pod.mp3", Type: "audio/mpeg"}, {URL: "https://i.example/enc.jpg", Type: "image/jpeg"}},
	}))
	assert.Equal(t, "https://i.example/link.gif", extractImage(RawEntry{
		Links: []MediaRef{{URL: "https://x.example", Rel: "alternate", Type: "image/gif"}, {URL: "https://i.example/link.gif", Rel: "enclosure", Type: "image/gif"}},
	}))
	assert.Equal(t, "", extractImage(RawEntry{}))
}

func TestReasonOf(t *testing.T) {
	_, ok := ReasonOf(errors.New("boom"))
	assert.False(t, ok)

	reason, ok := ReasonOf(reject(RejectStale, "old"))
	assert.True(t, ok)
	assert.Equal(t, RejectStale, reason)
	assert.Contains(t, reject(RejectStale, "old").Error(), "stale")
}
