// Package digest assembles one curation run: fetch every feed, normalize
// entries, then match, deduplicate and rank per category.
package digest

import (
	"time"

	"github.com/deusflow/dailydigest/internal/news"
)

const (
	EditionMorning = "morning"
	EditionEvening = "evening"
)

// EditionFor labels a run by the local hour of t: morning before noon,
// evening otherwise.
func EditionFor(t time.Time) string {
	if t.Hour() < 12 {
		return EditionMorning
	}
	return EditionEvening
}

type RunParams struct {
	Edition string    // derived from RunAt when empty
	RunAt   time.Time // time.Now() when zero
}

// CategoryResult is one category's final selection, best first.
type CategoryResult struct {
	Name     string         `json:"name"`
	Articles []news.Article `json:"articles"`
}

type FeedFailure struct {
	Source      string `json:"source"`
	Subcategory string `json:"subcategory"`
	URL         string `json:"url"`
	Error       string `json:"error"`
}

type Stats struct {
	FeedsTotal        int                       `json:"feeds_total"`
	FeedsOK           int                       `json:"feeds_ok"`
	FeedsFailed       int                       `json:"feeds_failed"`
	EntriesSeen       int                       `json:"entries_seen"`
	ArticlesAccepted  int                       `json:"articles_accepted"`
	Rejected          map[news.RejectReason]int `json:"rejected"`
	DuplicatesDropped int                       `json:"duplicates_dropped"`
	ArticlesSelected  int                       `json:"articles_selected"`
	Failures          []FeedFailure             `json:"failures,omitempty"`
	Duration          time.Duration             `json:"duration_ns"`
}

// Digest is the output of one run, handed to a publisher.
type Digest struct {
	RunID      string           `json:"run_id"`
	Edition    string           `json:"edition"`
	RunAt      time.Time        `json:"run_at"`
	Categories []CategoryResult `json:"categories"`
	Stats      Stats            `json:"stats"`
}

// ByCategory returns the category name to articles mapping.
func (d *Digest) ByCategory() map[string][]news.Article {
	out := make(map[string][]news.Article, len(d.Categories))
	for _, c := range d.Categories {
		out[c.Name] = c.Articles
	}
	return out
}

// Category looks up one category's selection.
func (d *Digest) Category(name string) ([]news.Article, bool) {
	for _, c := range d.Categories {
		if c.Name == name {
			return c.Articles, true
		}
	}
	return nil, false
}
