// Package dedup drops repeated and near-identical articles from a category.
package dedup

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/deusflow/dailydigest/internal/news"
)

const DefaultThreshold = 0.7

// Deduplicator removes exact URL repeats and titles whose similarity to an
// already kept title reaches the threshold.
//
// Every candidate is compared with every kept title, so a category costs
// O(n²) ratio computations. Category lists are tens of items after
// filtering; larger inputs should shard by category rather than loosen the
// comparison.
type Deduplicator struct {
	threshold float64
}

func New(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{threshold: threshold}
}

// Apply returns the survivors in first-seen order. The input is not modified.
func (d *Deduplicator) Apply(articles []news.Article) []news.Article {
	out := make([]news.Article, 0, len(articles))
	seenURLs := make(map[string]struct{}, len(articles))
	var keptTitles [][]string

	for _, a := range articles {
		if _, dup := seenURLs[a.URL]; dup {
			continue
		}
		title := chars(strings.ToLower(a.Title))
		if d.similarToAny(title, keptTitles) {
			continue
		}
		seenURLs[a.URL] = struct{}{}
		keptTitles = append(keptTitles, title)
		out = append(out, a)
	}
	return out
}

func (d *Deduplicator) similarToAny(title []string, kept [][]string) bool {
	for _, k := range kept {
		if Similarity(k, title) >= d.threshold {
			return true
		}
	}
	return false
}

// Similarity is the matching-blocks ratio 2*M/T of two rune sequences.
func Similarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}

// TitleSimilarity compares two titles case-insensitively.
func TitleSimilarity(a, b string) float64 {
	return Similarity(chars(strings.ToLower(a)), chars(strings.ToLower(b)))
}

func chars(s string) []string {
	return strings.Split(s, "")
}
