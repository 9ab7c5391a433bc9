// Package rank orders a deduplicated category list and applies the cap.
package rank

import (
	"sort"
	"time"

	"github.com/deusflow/dailydigest/internal/news"
)

// Weights controls the composite score
// QualityWeight*quality + RecencyWeight*recency.
type Weights struct {
	QualityWeight float64
	RecencyWeight float64
	RecencyWindow time.Duration
	FreshBonus    float64 // recency inside the window
	StaleBonus    float64 // recency outside it
	Limit         int     // per-category cap
}

func DefaultWeights() Weights {
	return Weights{
		QualityWeight: 0.7,
		RecencyWeight: 0.3,
		RecencyWindow: 6 * time.Hour,
		FreshBonus:    1.0,
		StaleBonus:    0.3,
		Limit:         15,
	}
}

type Ranker struct {
	w Weights
}

func New(w Weights) *Ranker {
	return &Ranker{w: w}
}

// Score is the composite ranking score. A missing publish time counts as runAt.
func (r *Ranker) Score(a news.Article, runAt time.Time) float64 {
	recency := r.w.StaleBonus
	if runAt.Sub(a.EffectiveTime(runAt)) <= r.w.RecencyWindow {
		recency = r.w.FreshBonus
	}
	return r.w.QualityWeight*a.Quality + r.w.RecencyWeight*recency
}

// Select sorts by descending score, ties keeping input order, and truncates
// to the cap. The input slice is not modified.
func (r *Ranker) Select(articles []news.Article, runAt time.Time) []news.Article {
	type scored struct {
		a     news.Article
		score float64
	}
	items := make([]scored, len(articles))
	for i, a := range articles {
		items[i] = scored{a: a, score: r.Score(a, runAt)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	n := len(items)
	if r.w.Limit > 0 && n > r.w.Limit {
		n = r.w.Limit
	}
	out := make([]news.Article, n)
	for i := range out {
		out[i] = items[i].a
	}
	return out
}
