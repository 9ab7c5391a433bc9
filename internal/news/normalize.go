package news

import (
	"strings"
	"time"

	"github.com/deusflow/dailydigest/internal/catalog"
)

// DefaultPaywallKeywords trigger a paywall rejection when found in the
// title or summary.
var DefaultPaywallKeywords = []string{
	"subscriber",
	"subscription",
	"paywall",
	"premium",
	"exclusive",
	"members only",
	"sign up to read",
	"limited access",
	"register to continue",
}

// teaserMaxLen is the summary length under which a trailing ellipsis reads
// as a cut-off teaser.
const teaserMaxLen = 100

// Rules configures the normalizer.
type Rules struct {
	MaxAge            time.Duration
	DescriptionMaxLen int
	QualityThreshold  float64
	Weights           QualityWeights
	PaywallKeywords   []string
}

// DefaultRules returns the stock filter values.
func DefaultRules() Rules {
	return Rules{
		MaxAge:            48 * time.Hour,
		DescriptionMaxLen: 500,
		QualityThreshold:  0.3,
		Weights:           DefaultQualityWeights(),
		PaywallKeywords:   DefaultPaywallKeywords,
	}
}

// Normalizer turns raw feed entries into curated articles. It holds no
// per-run state and is safe for concurrent use.
type Normalizer struct {
	rules    Rules
	keywords []string
}

func NewNormalizer(rules Rules) *Normalizer {
	kw := make([]string, 0, len(rules.PaywallKeywords))
	for _, k := range rules.PaywallKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return &Normalizer{rules: rules, keywords: kw}
}

// Normalize converts raw into an Article, or returns a *RejectError saying
// why the entry does not qualify. runAt stands in for "now".
func (n *Normalizer) Normalize(raw RawEntry, feed catalog.Feed, runAt time.Time) (Article, error) {
	published, explicit := resolveTimestamp(raw)
	effective := runAt
	if published != nil {
		effective = *published
	}
	if n.rules.MaxAge > 0 && effective.Before(runAt.Add(-n.rules.MaxAge)) {
		return Article{}, reject(RejectStale, effective.Format(time.RFC3339))
	}

	summaryText := stripMarkup(raw.Summary)
	if kw, ok := n.paywalled(raw.Title, summaryText); ok {
		return Article{}, reject(RejectPaywalled, kw)
	}

	title := cleanTitle(raw.Title)
	if title == "" {
		return Article{}, reject(RejectMalformed, "empty title")
	}
	link := strings.TrimSpace(raw.Link)
	if link == "" {
		return Article{}, reject(RejectMalformed, "empty link")
	}

	a := Article{
		Title:       title,
		URL:         link,
		Source:      feed.Source,
		Subcategory: feed.Subcategory,
		Description: n.description(raw),
		PublishedAt: published,
		Author:      extractAuthor(raw),
		ImageURL:    extractImage(raw),
	}
	a.Quality = n.rules.Weights.Score(a, explicit)

	if a.Quality <= n.rules.QualityThreshold {
		return Article{}, reject(RejectLowQuality, "")
	}
	return a, nil
}

// resolveTimestamp prefers published over updated. explicit reports whether
// the published field itself was present.
func resolveTimestamp(raw RawEntry) (ts *time.Time, explicit bool) {
	switch {
	case raw.Published != nil:
		t := raw.Published.UTC()
		return &t, true
	case raw.Updated != nil:
		t := raw.Updated.UTC()
		return &t, false
	}
	return nil, false
}

func (n *Normalizer) paywalled(title, summary string) (string, bool) {
	text := strings.ToLower(title + " " + summary)
	for _, kw := range n.keywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	if summary != "" && runeLen(summary) < teaserMaxLen && endsWithEllipsis(summary) {
		return "truncated summary", true
	}
	return "", false
}

func (n *Normalizer) description(raw RawEntry) string {
	for _, candidate := range []string{raw.Summary, raw.Content, raw.Description} {
		if text := stripMarkup(candidate); text != "" {
			return truncateRunes(text, n.rules.DescriptionMaxLen)
		}
	}
	return ""
}

func extractAuthor(raw RawEntry) string {
	for _, candidate := range []string{raw.Author, raw.AuthorDetailName, raw.Creator} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

func extractImage(raw RawEntry) string {
	for _, m := range raw.MediaContent {
		if m.URL != "" && isImageType(m.Type) {
			return m.URL
		}
	}
	for _, m := range raw.MediaThumbnail {
		if m.URL != "" {
			return m.URL
		}
	}
	for _, m := range raw.Enclosures {
		if m.URL != "" && isImageType(m.Type) {
			return m.URL
		}
	}
	for _, m := range raw.Links {
		if m.URL != "" && strings.EqualFold(m.Rel, "enclosure") && isImageType(m.Type) {
			return m.URL
		}
	}
	return ""
}

func isImageType(t string) bool {
	return strings.Contains(strings.ToLower(t), "image")
}
