package news

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const ellipsis = "..."

var (
	// "Title | Source Name"
	sourceSuffixRe = regexp.MustCompile(`\s*\|[^|]*$`)
	// "Title - March 2025"
	dateSuffixRe = regexp.MustCompile(`(?i)\s*-\s*(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{4}$`)

	titlePolicy = bluemonday.StrictPolicy()
)

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanTitle strips markup, collapses whitespace and removes trailing
// source and date suffixes.
func cleanTitle(raw string) string {
	t := html.UnescapeString(titlePolicy.Sanitize(raw))
	t = collapseWhitespace(t)
	t = sourceSuffixRe.ReplaceAllString(t, "")
	t = dateSuffixRe.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// stripMarkup returns the visible text of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from entity decoding.
func stripMarkup(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapseWhitespace(html.UnescapeString(titlePolicy.Sanitize(raw)))
	}
	doc.Find("script, style").Remove()
	return collapseWhitespace(doc.Text())
}

// truncateRunes caps s at limit runes, appending an ellipsis when cut.
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	rs := []rune(s)
	return strings.TrimRight(string(rs[:limit]), " ") + ellipsis
}

func endsWithEllipsis(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasSuffix(s, "...") || strings.HasSuffix(s, "…")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
