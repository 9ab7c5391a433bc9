package news

import (
	"errors"
	"fmt"
	"time"
)

// Article is a curated, normalized news item. It is read-only once built.
type Article struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Subcategory string     `json:"subcategory"`
	Description string     `json:"description"`
	PublishedAt *time.Time `json:"published_at,omitempty"` // nil when the feed carried no date
	Author      string     `json:"author,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Quality     float64    `json:"quality_score"`
}

// EffectiveTime returns the published time, or fallback when the feed gave none.
func (a Article) EffectiveTime(fallback time.Time) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return fallback
}

// MediaRef is an image candidate attached to a feed entry.
type MediaRef struct {
	URL  string
	Type string
	Rel  string
}

// RawEntry is one parsed feed item in a dialect-independent shape. Every
// field may be empty; the normalizer decides what is usable.
type RawEntry struct {
	Title string
	Link  string

	// Text candidates, in order of preference.
	Summary     string
	Content     string
	Description string

	Author           string
	AuthorDetailName string
	Creator          string

	MediaContent   []MediaRef
	MediaThumbnail []MediaRef
	Enclosures     []MediaRef
	Links          []MediaRef

	Published *time.Time
	Updated   *time.Time
}

// RejectReason says why an entry was dropped during normalization.
type RejectReason string

const (
	RejectStale      RejectReason = "stale"
	RejectPaywalled  RejectReason = "paywalled"
	RejectMalformed  RejectReason = "malformed"
	RejectLowQuality RejectReason = "low_quality"
)

// RejectError is returned by Normalize for entries that do not qualify.
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("entry rejected: %s", e.Reason)
	}
	return fmt.Sprintf("entry rejected: %s: %s", e.Reason, e.Detail)
}

// ReasonOf extracts the rejection reason from err, if it is a rejection.
func ReasonOf(err error) (RejectReason, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

func reject(reason RejectReason, detail string) error {
	return &RejectError{Reason: reason, Detail: detail}
}
