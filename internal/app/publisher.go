package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/deusflow/dailydigest/internal/digest"
)

// Publisher hands a finished digest to a persistence or delivery target.
type Publisher interface {
	Publish(ctx context.Context, d *digest.Digest) error
}

// MultiPublisher publishes to every target, even when an earlier one fails.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, d *digest.Digest) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SummaryPublisher prints a console overview of the digest.
type SummaryPublisher struct {
	w       io.Writer
	preview int // titles shown per category
}

func NewSummaryPublisher(w io.Writer, preview int) *SummaryPublisher {
	return &SummaryPublisher{w: w, preview: preview}
}

func (s *SummaryPublisher) Publish(_ context.Context, d *digest.Digest) error {
	_, err := io.WriteString(s.w, formatDigest(d, s.preview))
	return err
}

func formatDigest(d *digest.Digest, preview int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Digest %s (%s edition, %s)\n", d.RunID, d.Edition, d.RunAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Feeds: %d/%d ok, entries: %d, accepted: %d, selected: %d\n",
		d.Stats.FeedsOK, d.Stats.FeedsTotal, d.Stats.EntriesSeen, d.Stats.ArticlesAccepted, d.Stats.ArticlesSelected)
	b.WriteString(strings.Repeat("-", 60) + "\n")

	for _, c := range d.Categories {
		fmt.Fprintf(&b, "%s (%d)\n", c.Name, len(c.Articles))
		for i, a := range c.Articles {
			if i >= preview {
				break
			}
			fmt.Fprintf(&b, "  %d. [%.2f] %s\n     %s\n", i+1, a.Quality, a.Title, a.URL)
		}
	}

	for _, f := range d.Stats.Failures {
		fmt.Fprintf(&b, "! %s/%s failed: %s\n", f.Source, f.Subcategory, f.Error)
	}
	return b.String()
}
