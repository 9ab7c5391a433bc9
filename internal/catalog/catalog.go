// Package catalog holds the static source catalog and category rules a
// curation run is configured with.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog marks a malformed source catalog or rule table. A run
// cannot produce meaningful output from it and must abort before fetching.
var ErrInvalidCatalog = errors.New("invalid catalog")

// PredicateKind tags the keyword logic attached to a category rule.
type PredicateKind string

const (
	PredicateNone                 PredicateKind = "none"
	PredicateIncludeAny           PredicateKind = "include_any"
	PredicateIncludeAnyExcludeAny PredicateKind = "include_any_exclude_any"
)

// Source describes one publisher and its feed endpoints.
type Source struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	// Feeds maps a sub-category label to a feed endpoint URL.
	Feeds map[string]string `yaml:"feeds"`
}

// Predicate is the keyword filter of a category rule.
type Predicate struct {
	Kind    PredicateKind `yaml:"kind"`
	Include []string      `yaml:"include"`
	Exclude []string      `yaml:"exclude"`
}

// CategoryRule maps eligible sub-categories onto one digest category.
type CategoryRule struct {
	Name          string     `yaml:"name"`
	Subcategories []string   `yaml:"subcategories"`
	Predicate     *Predicate `yaml:"predicate"`
}

// Feed is a single endpoint to fetch, flattened out of a Source.
type Feed struct {
	Source      string
	Subcategory string
	URL         string
}

// Catalog is the YAML document:
//
//	sources:
//	  - name: BBC News
//	    feeds:
//	      international: http://...
//	categories:
//	  - name: Portugal
//	    subcategories: [portugal, europe]
//	    predicate: {kind: include_any, include: [portugal, lisbon]}
type Catalog struct {
	Sources    []Source       `yaml:"sources"`
	Categories []CategoryRule `yaml:"categories"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Feeds lists every endpoint in source order, sub-categories sorted by label.
func (c *Catalog) Feeds() []Feed {
	var feeds []Feed
	for _, src := range c.Sources {
		labels := make([]string, 0, len(src.Feeds))
		for label := range src.Feeds {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			feeds = append(feeds, Feed{Source: src.Name, Subcategory: label, URL: src.Feeds[label]})
		}
	}
	return feeds
}

// Subcategories returns the set of labels provided by at least one source.
func (c *Catalog) Subcategories() map[string]struct{} {
	set := make(map[string]struct{})
	for _, src := range c.Sources {
		for label := range src.Feeds {
			set[label] = struct{}{}
		}
	}
	return set
}

// Unserved lists, per category, the sub-categories no source provides.
// Such labels never contribute articles; they are a warning, not an error.
func (c *Catalog) Unserved() map[string][]string {
	served := c.Subcategories()
	out := make(map[string][]string)
	for _, rule := range c.Categories {
		for _, label := range rule.Subcategories {
			if _, ok := served[label]; !ok {
				out[rule.Name] = append(out[rule.Name], label)
			}
		}
	}
	return out
}

// Validate reports every problem found, joined, each wrapping ErrInvalidCatalog.
func (c *Catalog) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidCatalog, fmt.Sprintf(format, args...)))
	}

	if len(c.Sources) == 0 {
		fail("no sources configured")
	}
	seenSources := make(map[string]bool)
	for i, src := range c.Sources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			fail("source #%d has no name", i+1)
			continue
		}
		if seenSources[name] {
			fail("duplicate source %q", name)
		}
		seenSources[name] = true
		if len(src.Feeds) == 0 {
			fail("source %q has no feeds", name)
		}
		for label, feedURL := range src.Feeds {
			if strings.TrimSpace(label) == "" {
				fail("source %q has a feed with an empty sub-category", name)
			}
			if err := validateFeedURL(feedURL); err != nil {
				fail("source %q feed %q: %v", name, label, err)
			}
		}
	}

	if len(c.Categories) == 0 {
		fail("no categories configured")
	}
	seenCategories := make(map[string]bool)
	for i, rule := range c.Categories {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			fail("category #%d has no name", i+1)
			continue
		}
		if seenCategories[name] {
			fail("duplicate category %q", name)
		}
		seenCategories[name] = true
		if len(rule.Subcategories) == 0 {
			fail("category %q has no sub-categories", name)
		}
		if rule.Predicate != nil {
			if err := rule.Predicate.Validate(); err != nil {
				fail("category %q: %v", name, err)
			}
		}
	}

	return errors.Join(errs...)
}

// Validate checks that the keyword lists fit the kind. A kind of none, or
// no kind at all, must not carry keywords.
func (p *Predicate) Validate() error {
	switch p.Kind {
	case PredicateNone, "":
		if len(nonBlank(p.Include)) > 0 || len(nonBlank(p.Exclude)) > 0 {
			return fmt.Errorf("predicate kind %q takes no keywords, set kind to %s or %s",
				p.Kind, PredicateIncludeAny, PredicateIncludeAnyExcludeAny)
		}
	case PredicateIncludeAny:
		if len(nonBlank(p.Include)) == 0 {
			return fmt.Errorf("predicate %s needs include keywords", p.Kind)
		}
	case PredicateIncludeAnyExcludeAny:
		if len(nonBlank(p.Include)) == 0 || len(nonBlank(p.Exclude)) == 0 {
			return fmt.Errorf("predicate %s needs include and exclude keywords", p.Kind)
		}
	default:
		return fmt.Errorf("unknown predicate kind %q", p.Kind)
	}
	return nil
}

func validateFeedURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
