// Package category assigns normalized articles to digest categories using
// the rule table from the catalog.
package category

import (
	"fmt"
	"strings"

	"github.com/deusflow/dailydigest/internal/catalog"
	"github.com/deusflow/dailydigest/internal/news"
)

// Predicate decides whether an article's search text belongs to a category.
// Text is already lower-cased.
type Predicate interface {
	Match(text string) bool
}

type passAll struct{}

func (passAll) Match(string) bool { return true }

type includeAny struct {
	include []string
}

func (p includeAny) Match(text string) bool {
	return containsAny(text, p.include)
}

type includeAnyExcludeAny struct {
	include []string
	exclude []string
}

func (p includeAnyExcludeAny) Match(text string) bool {
	return containsAny(text, p.include) && !containsAny(text, p.exclude)
}

// predicateKinds maps every supported kind to its constructor. Adding a kind
// means adding an entry here; call sites never branch on category names.
var predicateKinds = map[catalog.PredicateKind]func(catalog.Predicate) Predicate{
	catalog.PredicateNone: func(catalog.Predicate) Predicate { return passAll{} },
	catalog.PredicateIncludeAny: func(p catalog.Predicate) Predicate {
		return includeAny{include: lowerAll(p.Include)}
	},
	catalog.PredicateIncludeAnyExcludeAny: func(p catalog.Predicate) Predicate {
		return includeAnyExcludeAny{include: lowerAll(p.Include), exclude: lowerAll(p.Exclude)}
	},
}

// Compile builds the predicate for a rule. A nil predicate passes everything.
func Compile(def *catalog.Predicate) (Predicate, error) {
	if def == nil {
		return passAll{}, nil
	}
	if def.Kind == "" || def.Kind == catalog.PredicateNone {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", catalog.ErrInvalidCatalog, err)
		}
	}
	kind := def.Kind
	if kind == "" {
		kind = catalog.PredicateNone
	}
	build, ok := predicateKinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown predicate kind %q", catalog.ErrInvalidCatalog, def.Kind)
	}
	return build(*def), nil
}

type rule struct {
	name          string
	subcategories map[string]struct{}
	predicate     Predicate
}

// Bucket is the set of articles matched to one category, in input order.
type Bucket struct {
	Category string
	Articles []news.Article
}

// Matcher holds the compiled rule table. It is immutable and safe for
// concurrent use.
type Matcher struct {
	rules []rule
}

func NewMatcher(rules []catalog.CategoryRule) (*Matcher, error) {
	m := &Matcher{rules: make([]rule, 0, len(rules))}
	for _, r := range rules {
		pred, err := Compile(r.Predicate)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", r.Name, err)
		}
		subs := make(map[string]struct{}, len(r.Subcategories))
		for _, s := range r.Subcategories {
			subs[s] = struct{}{}
		}
		m.rules = append(m.rules, rule{name: r.Name, subcategories: subs, predicate: pred})
	}
	return m, nil
}

// Categories returns the category names in rule order.
func (m *Matcher) Categories() []string {
	names := make([]string, len(m.rules))
	for i, r := range m.rules {
		names[i] = r.name
	}
	return names
}

// Match returns one bucket per rule, in rule order. Categories are matched
// independently, so an article can land in several buckets or none.
func (m *Matcher) Match(articles []news.Article) []Bucket {
	buckets := make([]Bucket, len(m.rules))
	for i, r := range m.rules {
		buckets[i] = Bucket{Category: r.name, Articles: []news.Article{}}
	}
	for _, a := range articles {
		text := SearchText(a)
		for i, r := range m.rules {
			if r.matches(a.Subcategory, text) {
				buckets[i].Articles = append(buckets[i].Articles, a)
			}
		}
	}
	return buckets
}

// CategoriesFor lists the categories a single article falls into.
func (m *Matcher) CategoriesFor(a news.Article) []string {
	text := SearchText(a)
	var out []string
	for _, r := range m.rules {
		if r.matches(a.Subcategory, text) {
			out = append(out, r.name)
		}
	}
	return out
}

func (r rule) matches(subcategory, text string) bool {
	if _, ok := r.subcategories[subcategory]; !ok {
		return false
	}
	return r.predicate.Match(text)
}

// SearchText is the lower-cased title and description keywords are matched against.
func SearchText(a news.Article) string {
	return strings.ToLower(a.Title + " " + a.Description)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
