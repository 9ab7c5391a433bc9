package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Len(t, c.Sources, 6)
	assert.Len(t, c.Categories, 9)
}

func TestFeedsOrderIsDeterministic(t *testing.T) {
	c := &Catalog{
		Sources: []Source{
			{Name: "B", Feeds: map[string]string{"zeta": "https://b.example/z", "alpha": "https://b.example/a"}},
			{Name: "A", Feeds: map[string]string{"mid": "https://a.example/m"}},
		},
	}

	feeds := c.Feeds()
	require.Len(t, feeds, 3)
	assert.Equal(t, Feed{Source: "B", Subcategory: "alpha", URL: "https://b.example/a"}, feeds[0])
	assert.Equal(t, Feed{Source: "B", Subcategory: "zeta", URL: "https://b.example/z"}, feeds[1])
	assert.Equal(t, Feed{Source: "A", Subcategory: "mid", URL: "https://a.example/m"}, feeds[2])
}

func TestParseYAML(t *testing.T) {
	doc := `
sources:
  - name: Example
    base_url: https://example.com
    feeds:
      europe: https://example.com/europe.xml
categories:
  - name: Portugal
    subcategories: [europe]
    predicate:
      kind: include_any
      include: [portugal, lisbon]
  - name: Everything
    subcategories: [europe]
`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, c.Categories, 2)
	require.NotNil(t, c.Categories[0].Predicate)
	assert.Equal(t, PredicateIncludeAny, c.Categories[0].Predicate.Kind)
	assert.Equal(t, []string{"portugal", "lisbon"}, c.Categories[0].Predicate.Include)
	assert.Nil(t, c.Categories[1].Predicate)
}

func TestLoadBundledCatalog(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "catalog.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("bundled catalog not present")
	}
	c, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Feeds())
}

func TestValidateRejectsMalformedCatalogs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `{}`},
		{"bad yaml", "sources: [\n"},
		{"relative feed url", `
sources:
  - name: A
    feeds: {europe: /feed.xml}
categories:
  - name: C
    subcategories: [europe]
`},
		{"duplicate category", `
sources:
  - name: A
    feeds: {europe: https://a.example/feed}
categories:
  - name: C
    subcategories: [europe]
  - name: C
    subcategories: [europe]
`},
		{"unknown predicate", `
sources:
  - name: A
    feeds: {europe: https://a.example/feed}
categories:
  - name: C
    subcategories: [europe]
    predicate: {kind: regex, include: [x]}
`},
		{"exclusion without exclude list", `
sources:
  - name: A
    feeds: {sports: https://a.example/feed}
categories:
  - name: US Sports
    subcategories: [sports]
    predicate: {kind: include_any_exclude_any, include: [nfl]}
`},
		{"keywords without kind", `
sources:
  - name: A
    feeds: {europe: https://a.example/feed}
categories:
  - name: Portugal
    subcategories: [europe]
    predicate: {include: [portugal]}
`},
		{"none kind with exclude keywords", `
sources:
  - name: A
    feeds: {europe: https://a.example/feed}
categories:
  - name: Europe
    subcategories: [europe]
    predicate: {kind: none, exclude: [football]}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), "error %v should wrap ErrInvalidCatalog", err)
		})
	}
}

func TestPredicateWithoutKeywordsPassesValidation(t *testing.T) {
	assert.NoError(t, (&Predicate{}).Validate())
	assert.NoError(t, (&Predicate{Kind: PredicateNone, Include: []string{" "}}).Validate())
}

func TestUnservedSubcategories(t *testing.T) {
	c := &Catalog{
		Sources: []Source{
			{Name: "A", Feeds: map[string]string{"europe": "https://a.example/eu"}},
			{Name: "B", Feeds: map[string]string{"sports": "https://b.example/s"}},
		},
		Categories: []CategoryRule{
			{Name: "Portugal", Subcategories: []string{"portugal", "europe"}},
			{Name: "Sports", Subcategories: []string{"sports"}},
		},
	}

	assert.Equal(t, map[string][]string{"Portugal": {"portugal"}}, c.Unserved())
	assert.Equal(t, []string{"portugal"}, Default().Unserved()["Portugal"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
