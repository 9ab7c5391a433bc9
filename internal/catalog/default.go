package catalog

// Default returns the built-in catalog: six international sources and the
// nine digest categories.
func Default() *Catalog {
	return &Catalog{
		Sources: []Source{
			{
				Name:    "BBC News",
				BaseURL: "https://www.bbc.com",
				Feeds: map[string]string{
					"international": "http://feeds.bbci.co.uk/news/world/rss.xml",
					"technology":    "http://feeds.bbci.co.uk/news/technology/rss.xml",
					"europe":        "http://feeds.bbci.co.uk/news/world/europe/rss.xml",
				},
			},
			{
				Name:    "Reuters",
				BaseURL: "https://www.reuters.com",
				Feeds: map[string]string{
					"international": "https://www.reutersagency.com/feed/?best-topics=international",
					"technology":    "https://www.reutersagency.com/feed/?best-topics=tech",
					"business":      "https://www.reutersagency.com/feed/?best-topics=business-finance",
				},
			},
			{
				Name:    "Associated Press",
				BaseURL: "https://apnews.com",
				Feeds: map[string]string{
					"international": "https://apnews.com/apf-intlnews/feed",
					"technology":    "https://apnews.com/apf-technology/feed",
					"sports":        "https://apnews.com/apf-sports/feed",
					"soccer":        "https://apnews.com/apf-soccer/feed",
				},
			},
			{
				Name:    "France 24",
				BaseURL: "https://www.france24.com",
				Feeds: map[string]string{
					"international": "https://www.france24.com/en/rss",
					"europe":        "https://www.france24.com/en/europe/rss",
					"technology":    "https://www.france24.com/en/technology/rss",
				},
			},
			{
				Name:    "DW",
				BaseURL: "https://www.dw.com",
				Feeds: map[string]string{
					"international": "https://rss.dw.com/rdf/rss-en-all",
					"europe":        "https://rss.dw.com/rdf/rss-en-eu",
					"germany":       "https://rss.dw.com/rdf/rss-en-ger",
				},
			},
			{
				Name:    "elDiario.es",
				BaseURL: "https://www.eldiario.es",
				Feeds: map[string]string{
					"spain":         "https://www.eldiario.es/rss/",
					"international": "https://www.eldiario.es/internacional/rss",
					"technology":    "https://www.eldiario.es/tecnologia/rss",
				},
			},
		},
		Categories: []CategoryRule{
			{Name: "International News", Subcategories: []string{"international"}},
			{
				Name:          "Portugal",
				Subcategories: []string{"portugal", "europe"},
				Predicate:     includeAny("portugal", "portuguese", "lisbon", "porto"),
			},
			{
				Name:          "Spain",
				Subcategories: []string{"spain", "europe"},
				Predicate:     includeAny("spain", "spanish", "madrid", "barcelona", "españa"),
			},
			{
				Name:          "Germany",
				Subcategories: []string{"germany", "europe"},
				Predicate:     includeAny("germany", "german", "berlin", "munich", "deutschland"),
			},
			{
				Name:          "Japan",
				Subcategories: []string{"japan", "international"},
				Predicate:     includeAny("japan", "japanese", "tokyo", "nippon"),
			},
			{Name: "Technology", Subcategories: []string{"technology", "tech"}},
			{Name: "Soccer", Subcategories: []string{"soccer", "football"}},
			{
				Name:          "US Sports",
				Subcategories: []string{"sports"},
				Predicate: &Predicate{
					Kind: PredicateIncludeAnyExcludeAny,
					Include: []string{
						"nfl", "nba", "mlb", "football", "basketball", "baseball",
						"touchdown", "quarterback", "lakers", "yankees",
					},
					Exclude: []string{
						"soccer", "premier league", "la liga", "bundesliga", "serie a",
						"champions league", "fifa", "uefa", "world cup",
					},
				},
			},
			{
				Name:          "Expat/Immigration",
				Subcategories: []string{"europe", "international"},
				Predicate: includeAny(
					"expat", "immigration", "visa", "residence", "emigrat",
					"moving to", "living in", "relocat",
				),
			},
		},
	}
}

func includeAny(keywords ...string) *Predicate {
	return &Predicate{Kind: PredicateIncludeAny, Include: keywords}
}
