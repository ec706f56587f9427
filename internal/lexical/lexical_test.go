package lexical

import (
	"reflect"
	"testing"
)

func TestTokenizeCamelCaseSnakeCaseAndDigits(t *testing.T) {
	cases := map[string][]string{
		"getUserByID":        {"get", "user", "by", "id"},
		"parse_http_request": {"parse", "http", "request"},
		"HTML2PDF":           {"html", "2", "pdf"},
		"v2Handler":          {"v", "2", "handler"},
	}
	for in, want := range cases {
		got := Tokenize(in)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Tokenize(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTokenizePathKeepsExtensionDistinct(t *testing.T) {
	got := TokenizePath("internal/search/hybrid_ranker.go")
	found := false
	for _, tok := range got {
		if tok == "go" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected extension token \"go\" in %v", got)
	}
}

func TestIndexExactSearchRanksByFieldBoost(t *testing.T) {
	idx := NewIndex(nil)
	idx.Upsert(Meta{SymbolID: 1, ProjectID: "p1", Kind: "function"}, "parse", "", "", "a.go")
	idx.Upsert(Meta{SymbolID: 2, ProjectID: "p1", Kind: "function"}, "other", "call parse(x)", "", "b.go")

	hits := idx.Search("parse", QueryExact, Filters{}, 10, nil)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].SymbolID != 1 {
		t.Errorf("expected the name match to outrank the signature match, got %+v", hits)
	}
}

func TestIndexFiltersByProject(t *testing.T) {
	idx := NewIndex(nil)
	idx.Upsert(Meta{SymbolID: 1, ProjectID: "p1"}, "connect", "", "", "a.go")
	idx.Upsert(Meta{SymbolID: 2, ProjectID: "p2"}, "connect", "", "", "b.go")

	hits := idx.Search("connect", QueryExact, Filters{ProjectID: "p1"}, 10, nil)
	if len(hits) != 1 || hits[0].SymbolID != 1 {
		t.Fatalf("expected only p1's symbol, got %+v", hits)
	}
}

func TestIndexFuzzySearchToleratesTypos(t *testing.T) {
	idx := NewIndex(nil)
	idx.Upsert(Meta{SymbolID: 1, ProjectID: "p1"}, "authenticate", "", "", "a.go")

	hits := idx.Search("authentcate", QueryFuzzy, Filters{}, 10, NewFuzzyMatcher(true, 0.80))
	if len(hits) != 1 {
		t.Fatalf("expected the typo'd query to still match, got %+v", hits)
	}
}

func TestIndexRemove(t *testing.T) {
	idx := NewIndex(nil)
	idx.Upsert(Meta{SymbolID: 1, ProjectID: "p1"}, "widget", "", "", "a.go")
	idx.Remove(1)

	hits := idx.Search("widget", QueryExact, Filters{}, 10, nil)
	if len(hits) != 0 {
		t.Fatalf("expected no hits after removal, got %+v", hits)
	}
}

func TestStemmerNormalizesVariants(t *testing.T) {
	s := NewStemmer(true, 3)
	if s.Stem("authentication") != s.Stem("authenticate") {
		t.Errorf("expected authentication and authenticate to share a stem")
	}
}
