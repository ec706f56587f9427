package search

import (
	"testing"

	"github.com/leindex/leindex/internal/lexical"
	"github.com/leindex/leindex/internal/vectorindex"
)

func TestClassifyIntent(t *testing.T) {
	cases := map[string]Intent{
		"how does authentication work":       IntentHowWorks,
		"where is the retry logic handled":    IntentWhereHandled,
		"what is the bottleneck in indexing":  IntentBottlenecks,
		`"exact phrase"`:                      IntentText,
		"connection pooling and backpressure": IntentSemantic,
	}
	for text, want := range cases {
		if got := ClassifyIntent(text); got != want {
			t.Errorf("ClassifyIntent(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestWeightsForIntentBottlenecksRaisesStructural(t *testing.T) {
	base := DefaultWeights()
	bottleneck := base.ForIntent(IntentBottlenecks)
	if bottleneck.Structural <= base.Structural {
		t.Errorf("expected Bottlenecks intent to raise the structural weight")
	}
	if bottleneck.Text != base.Text {
		t.Errorf("expected Bottlenecks intent to leave the text weight untouched")
	}
}

func TestHybridDegradesToLexicalWithoutVectorBackend(t *testing.T) {
	idx := lexical.NewIndex(nil)
	idx.Upsert(lexical.Meta{SymbolID: 1, ProjectID: "p1"}, "connect", "", "", "a.go")
	e := NewEngine(idx, nil, nil)

	hits, err := e.Hybrid("connect", IntentWhereHandled, nil, lexical.Filters{}, 10)
	if err != nil {
		t.Fatalf("Hybrid: %v", err)
	}
	if len(hits) != 1 || !hits[0].VectorUnavailable {
		t.Fatalf("expected a degraded lexical-only hit, got %+v", hits)
	}
}

func TestHybridRanksSemanticAxisWithPopulatedVectorBackend(t *testing.T) {
	idx := lexical.NewIndex(nil)
	idx.Upsert(lexical.Meta{SymbolID: 1, ProjectID: "p1"}, "connect", "", "", "a.go")
	idx.Upsert(lexical.Meta{SymbolID: 2, ProjectID: "p1"}, "unrelated", "", "", "b.go")

	vec := vectorindex.New(vectorindex.DefaultConfig(3))
	if err := vec.Add(1, []float32{1, 0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := vec.Add(2, []float32{0, 1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	e := NewEngine(idx, vec, nil)
	hits, err := e.Hybrid("connect", IntentSemantic, []float32{1, 0, 0}, lexical.Filters{}, 10)
	if err != nil {
		t.Fatalf("Hybrid: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected both indexed symbols to come back from the populated vector backend, got %+v", hits)
	}
	var sawSemanticSignal bool
	for _, h := range hits {
		if h.VectorUnavailable {
			t.Fatalf("expected a populated vector backend to not degrade, got %+v", h)
		}
		if h.SymbolID == 1 && h.Semantic > 0 {
			sawSemanticSignal = true
		}
	}
	if !sawSemanticSignal {
		t.Fatalf("expected symbol 1's close embedding match to carry a nonzero semantic score, got %+v", hits)
	}
	if hits[0].SymbolID != 1 {
		t.Fatalf("expected symbol 1 (exact embedding match) to rank first, got %+v", hits)
	}
}

func TestValidateRejectsCatastrophicRegex(t *testing.T) {
	e := NewEngine(lexical.NewIndex(nil), nil, nil)
	_, err := e.LexicalSearch("(a+)+b", lexical.QueryExact, lexical.Filters{}, 10)
	if err == nil {
		t.Fatalf("expected a catastrophic-regex rejection")
	}
}

func TestValidateRejectsOverlongQuery(t *testing.T) {
	e := NewEngine(lexical.NewIndex(nil), nil, nil)
	e.MaxQueryLength = 8
	_, err := e.LexicalSearch("this query is far too long", lexical.QueryExact, lexical.Filters{}, 10)
	if err == nil {
		t.Fatalf("expected an overlong-query rejection")
	}
}
