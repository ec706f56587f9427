package search

import (
	"fmt"
	"strings"

	"github.com/leindex/leindex/internal/lexical"
	"github.com/leindex/leindex/internal/pdg"
)

// BundleEntry is one surfaced symbol in an AnalysisBundle, per spec §4.3/§6.
type BundleEntry struct {
	SymbolID uint64
	Excerpt  string
	Reason   string
}

// BundleRelation is one edge surfaced alongside a bundle's entries.
type BundleRelation struct {
	From     uint64
	To       uint64
	EdgeType string
}

// AnalysisBundle is nl_query's (and the orchestrator's `analyze` op's)
// response shape.
type AnalysisBundle struct {
	Entries         []BundleEntry
	Relations       []BundleRelation
	FormattedOutput string
	TokensUsed      int
}

// NLQuery classifies text, dispatches to the matching search shape, and for
// HowWorks intents expands the best hit's neighborhood via the PDG's
// gravity expansion, per spec §4.3's nl_query operation.
func (e *Engine) NLQuery(text, projectID string, budget int, embed func(string) []float32, graph *pdg.Graph, excerptOf func(uint64) (string, string)) (AnalysisBundle, error) {
	intent := ClassifyIntent(text)
	filters := lexicalFiltersForProject(projectID)

	var embedding []float32
	if embed != nil {
		embedding = embed(text)
	}

	hits, err := e.Hybrid(text, intent, embedding, filters, 10)
	if err != nil {
		return AnalysisBundle{}, err
	}
	if len(hits) == 0 {
		return AnalysisBundle{FormattedOutput: "no matching symbols found"}, nil
	}

	if intent != IntentHowWorks || graph == nil {
		return bundleFromHits(hits, budget, excerptOf, "matched query"), nil
	}

	best := hits[0]
	nodeID, ok := graph.NodeBySymbol(best.SymbolID)
	if !ok {
		return bundleFromHits(hits, budget, excerptOf, "matched query"), nil
	}

	semanticOf := func(id uint32) float64 {
		if n, ok := graph.Node(id); ok {
			for _, h := range hits {
				if h.SymbolID == n.SymbolID {
					return h.Semantic
				}
			}
		}
		return 0
	}
	expansion := graph.ExpandContext([]uint32{nodeID}, budget, pdg.DefaultGravityConfig(), semanticOf)

	bundle := AnalysisBundle{TokensUsed: expansion.BudgetSpent}
	for _, s := range expansion.Entries {
		excerpt, _ := excerptOf(s.SymbolID)
		bundle.Entries = append(bundle.Entries, BundleEntry{
			SymbolID: s.SymbolID,
			Excerpt:  excerpt,
			Reason:   fmt.Sprintf("distance %d from %d, relevance %.3f", s.Distance, best.SymbolID, s.Relevance),
		})
	}
	bundle.FormattedOutput = formatBundle(bundle.Entries)
	return bundle, nil
}

func bundleFromHits(hits []Hit, budget int, excerptOf func(uint64) (string, string), reason string) AnalysisBundle {
	bundle := AnalysisBundle{}
	spent := 0
	for _, h := range hits {
		excerpt, _ := excerptOf(h.SymbolID)
		cost := len(excerpt)/4 + 8
		if spent+cost > budget {
			break
		}
		spent += cost
		bundle.Entries = append(bundle.Entries, BundleEntry{SymbolID: h.SymbolID, Excerpt: excerpt, Reason: reason})
	}
	bundle.TokensUsed = spent
	bundle.FormattedOutput = formatBundle(bundle.Entries)
	return bundle
}

func formatBundle(entries []BundleEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "symbol %d: %s\n", e.SymbolID, e.Reason)
	}
	return b.String()
}

func lexicalFiltersForProject(projectID string) lexical.Filters {
	return lexical.Filters{ProjectID: projectID}
}
