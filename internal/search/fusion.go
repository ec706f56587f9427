package search

import (
	"regexp/syntax"
	"sort"

	"github.com/leindex/leindex/internal/errors"
	"github.com/leindex/leindex/internal/lexical"
	"github.com/leindex/leindex/internal/vectorindex"
)

// Weights is the three-axis hybrid scoring vector from spec §4.3:
// overall = w_sem*semantic + w_struct*structural + w_text*text.
type Weights struct {
	Semantic   float64
	Structural float64
	Text       float64
}

// DefaultWeights are spec §4.3's baseline (0.5, 0.3, 0.2).
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Structural: 0.3, Text: 0.2}
}

// ForIntent multiplies the base weights by fixed per-Intent factors rather
// than replacing the whole vector: HowWorks and WhereHandled scale one axis,
// Bottlenecks scales two, Semantic scales all three, and Text zeroes the
// semantic axis and doubles text (see DESIGN.md Open Question decision #2).
func (w Weights) ForIntent(intent Intent) Weights {
	switch intent {
	case IntentHowWorks:
		return Weights{Semantic: w.Semantic * 1.2, Structural: w.Structural, Text: w.Text}
	case IntentWhereHandled:
		return Weights{Semantic: w.Semantic, Structural: w.Structural, Text: w.Text * 1.5}
	case IntentBottlenecks:
		return Weights{Semantic: w.Semantic * 0.5, Structural: w.Structural * 2, Text: w.Text}
	case IntentSemantic:
		return Weights{Semantic: w.Semantic * 1.6, Structural: w.Structural * 0.5, Text: w.Text * 0.5}
	case IntentText:
		return Weights{Semantic: 0, Structural: w.Structural, Text: w.Text * 2}
	}
	return w
}

// Hit is one fused search result.
type Hit struct {
	SymbolID          uint64
	Overall           float64
	Semantic          float64
	Structural        float64
	Text              float64
	Complexity         int
	VectorUnavailable bool
}

// Engine fuses one project's lexical index, vector index, and structural
// signal source into the spec §4.3 operations.
type Engine struct {
	Lexical          *lexical.Index
	Vector           *vectorindex.Index // nil means the vector backend is unavailable
	StructuralScore  func(symbolID uint64) float64
	MaxQueryLength   int
}

// NewEngine wires a lexical index, an optional vector index, and a
// structural-score source into one fusion engine.
func NewEngine(lex *lexical.Index, vec *vectorindex.Index, structural func(uint64) float64) *Engine {
	if structural == nil {
		structural = func(uint64) float64 { return 0 }
	}
	return &Engine{Lexical: lex, Vector: vec, StructuralScore: structural, MaxQueryLength: 1024}
}

// LexicalSearch runs spec §4.3's lexical_search operation.
func (e *Engine) LexicalSearch(query string, kind lexical.QueryKind, filters lexical.Filters, k int) ([]Hit, error) {
	if err := e.validate(query); err != nil {
		return nil, err
	}
	lexHits := e.Lexical.Search(query, kind, filters, k, nil)
	return lexicalHitsToHits(lexHits), nil
}

// VectorSearch runs spec §4.3's vector_search operation. It returns
// Unavailable if no vector backend is configured.
func (e *Engine) VectorSearch(embedding []float32, filters lexical.Filters, k int) ([]Hit, error) {
	if e.Vector == nil {
		return nil, errors.New(errors.Unavailable, "search.vector_backend_unavailable", "vector backend is not configured")
	}
	results, err := e.Vector.Search(embedding, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{SymbolID: r.SymbolID, Semantic: r.Similarity, Overall: r.Similarity})
	}
	return hits, nil
}

// Hybrid runs spec §4.3's weighted fusion across lexical, vector, and
// structural signals, adjusted for Intent. When the vector backend is
// unavailable it degrades to lexical-only and sets VectorUnavailable on
// every returned Hit rather than erroring.
func (e *Engine) Hybrid(query string, intent Intent, embedding []float32, filters lexical.Filters, k int) ([]Hit, error) {
	if err := e.validate(query); err != nil {
		return nil, err
	}

	weights := DefaultWeights().ForIntent(intent)
	degraded := e.Vector == nil || embedding == nil

	lexHits := e.Lexical.Search(query, lexical.QueryCaseInsensitive, filters, 0, lexical.NewFuzzyMatcher(true, 0.8))
	textScore := make(map[uint64]float64, len(lexHits))
	complexity := make(map[uint64]int, len(lexHits))
	maxText := 0.0
	for _, h := range lexHits {
		textScore[h.SymbolID] = h.Score
		complexity[h.SymbolID] = h.Complexity
		if h.Score > maxText {
			maxText = h.Score
		}
	}

	semanticScore := make(map[uint64]float64)
	if !degraded {
		results, err := e.Vector.Search(embedding, 0)
		if err == nil {
			for _, r := range results {
				semanticScore[r.SymbolID] = r.Similarity
			}
		}
	}

	candidates := make(map[uint64]struct{}, len(textScore)+len(semanticScore))
	for id := range textScore {
		candidates[id] = struct{}{}
	}
	for id := range semanticScore {
		candidates[id] = struct{}{}
	}

	hits := make([]Hit, 0, len(candidates))
	for id := range candidates {
		text := normalize(textScore[id], maxText)
		semantic := semanticScore[id]
		structural := e.StructuralScore(id)
		overall := weights.Semantic*semantic + weights.Structural*structural + weights.Text*text
		hits = append(hits, Hit{
			SymbolID:          id,
			Overall:           overall,
			Semantic:          semantic,
			Structural:        structural,
			Text:              text,
			Complexity:        complexity[id],
			VectorUnavailable: degraded,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Overall != hits[j].Overall {
			return hits[i].Overall > hits[j].Overall
		}
		if hits[i].Complexity != hits[j].Complexity {
			return hits[i].Complexity < hits[j].Complexity
		}
		return hits[i].SymbolID < hits[j].SymbolID
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func normalize(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return score / max
}

func lexicalHitsToHits(lexHits []lexical.Hit) []Hit {
	hits := make([]Hit, len(lexHits))
	for i, h := range lexHits {
		hits[i] = Hit{SymbolID: h.SymbolID, Overall: h.Score, Text: h.Score, Complexity: h.Complexity}
	}
	return hits
}

// validate enforces spec §4.3's length and catastrophic-regex-backtracking
// rejection rules.
func (e *Engine) validate(query string) error {
	max := e.MaxQueryLength
	if max <= 0 {
		max = 1024
	}
	if len(query) > max {
		return errors.New(errors.InvalidInput, "search.query_too_long", "query exceeds the configured maximum length")
	}
	if isCatastrophicRegex(query) {
		return errors.New(errors.InvalidInput, "search.catastrophic_regex", "query's regex expansion risks catastrophic backtracking")
	}
	return nil
}

// isCatastrophicRegex statically flags patterns whose alternation depth or
// nested unbounded quantifiers are likely to cause catastrophic
// backtracking, without executing the pattern.
func isCatastrophicRegex(pattern string) bool {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return false // not a regex at all; nothing to flag
	}
	return hasNestedUnboundedQuantifier(re, false)
}

func hasNestedUnboundedQuantifier(re *syntax.Regexp, insideUnbounded bool) bool {
	isUnbounded := re.Op == syntax.OpStar || re.Op == syntax.OpPlus ||
		(re.Op == syntax.OpRepeat && re.Max == -1)

	if isUnbounded && insideUnbounded {
		return true
	}

	nextInside := insideUnbounded || isUnbounded
	for _, sub := range re.Sub {
		if hasNestedUnboundedQuantifier(sub, nextInside) {
			return true
		}
	}
	return false
}
