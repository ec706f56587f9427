package lexical

import (
	"sort"
	"strings"
	"sync"
)

// Field names the symbol field a token was extracted from, used for the
// name > signature > docstring > path boost ordering spec §4.3 requires.
type Field uint8

const (
	FieldName Field = iota
	FieldSignature
	FieldDocstring
	FieldPath
)

var fieldBoost = map[Field]float64{
	FieldName:       4.0,
	FieldSignature:  2.0,
	FieldDocstring:  1.2,
	FieldPath:       1.0,
}

// Meta is the per-symbol metadata sidecar used to post-filter lexical and
// vector hits by project, file, language, kind, and complexity.
type Meta struct {
	SymbolID   uint64
	ProjectID  string
	FilePath   string
	Language   string
	Kind       string
	Complexity int
}

// Filters narrows a search to symbols matching every non-zero field.
type Filters struct {
	ProjectID  string
	Language   string
	Kind       string
	MaxComplexity int // 0 means unbounded
}

func (f Filters) match(m Meta) bool {
	if f.ProjectID != "" && f.ProjectID != m.ProjectID {
		return false
	}
	if f.Language != "" && f.Language != m.Language {
		return false
	}
	if f.Kind != "" && f.Kind != m.Kind {
		return false
	}
	if f.MaxComplexity > 0 && m.Complexity > f.MaxComplexity {
		return false
	}
	return true
}

type posting struct {
	symbolID uint64
	field    Field
}

// Index is the token -> postings lexical index for one process; it may
// hold symbols from multiple projects, disambiguated by Filters.ProjectID.
type Index struct {
	mu       sync.RWMutex
	postings map[string][]posting
	meta     map[uint64]Meta
	stemmer  *Stemmer
}

// NewIndex returns an empty Index. A nil stemmer disables stemming.
func NewIndex(stemmer *Stemmer) *Index {
	if stemmer == nil {
		stemmer = NewStemmer(false, 3)
	}
	return &Index{
		postings: make(map[string][]posting),
		meta:     make(map[uint64]Meta),
		stemmer:  stemmer,
	}
}

// Upsert indexes one symbol's field text, replacing any prior entry for the
// same symbol id.
func (idx *Index) Upsert(m Meta, name, signature, docstring, path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(m.SymbolID)
	idx.meta[m.SymbolID] = m

	idx.indexFieldLocked(m.SymbolID, FieldName, Tokenize(name))
	idx.indexFieldLocked(m.SymbolID, FieldSignature, Tokenize(signature))
	idx.indexFieldLocked(m.SymbolID, FieldDocstring, Tokenize(docstring))
	idx.indexFieldLocked(m.SymbolID, FieldPath, TokenizePath(path))
}

func (idx *Index) indexFieldLocked(symbolID uint64, field Field, tokens []string) {
	for _, t := range tokens {
		t = idx.stemmer.Stem(t)
		idx.postings[t] = append(idx.postings[t], posting{symbolID: symbolID, field: field})
	}
}

// Remove drops a symbol from the index.
func (idx *Index) Remove(symbolID uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(symbolID)
}

func (idx *Index) removeLocked(symbolID uint64) {
	if _, ok := idx.meta[symbolID]; !ok {
		return
	}
	delete(idx.meta, symbolID)
	for token, plist := range idx.postings {
		kept := plist[:0]
		for _, p := range plist {
			if p.symbolID != symbolID {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(idx.postings, token)
		} else {
			idx.postings[token] = kept
		}
	}
}

// Hit is one scored search result.
type Hit struct {
	SymbolID   uint64
	Score      float64
	Complexity int
}

// QueryKind selects how Search interprets the query string.
type QueryKind uint8

const (
	QueryExact QueryKind = iota
	QueryCaseInsensitive
	QuerySubstring
	QueryFuzzy
)

// Search runs one lexical query shape over the index, scoring by term
// frequency across matched tokens weighted by field boost, with a fuzzy
// penalty applied when kind is QueryFuzzy. Results are deterministically
// ordered: higher score, then lower complexity, then lower symbol_id.
func (idx *Index) Search(query string, kind QueryKind, filters Filters, k int, fuzzy *FuzzyMatcher) []Hit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make(map[uint64]float64)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	switch kind {
	case QueryExact, QueryCaseInsensitive:
		term := query
		if kind == QueryCaseInsensitive {
			term = strings.ToLower(term)
		}
		idx.accumulate(scores, term, 1.0)
	case QuerySubstring:
		needle := strings.ToLower(query)
		for token, plist := range idx.postings {
			if strings.Contains(token, needle) {
				for _, p := range plist {
					scores[p.symbolID] += fieldBoost[p.field]
				}
			}
		}
	case QueryFuzzy:
		if fuzzy == nil {
			fuzzy = NewFuzzyMatcher(true, 0.80)
		}
		needle := strings.ToLower(query)
		for token, plist := range idx.postings {
			sim := fuzzy.Similarity(needle, token)
			if sim < fuzzy.Threshold {
				continue
			}
			for _, p := range plist {
				scores[p.symbolID] += fieldBoost[p.field] * sim
			}
		}
	}

	return idx.rank(scores, filters, k)
}

func (idx *Index) accumulate(scores map[uint64]float64, term string, weight float64) {
	for _, p := range idx.postings[term] {
		scores[p.symbolID] += fieldBoost[p.field] * weight
	}
}

func (idx *Index) rank(scores map[uint64]float64, filters Filters, k int) []Hit {
	hits := make([]Hit, 0, len(scores))
	for symbolID, score := range scores {
		m, ok := idx.meta[symbolID]
		if !ok || !filters.match(m) {
			continue
		}
		hits = append(hits, Hit{SymbolID: symbolID, Score: score, Complexity: m.Complexity})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Complexity != hits[j].Complexity {
			return hits[i].Complexity < hits[j].Complexity
		}
		return hits[i].SymbolID < hits[j].SymbolID
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
