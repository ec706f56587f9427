// Package vectorindex wraps github.com/coder/hnsw into a per-project
// approximate nearest-neighbor index over symbol embeddings, per spec
// §4.3's vector index requirements.
package vectorindex

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/leindex/leindex/internal/errors"
)

// Config tunes one project's HNSW graph. Defaults target sub-100ms P95
// search over up to ~1e6 vectors per spec §4.3.
type Config struct {
	Dimension      int
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultConfig returns the spec's baseline tuning for a given dimension.
func DefaultConfig(dimension int) Config {
	return Config{
		Dimension:      dimension,
		M:              16,
		EfConstruction: 200,
		EfSearch:       64,
	}
}

// Index is one project's vector index. Deletes are tombstoned rather than
// applied to the underlying graph immediately, since hnsw graphs degrade
// under frequent structural deletes; Compact rebuilds the graph from the
// surviving vectors once tombstones accumulate.
type Index struct {
	mu        sync.RWMutex
	cfg       Config
	graph     *hnsw.Graph[uint64]
	vectors   map[uint64][]float32 // retained so Compact can rebuild
	tombstone map[uint64]struct{}
}

// New returns an empty Index for one project's embedding dimension.
func New(cfg Config) *Index {
	g := hnsw.NewGraph[uint64]()
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Distance = hnsw.CosineDistance
	return &Index{
		cfg:       cfg,
		graph:     g,
		vectors:   make(map[uint64][]float32),
		tombstone: make(map[uint64]struct{}),
	}
}

// Add inserts or replaces a symbol's embedding. It rejects vectors whose
// dimension does not match the index's configured D, per spec §4.3's
// validation rule.
func (idx *Index) Add(symbolID uint64, embedding []float32) error {
	if len(embedding) != idx.cfg.Dimension {
		return errors.New(errors.InvalidInput, "vectorindex.dimension_mismatch",
			"embedding dimension does not match the project's configured dimension")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.tombstone, symbolID)
	idx.vectors[symbolID] = embedding
	idx.graph.Add(hnsw.MakeNode(symbolID, embedding))
	return nil
}

// Delete tombstones a symbol's vector; it is excluded from search results
// immediately but the graph structure is only rebuilt on Compact.
func (idx *Index) Delete(symbolID uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tombstone[symbolID] = struct{}{}
	delete(idx.vectors, symbolID)
}

// Result is one nearest-neighbor hit, with cosine similarity in [0,1]
// (1 - cosine distance, negative values clamped to 0) per spec §4.3.
type Result struct {
	SymbolID   uint64
	Similarity float64
}

// Search returns up to k nearest neighbors of query, excluding tombstoned
// vectors. k<=0 means unlimited, matching the lexical.Index convention:
// it returns every live vector ranked by similarity. It returns an error
// if query's dimension mismatches the index.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != idx.cfg.Dimension {
		return nil, errors.New(errors.InvalidInput, "vectorindex.dimension_mismatch",
			"query embedding dimension does not match the project's configured dimension")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	unlimited := k <= 0

	// Over-fetch to compensate for tombstoned results the graph doesn't
	// yet know to exclude. An unlimited search has no k to over-fetch
	// from, so it asks the graph for every node it holds (live + still-
	// tombstoned) directly.
	fetch := k + len(idx.tombstone)
	if unlimited || fetch < k {
		fetch = len(idx.vectors) + len(idx.tombstone)
	}
	neighbors := idx.graph.Search(query, fetch)

	results := make([]Result, 0, len(neighbors))
	for _, n := range neighbors {
		if _, dead := idx.tombstone[n.Key]; dead {
			continue
		}
		similarity := 1 - hnsw.CosineDistance(query, n.Value)
		if similarity < 0 {
			similarity = 0
		}
		results = append(results, Result{
			SymbolID:   n.Key,
			Similarity: similarity,
		})
		if !unlimited && len(results) == k {
			break
		}
	}
	return results, nil
}

// Len returns the number of live (non-tombstoned) vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Compact rebuilds the graph from scratch using only live vectors,
// reclaiming space occupied by tombstoned entries. Callers should run this
// periodically rather than after every delete.
func (idx *Index) Compact() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	g := hnsw.NewGraph[uint64]()
	g.M = idx.cfg.M
	g.EfSearch = idx.cfg.EfSearch
	g.Distance = hnsw.CosineDistance
	for id, vec := range idx.vectors {
		g.Add(hnsw.MakeNode(id, vec))
	}
	idx.graph = g
	idx.tombstone = make(map[uint64]struct{})
}
