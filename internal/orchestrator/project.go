package orchestrator

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/leindex/leindex/internal/lexical"
	"github.com/leindex/leindex/internal/pdg"
	"github.com/leindex/leindex/internal/search"
	"github.com/leindex/leindex/internal/vectorindex"
)

// cacheState classifies what's currently resident for a project, so the
// memory governor and cache-warming operations can act on a project
// without guessing from nil checks scattered across call sites.
type cacheState uint8

const (
	cacheWarm    cacheState = iota // PDG + vector index resident
	cachePDGOnly                   // PDG resident, vector index spilled
	cacheSearchOnly                // vector index resident, PDG spilled
	cacheCold                       // both spilled; only storage rows remain
)

// Project is one project's full in-memory working set: the PDG, the
// lexical and vector indices, and the fused search engine over them. Any
// of PDG/Vector may be nil ("spilled") per the memory governor's
// spill/evict contract; Lexical is always resident since rebuilding it is
// comparatively cheap and it has no meaningful "spilled" state.
type Project struct {
	mu sync.RWMutex

	ID         string
	RootPath   string
	Generation int64

	PDG     *pdg.Graph
	Lexical *lexical.Index
	Vector  *vectorindex.Index
	Engine  *search.Engine

	lastAccess time.Time
	state      cacheState

	// fileHashes is a pure in-memory fast path over the slower per-symbol
	// content_hash diff storage.DiffFile runs: an xxhash of a whole
	// file's raw bytes, checked before that file is even handed to the
	// parser. It is never persisted, so a process restart costs one
	// cache-miss per file rather than a correctness bug.
	fileHashes map[string]uint64
}

// skipUnchanged reports whether path's raw content is byte-identical to
// what this Project last saw at the same relative path, using a cheap
// 64-bit xxhash equality check ahead of the much slower tree-sitter parse
// and per-symbol content_hash diff. A cache miss (new path, or content
// that actually changed) updates the recorded hash and returns false.
func (p *Project) skipUnchanged(relPath string, content []byte) bool {
	sum := xxhash.Sum64(content)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fileHashes == nil {
		p.fileHashes = make(map[string]uint64)
	}
	prior, ok := p.fileHashes[relPath]
	p.fileHashes[relPath] = sum
	return ok && prior == sum
}

// touch records that the project was just accessed, for the
// RecentFirst cache-warming strategy and LRU spill selection.
func (p *Project) touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastAccess = time.Now()
}

// LastAccess returns the last time this project served a request.
func (p *Project) LastAccess() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAccess
}

// State reports the project's current residency.
func (p *Project) State() cacheState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// spillPDG drops the in-memory graph; the durable row store is
// untouched and LoadPDG can rebuild it on next access. Safe to call
// concurrently with an in-flight spill (idempotent).
func (p *Project) spillPDG() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PDG = nil
	p.recomputeState()
}

// spillVector drops the HNSW structure; it is rebuilt from stored
// embeddings on next access.
func (p *Project) spillVector() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Vector = nil
	if p.Engine != nil {
		p.Engine.Vector = nil
	}
	p.recomputeState()
}

func (p *Project) recomputeState() {
	switch {
	case p.PDG != nil && p.Vector != nil:
		p.state = cacheWarm
	case p.PDG != nil:
		p.state = cachePDGOnly
	case p.Vector != nil:
		p.state = cacheSearchOnly
	default:
		p.state = cacheCold
	}
}
