package orchestrator

import (
	"sync"
	"time"

	"github.com/leindex/leindex/internal/config"
	"github.com/leindex/leindex/internal/errors"
	"github.com/leindex/leindex/internal/lexical"
	"github.com/leindex/leindex/internal/pdg"
	"github.com/leindex/leindex/internal/search"
	"github.com/leindex/leindex/internal/storage"
	"github.com/leindex/leindex/internal/vectorindex"
)

// Registry owns every loaded Project plus the shared storage handle. Lock
// order across the orchestrator is fixed:
// registry -> project -> index, and is never taken in reverse, per spec
// §5's shared-resource policy.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*Project
	store    *storage.Store
	cfg      *config.Config
	governor *MemGovernor // nil until the owning Orchestrator starts one
}

// NewRegistry opens the shared store under cfg.Storage.DataDir and returns
// an empty Registry.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	dbPath := cfg.Storage.DataDir + "/registry.db"
	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Registry{projects: make(map[string]*Project), store: store, cfg: cfg}, nil
}

// Close releases the shared storage handle.
func (r *Registry) Close() error {
	return r.store.Close()
}

// SetGovernor attaches the memory governor Get/Ensure consult before
// loading a project. Called once by Orchestrator after NewMemGovernor;
// nil (the zero value) means no governor is running and every request is
// let through, matching today's CLI one-shot invocations.
func (r *Registry) SetGovernor(g *MemGovernor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.governor = g
}

// emergency reports whether the attached governor's last poll classified
// the process as out of budget. Per spec §4.5, requests that would load or
// touch a project must fail fast with Unavailable while this holds, rather
// than push memory further past the ceiling.
func (r *Registry) emergency() bool {
	r.mu.RLock()
	g := r.governor
	r.mu.RUnlock()
	return g != nil && g.Level() == memEmergency
}

var errMemoryEmergency = errors.New(errors.Unavailable, "orchestrator.memory_emergency", "memory governor is in emergency state; not loading any further projects")

// Get returns an already-loaded project, touching its access time and
// reloading anything the memory governor previously spilled.
func (r *Registry) Get(id string) (*Project, error) {
	if r.emergency() {
		return nil, errMemoryEmergency
	}

	r.mu.RLock()
	p, ok := r.projects[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errProjectNotFound
	}
	p.touch()
	if err := r.reload(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Ensure returns the project for rootPath, loading or creating it if this
// is the first time the registry has seen it, then touches its access
// time. The caller's rootPath determines the deterministic ProjectID.
func (r *Registry) Ensure(rootPath string) (*Project, error) {
	if r.emergency() {
		return nil, errMemoryEmergency
	}

	id := ProjectID(rootPath)

	r.mu.Lock()
	if p, ok := r.projects[id]; ok {
		r.mu.Unlock()
		p.touch()
		if err := r.reload(p); err != nil {
			return nil, err
		}
		return p, nil
	}
	r.mu.Unlock()

	if err := r.store.UpsertProject(id, rootPath); err != nil {
		return nil, err
	}
	rec, _, err := r.store.GetProject(id)
	if err != nil {
		return nil, err
	}

	p := &Project{
		ID:         id,
		RootPath:   rootPath,
		Generation: rec.Generation,
		Lexical:    lexical.NewIndex(lexical.NewStemmer(true, 3)),
		lastAccess: time.Now(),
	}
	p.Engine = search.NewEngine(p.Lexical, nil, r.structuralScoreFor(p))

	// PDG/Vector start nil so reload's spill-detection also drives the
	// initial load: a brand new project is indistinguishable from a fully
	// spilled one.
	if err := r.reload(p); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.projects[id] = p
	r.mu.Unlock()
	return p, nil
}

// reload rebuilds whichever of PDG/Vector the memory governor has spilled
// from p, restoring durable rows back into memory. It is a no-op on a
// project that is already fully resident. Called on every Get/Ensure so a
// spill is always transparent to the next caller.
func (r *Registry) reload(p *Project) error {
	p.mu.Lock()
	needPDG := p.PDG == nil
	needVector := p.Vector == nil
	if needPDG {
		p.PDG = pdg.New()
	}
	if needVector {
		p.Vector = vectorindex.New(vectorindex.DefaultConfig(0))
		if p.Engine != nil {
			p.Engine.Vector = p.Vector
		}
	}
	p.mu.Unlock()
	if !needPDG && !needVector {
		return nil
	}

	symbols, edges, err := r.store.LoadPDG(p.ID)
	if err != nil {
		return err
	}
	for _, s := range symbols {
		if needPDG {
			if _, err := p.PDG.UpsertNode(pdg.Node{
				SymbolID:   s.ID,
				ProjectID:  s.ProjectID,
				Name:       s.Name,
				FilePath:   s.FilePath,
				Complexity: s.Complexity,
			}); err != nil {
				return err
			}
		}
		p.Lexical.Upsert(lexical.Meta{SymbolID: s.ID, ProjectID: s.ProjectID, FilePath: s.FilePath, Kind: string(s.Kind), Complexity: s.Complexity}, s.Name, s.Signature, "", s.FilePath)
		if needVector && len(s.Embedding) > 0 {
			_ = p.Vector.Add(s.ID, s.Embedding) // no-op unless a dimension-matching embedding provider is configured; see DESIGN.md
		}
	}

	if needPDG {
		var pdgEdges []pdg.Edge
		for _, e := range edges {
			from, ok1 := p.PDG.NodeBySymbol(e.CallerID)
			to, ok2 := p.PDG.NodeBySymbol(e.CalleeID)
			if !ok1 || !ok2 {
				continue // dangling edge: its endpoint symbol is gone, dropped per spec §4.2 serialization rule
			}
			kind, ok3 := storage.EdgeKindFromName(e.EdgeType)
			if !ok3 {
				continue // unrecognized edge_type: dropped rather than aliased to another kind
			}
			pdgEdges = append(pdgEdges, pdg.Edge{From: from, To: to, Kind: kind})
		}
		p.PDG.AddEdges(pdgEdges)
	}
	p.recomputeState()
	return nil
}

func (r *Registry) structuralScoreFor(p *Project) func(uint64) float64 {
	return func(symbolID uint64) float64 {
		p.mu.RLock()
		graph := p.PDG
		p.mu.RUnlock()
		if graph == nil {
			return 0 // spilled mid-request; the caller's Get/Ensure already triggered a reload for next time
		}
		nodeID, ok := graph.NodeBySymbol(symbolID)
		if !ok {
			return 0
		}
		n, ok := graph.Node(nodeID)
		if !ok {
			return 0
		}
		f := float64(n.Complexity)
		return f / (f + 10)
	}
}

// Store exposes the shared storage handle for the pipeline and dispatch
// layers.
func (r *Registry) Store() *storage.Store {
	return r.store
}

// All returns every currently-loaded project, for the memory governor's
// scan and for diagnostics.
func (r *Registry) All() []*Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out
}

// Evict entirely removes a project from memory (its durable rows in
// storage are untouched); used by the memory governor's Emergency action.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
}

var errProjectNotFound = errors.New(errors.NotFound, "orchestrator.project_not_found", "project is not loaded")
