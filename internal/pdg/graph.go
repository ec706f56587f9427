package pdg

import (
	"sync"

	"github.com/leindex/leindex/internal/errors"
)

// Graph is the process's in-memory program dependence graph for one or more
// projects. It is safe for concurrent use.
type Graph struct {
	mu sync.RWMutex

	nodes    map[uint32]*Node
	bySymbol map[uint64]uint32 // symbol_id -> current node id, for idempotent upsert
	forward  map[uint32][]Edge
	reverse  map[uint32][]Edge
	nextID   uint32
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[uint32]*Node),
		bySymbol: make(map[uint64]uint32),
		forward:  make(map[uint32][]Edge),
		reverse:  make(map[uint32][]Edge),
	}
}

// UpsertNode is idempotent by SymbolID: a repeat call for the same symbol
// replaces the prior revision's fields and invalidates edges the old
// revision sourced (they referenced data that symbol no longer has).
// Upserting the same symbol_id under a different project_id is a hard
// error: that can only mean a hash collision or caller misuse, since
// symbol ids are meant to be unique per project.
func (g *Graph) UpsertNode(n Node) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existingID, ok := g.bySymbol[n.SymbolID]; ok {
		existing := g.nodes[existingID]
		if existing.ProjectID != n.ProjectID {
			return 0, errors.New(errors.InvalidInput, "pdg.symbol_id_collision",
				"symbol_id collides across different project_ids")
		}
		n.ID = existingID
		g.nodes[existingID] = &n
		for _, e := range g.forward[existingID] {
			g.reverse[e.To] = removeEdgeValue(g.reverse[e.To], e)
		}
		delete(g.forward, existingID)
		return existingID, nil
	}

	g.nextID++
	id := g.nextID
	n.ID = id
	g.nodes[id] = &n
	g.bySymbol[n.SymbolID] = id
	return id, nil
}

// AddEdges bulk-inserts edges, ignoring exact duplicates and dropping any
// edge whose endpoint is not a known node id. It returns the count of
// dropped edges so a caller can log or surface them per spec.
func (g *Graph) AddEdges(edges []Edge) (dropped int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range edges {
		if _, ok := g.nodes[e.From]; !ok {
			dropped++
			continue
		}
		if _, ok := g.nodes[e.To]; !ok {
			dropped++
			continue
		}
		if hasEdge(g.forward[e.From], e) {
			continue
		}
		g.forward[e.From] = append(g.forward[e.From], e)
		g.reverse[e.To] = append(g.reverse[e.To], e)
	}
	return dropped
}

func hasEdge(edges []Edge, e Edge) bool {
	for _, existing := range edges {
		if existing == e {
			return true
		}
	}
	return false
}

// RemoveNode deletes a node by symbol id, cascading to every incident edge.
func (g *Graph) RemoveNode(symbolID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, ok := g.bySymbol[symbolID]
	if !ok {
		return
	}
	delete(g.bySymbol, symbolID)
	delete(g.nodes, id)

	for _, e := range g.forward[id] {
		g.reverse[e.To] = removeEdgeValue(g.reverse[e.To], e)
	}
	delete(g.forward, id)
	for _, e := range g.reverse[id] {
		g.forward[e.From] = removeEdgeValue(g.forward[e.From], e)
	}
	delete(g.reverse, id)
}

func removeEdgeValue(edges []Edge, target Edge) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// Node returns a copy of the arena entry for id, if present.
func (g *Graph) Node(id uint32) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// NodeBySymbol resolves a symbol id to its current arena node id.
func (g *Graph) NodeBySymbol(symbolID uint64) (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.bySymbol[symbolID]
	return id, ok
}

// ForwardImpact returns the set of node ids reachable from id by following
// outgoing edges, optionally bounded to maxDepth hops (0 means unbounded).
func (g *Graph) ForwardImpact(id uint32, maxDepth int) map[uint32]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dfs(id, maxDepth, func(n uint32) []uint32 {
		edges := g.forward[n]
		next := make([]uint32, len(edges))
		for i, e := range edges {
			next[i] = e.To
		}
		return next
	})
}

// BackwardImpact is ForwardImpact on the reversed graph.
func (g *Graph) BackwardImpact(id uint32, maxDepth int) map[uint32]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dfs(id, maxDepth, func(n uint32) []uint32 {
		edges := g.reverse[n]
		next := make([]uint32, len(edges))
		for i, e := range edges {
			next[i] = e.From
		}
		return next
	})
}

func (g *Graph) dfs(start uint32, maxDepth int, successors func(uint32) []uint32) map[uint32]struct{} {
	visited := make(map[uint32]struct{})
	type frame struct {
		id    uint32
		depth int
	}
	stack := []frame{{id: start, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[f.id]; seen {
			continue
		}
		if f.id != start {
			visited[f.id] = struct{}{}
		}
		if maxDepth > 0 && f.depth >= maxDepth {
			continue
		}
		for _, next := range successors(f.id) {
			if _, seen := visited[next]; !seen {
				stack = append(stack, frame{id: next, depth: f.depth + 1})
			}
		}
	}
	return visited
}

// Snapshot returns every node and edge belonging to one project, for
// persistence: the storage layer composes a saved snapshot from exactly
// this pair rather than a separate serialized blob.
func (g *Graph) Snapshot(projectID string) ([]Node, []Edge) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var nodes []Node
	ids := make(map[uint32]struct{})
	for id, n := range g.nodes {
		if n.ProjectID == projectID {
			nodes = append(nodes, *n)
			ids[id] = struct{}{}
		}
	}

	var edges []Edge
	for id := range ids {
		for _, e := range g.forward[id] {
			if _, ok := ids[e.To]; ok {
				edges = append(edges, e)
			}
		}
	}
	return nodes, edges
}

// Len returns the number of nodes currently in the arena.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
