package pdg

import "testing"

func node(id uint64, project, name string) Node {
	return Node{SymbolID: id, ProjectID: project, Name: name, FilePath: name + ".go"}
}

func TestUpsertNodeIdempotentBySymbolID(t *testing.T) {
	g := New()
	id1, err := g.UpsertNode(node(1, "p1", "A"))
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	id2, err := g.UpsertNode(node(1, "p1", "A-renamed"))
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected idempotent node id, got %d and %d", id1, id2)
	}
	n, _ := g.Node(id1)
	if n.Name != "A-renamed" {
		t.Fatalf("expected the latest revision's fields, got %+v", n)
	}
}

func TestUpsertNodeCollisionAcrossProjects(t *testing.T) {
	g := New()
	if _, err := g.UpsertNode(node(1, "p1", "A")); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if _, err := g.UpsertNode(node(1, "p2", "A")); err == nil {
		t.Fatalf("expected a collision error for the same symbol_id under a different project_id")
	}
}

func TestAddEdgesDropsUnknownEndpoints(t *testing.T) {
	g := New()
	a, _ := g.UpsertNode(node(1, "p1", "A"))
	dropped := g.AddEdges([]Edge{{From: a, To: 9999, Kind: EdgeCall}})
	if dropped != 1 {
		t.Fatalf("expected 1 dropped edge, got %d", dropped)
	}
}

func TestForwardAndBackwardImpact(t *testing.T) {
	g := New()
	a, _ := g.UpsertNode(node(1, "p1", "A"))
	b, _ := g.UpsertNode(node(2, "p1", "B"))
	c, _ := g.UpsertNode(node(3, "p1", "C"))
	g.AddEdges([]Edge{
		{From: a, To: b, Kind: EdgeCall},
		{From: b, To: c, Kind: EdgeCall},
	})

	fwd := g.ForwardImpact(a, 0)
	if _, ok := fwd[b]; !ok {
		t.Errorf("expected B in forward impact of A")
	}
	if _, ok := fwd[c]; !ok {
		t.Errorf("expected C in forward impact of A")
	}

	back := g.BackwardImpact(c, 0)
	if _, ok := back[a]; !ok {
		t.Errorf("expected A in backward impact of C")
	}
	if _, ok := back[b]; !ok {
		t.Errorf("expected B in backward impact of C")
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	g := New()
	a, _ := g.UpsertNode(node(1, "p1", "A"))
	b, _ := g.UpsertNode(node(2, "p1", "B"))
	g.AddEdges([]Edge{{From: a, To: b, Kind: EdgeCall}})

	g.RemoveNode(1)
	if _, ok := g.Node(a); ok {
		t.Fatalf("expected A to be removed")
	}
	back := g.BackwardImpact(b, 0)
	if _, ok := back[a]; ok {
		t.Fatalf("expected A's outgoing edge to B to be gone after removal")
	}
}

// TestGravityExpansionBudgetPrefersCloserNodes mirrors the literal scenario
// from this package's end-to-end behavior: a call chain A -> B -> C -> D
// with uniform semantic scores and decay 2; a budget sized for exactly two
// entries must return [A, B], not [A, C] or [A, D].
func TestGravityExpansionBudgetPrefersCloserNodes(t *testing.T) {
	g := New()
	a, _ := g.UpsertNode(node(1, "p1", "A"))
	b, _ := g.UpsertNode(node(2, "p1", "B"))
	c, _ := g.UpsertNode(node(3, "p1", "C"))
	d, _ := g.UpsertNode(node(4, "p1", "D"))
	g.AddEdges([]Edge{
		{From: a, To: b, Kind: EdgeCall},
		{From: b, To: c, Kind: EdgeCall},
		{From: c, To: d, Kind: EdgeCall},
	})

	cfg := DefaultGravityConfig()
	cfg.TokensPerNode = func(Node) int { return 10 }
	uniform := func(uint32) float64 { return 0.5 }

	result := g.ExpandContext([]uint32{a}, 20, cfg, uniform)
	if len(result.Entries) != 2 {
		t.Fatalf("expected exactly 2 entries, got %d: %+v", len(result.Entries), result.Entries)
	}
	if result.Entries[0].NodeID != a || result.Entries[1].NodeID != b {
		t.Fatalf("expected [A, B] by distance, got %+v", result.Entries)
	}
}

func TestExpandContextDeterministicTieBreak(t *testing.T) {
	g := New()
	a, _ := g.UpsertNode(node(1, "p1", "A"))
	b, _ := g.UpsertNode(node(2, "p1", "B"))
	c, _ := g.UpsertNode(node(3, "p1", "C"))
	g.AddEdges([]Edge{
		{From: a, To: b, Kind: EdgeCall},
		{From: a, To: c, Kind: EdgeCall},
	})

	cfg := DefaultGravityConfig()
	cfg.TokensPerNode = func(Node) int { return 10 }
	uniform := func(uint32) float64 { return 0.5 }

	first := g.ExpandContext([]uint32{a}, 30, cfg, uniform)
	second := g.ExpandContext([]uint32{a}, 30, cfg, uniform)
	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("expected deterministic entry count across runs")
	}
	for i := range first.Entries {
		if first.Entries[i].NodeID != second.Entries[i].NodeID {
			t.Fatalf("expected deterministic ordering across runs, got %+v vs %+v", first.Entries, second.Entries)
		}
	}
}
