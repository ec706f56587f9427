package storage

import (
	"path/filepath"
	"testing"

	"github.com/leindex/leindex/internal/ast"
	"github.com/leindex/leindex/internal/pdg"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "leindex.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndFindByHash(t *testing.T) {
	s := openTestStore(t)
	hash := ast.ContentHash("go", "func add(a, b int) int { return a + b }")

	rec := SymbolRecord{ID: 1, ProjectID: "p1", FilePath: "a.go", Name: "add", Kind: ast.KindFunction, ContentHash: hash}
	if err := s.UpsertSymbol(rec, 100); err != nil {
		t.Fatalf("UpsertSymbol: %v", err)
	}

	found, ok, err := s.FindByHash(hash)
	if err != nil || !ok {
		t.Fatalf("FindByHash: %v ok=%v", err, ok)
	}
	if found.Name != "add" {
		t.Fatalf("FindByHash returned %+v", found)
	}
}

func TestFindByHashIsCrossProject(t *testing.T) {
	s := openTestStore(t)
	hash := ast.ContentHash("go", "func id(x int) int { return x }")

	if err := s.UpsertSymbol(SymbolRecord{ID: 1, ProjectID: "p1", FilePath: "a.go", Name: "id", ContentHash: hash}, 0); err != nil {
		t.Fatalf("UpsertSymbol p1: %v", err)
	}

	found, ok, err := s.FindByHash(hash)
	if err != nil || !ok || found.ProjectID != "p1" {
		t.Fatalf("expected a cross-project hit for an unrelated project's lookup, got %+v ok=%v err=%v", found, ok, err)
	}
}

func TestBatchUpsertEdgesAbortsOnUnknownSymbol(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertSymbol(SymbolRecord{ID: 1, ProjectID: "p1", FilePath: "a.go", Name: "a"}, 0); err != nil {
		t.Fatalf("UpsertSymbol: %v", err)
	}

	err := s.BatchUpsertEdges([]EdgeRecord{{CallerID: 1, CalleeID: 999, EdgeType: "call"}})
	if err == nil {
		t.Fatalf("expected a foreign-key violation for an edge to an unknown symbol")
	}
}

func TestDeleteSymbolsByFileCascadesEdges(t *testing.T) {
	s := openTestStore(t)
	if err := s.BatchUpsertSymbols([]SymbolRecord{
		{ID: 1, ProjectID: "p1", FilePath: "a.go", Name: "a"},
		{ID: 2, ProjectID: "p1", FilePath: "a.go", Name: "b"},
	}, 0); err != nil {
		t.Fatalf("BatchUpsertSymbols: %v", err)
	}
	if err := s.BatchUpsertEdges([]EdgeRecord{{CallerID: 1, CalleeID: 2, EdgeType: "call"}}); err != nil {
		t.Fatalf("BatchUpsertEdges: %v", err)
	}

	if err := s.DeleteSymbolsByFile("p1", "a.go"); err != nil {
		t.Fatalf("DeleteSymbolsByFile: %v", err)
	}

	remaining, err := s.GetSymbolsByFile("p1", "a.go")
	if err != nil || len(remaining) != 0 {
		t.Fatalf("expected no remaining symbols, got %+v err=%v", remaining, err)
	}

	var edgeCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&edgeCount); err != nil {
		t.Fatalf("count edges: %v", err)
	}
	if edgeCount != 0 {
		t.Fatalf("expected edges to cascade-delete, got %d remaining", edgeCount)
	}
}

func TestProjectGenerationStartsAtZeroAndIncrements(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertProject("p1", "/repo"); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	rec, ok, err := s.GetProject("p1")
	if err != nil || !ok {
		t.Fatalf("GetProject: %v ok=%v", err, ok)
	}
	if rec.Generation != 0 {
		t.Fatalf("expected a fresh project to start at generation 0, got %d", rec.Generation)
	}

	if err := s.IncrementGeneration("p1", 1000); err != nil {
		t.Fatalf("IncrementGeneration: %v", err)
	}
	rec, _, _ = s.GetProject("p1")
	if rec.Generation != 1 || rec.LastIndexed != 1000 {
		t.Fatalf("expected generation 1 / last_indexed 1000, got %+v", rec)
	}
}

func TestListProjectsOrdersByLastIndexedDescending(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := s.UpsertProject(id, "/repo/"+id); err != nil {
			t.Fatalf("UpsertProject(%s): %v", id, err)
		}
	}
	if err := s.IncrementGeneration("p2", 300); err != nil {
		t.Fatalf("IncrementGeneration p2: %v", err)
	}
	if err := s.IncrementGeneration("p1", 100); err != nil {
		t.Fatalf("IncrementGeneration p1: %v", err)
	}

	recs, err := s.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(recs))
	}
	if recs[0].ID != "p2" {
		t.Fatalf("expected p2 (last_indexed=300) first, got %+v", recs)
	}
}

func TestAnalysisCacheRoundTripAndPrune(t *testing.T) {
	s := openTestStore(t)
	hashes := [][32]byte{
		ast.ContentHash("go", "func a(){}"),
		ast.ContentHash("go", "func b(){}"),
		ast.ContentHash("go", "func c(){}"),
	}
	for i, h := range hashes {
		if err := s.PutAnalysisCache(CacheEntry{ContentHash: h, CfgBlob: []byte("x"), ComplexityBlob: []byte("y"), Timestamp: int64(i)}); err != nil {
			t.Fatalf("PutAnalysisCache: %v", err)
		}
	}

	_, ok, err := s.GetAnalysisCache(hashes[0])
	if err != nil || !ok {
		t.Fatalf("GetAnalysisCache: %v ok=%v", err, ok)
	}

	evicted, err := s.PruneAnalysisCache(1)
	if err != nil {
		t.Fatalf("PruneAnalysisCache: %v", err)
	}
	if evicted != 2 {
		t.Fatalf("expected 2 evicted rows, got %d", evicted)
	}
	if _, ok, _ := s.GetAnalysisCache(hashes[0]); ok {
		t.Fatalf("expected the oldest entry to be evicted first")
	}
	if _, ok, _ := s.GetAnalysisCache(hashes[2]); !ok {
		t.Fatalf("expected the newest entry to survive pruning")
	}
}

func TestSaveAndLoadPDGSnapshot(t *testing.T) {
	s := openTestStore(t)
	g := pdg.New()
	aID, _ := g.UpsertNode(pdg.Node{SymbolID: 1, ProjectID: "p1", Name: "a", FilePath: "a.go"})
	bID, _ := g.UpsertNode(pdg.Node{SymbolID: 2, ProjectID: "p1", Name: "b", FilePath: "a.go"})
	g.AddEdges([]pdg.Edge{{From: aID, To: bID, Kind: pdg.EdgeCall}})

	if err := s.SavePDGSnapshot("p1", g); err != nil {
		t.Fatalf("SavePDGSnapshot: %v", err)
	}

	symbols, edges, err := s.LoadPDG("p1")
	if err != nil {
		t.Fatalf("LoadPDG: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("expected 2 persisted symbols, got %d", len(symbols))
	}
	if len(edges) != 1 || edges[0].CallerID != 1 || edges[0].CalleeID != 2 {
		t.Fatalf("expected one call edge 1->2, got %+v", edges)
	}
}

func TestEdgeKindFromNameRejectsUnknownEdgeType(t *testing.T) {
	cases := map[string]pdg.EdgeKind{
		"call":         pdg.EdgeCall,
		"data_flow":    pdg.EdgeDataFlow,
		"inheritance":  pdg.EdgeInheritance,
		"control_flow": pdg.EdgeControlFlow,
	}
	for name, want := range cases {
		got, ok := EdgeKindFromName(name)
		if !ok || got != want {
			t.Errorf("EdgeKindFromName(%q) = %v,%v want %v,true", name, got, ok, want)
		}
	}

	if _, ok := EdgeKindFromName("some_future_edge_type"); ok {
		t.Errorf("expected an unrecognized edge_type to report ok=false, not alias to a known kind")
	}
}

func TestDiffFileClassifiesUnchangedChangedNewRemoved(t *testing.T) {
	prior := []SymbolRecord{
		{ID: 1, Name: "keep", ContentHash: ast.ContentHash("go", "func keep(){}")},
		{ID: 2, Name: "edit", ContentHash: ast.ContentHash("go", "func edit(){ return 1 }")},
		{ID: 3, Name: "gone", ContentHash: ast.ContentHash("go", "func gone(){}")},
	}
	fresh := []SymbolRecord{
		{Name: "keep", ContentHash: ast.ContentHash("go", "func keep(){}")},
		{Name: "edit", ContentHash: ast.ContentHash("go", "func edit(){ return 2 }")},
		{Name: "added", ContentHash: ast.ContentHash("go", "func added(){}")},
	}

	diff := DiffFile(prior, fresh)
	if len(diff.Unchanged) != 1 || diff.Unchanged[0].Name != "keep" {
		t.Errorf("expected keep to be unchanged, got %+v", diff.Unchanged)
	}
	if len(diff.Changed) != 1 || diff.Changed[0].Name != "edit" {
		t.Errorf("expected edit to be changed, got %+v", diff.Changed)
	}
	if len(diff.New) != 1 || diff.New[0].Name != "added" {
		t.Errorf("expected added to be new, got %+v", diff.New)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Name != "gone" {
		t.Errorf("expected gone to be removed, got %+v", diff.Removed)
	}
}
