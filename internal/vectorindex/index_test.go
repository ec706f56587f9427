package vectorindex

import "testing"

func TestAddRejectsWrongDimension(t *testing.T) {
	idx := New(DefaultConfig(4))
	if err := idx.Add(1, []float32{1, 2, 3}); err == nil {
		t.Fatalf("expected a dimension mismatch error")
	}
}

func TestSearchReturnsNearestNeighbor(t *testing.T) {
	idx := New(DefaultConfig(2))
	mustAdd(t, idx, 1, []float32{1, 0})
	mustAdd(t, idx, 2, []float32{0, 1})
	mustAdd(t, idx, 3, []float32{0.9, 0.1})

	results, err := idx.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || (results[0].SymbolID != 1 && results[0].SymbolID != 3) {
		t.Fatalf("expected the closest vector to win, got %+v", results)
	}
}

func TestDeleteExcludesFromSearch(t *testing.T) {
	idx := New(DefaultConfig(2))
	mustAdd(t, idx, 1, []float32{1, 0})
	idx.Delete(1)

	results, err := idx.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.SymbolID == 1 {
			t.Fatalf("expected deleted symbol to be excluded, got %+v", results)
		}
	}
}

func TestCompactReclaimsTombstones(t *testing.T) {
	idx := New(DefaultConfig(2))
	mustAdd(t, idx, 1, []float32{1, 0})
	mustAdd(t, idx, 2, []float32{0, 1})
	idx.Delete(1)
	idx.Compact()

	if idx.Len() != 1 {
		t.Fatalf("expected 1 live vector after compaction, got %d", idx.Len())
	}
}

func mustAdd(t *testing.T, idx *Index, id uint64, vec []float32) {
	t.Helper()
	if err := idx.Add(id, vec); err != nil {
		t.Fatalf("Add(%d): %v", id, err)
	}
}
