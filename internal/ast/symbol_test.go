package ast

import "testing"

func TestIsEntryPoint(t *testing.T) {
	cases := []struct {
		sym  Symbol
		want bool
	}{
		{Symbol{Name: "main", Kind: KindFunction}, true},
		{Symbol{Name: "init", Kind: KindFunction}, true},
		{Symbol{Name: "Add", Kind: KindFunction}, true},
		{Symbol{Name: "add", Kind: KindFunction}, false},
		{Symbol{Name: "Add", Kind: KindModule}, false},
	}
	for _, c := range cases {
		if got := IsEntryPoint(c.sym); got != c.want {
			t.Errorf("IsEntryPoint(%+v) = %v, want %v", c.sym, got, c.want)
		}
	}
}

func TestNewSymbolComputesContentHash(t *testing.T) {
	s := NewSymbol("proj1", "a.go", "add", KindFunction, "go", "func add(x, y int) int { return x + y }")
	if s.ContentHash == ([32]byte{}) {
		t.Fatalf("expected a non-zero content hash")
	}
	other := NewSymbol("proj1", "a.go", "add", KindFunction, "go", "func add(x, y int) int { return x - y }")
	if s.ContentHash == other.ContentHash {
		t.Fatalf("symbols with different bodies must not share a content hash")
	}
}
