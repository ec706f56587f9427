package errors

import (
	"fmt"
	"testing"
)

func TestCategoryOfUnwraps(t *testing.T) {
	base := New(NotFound, "project_missing", "project not indexed")
	wrapped := fmt.Errorf("loading project: %w", base)

	if got := CategoryOf(wrapped); got != NotFound {
		t.Fatalf("CategoryOf() = %q, want %q", got, NotFound)
	}
}

func TestCategoryOfNonTaxonomyError(t *testing.T) {
	if got := CategoryOf(fmt.Errorf("boom")); got != Internal {
		t.Fatalf("CategoryOf() = %q, want %q", got, Internal)
	}
}

func TestIsMatchesCategoryOnly(t *testing.T) {
	a := New(Timeout, "deadline", "deadline exceeded")
	b := New(Timeout, "other_code", "a different message")

	if !a.Is(b) {
		t.Fatalf("expected errors with the same category to match")
	}
}
