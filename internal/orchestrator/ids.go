package orchestrator

import (
	"encoding/binary"
	"path/filepath"

	"lukechampine.com/blake3"

	"github.com/leindex/leindex/internal/ast"
	"github.com/leindex/leindex/internal/encoding"
)

// ProjectID derives a short, stable, printable id for a project root by
// base-63 encoding the leading 8 bytes of BLAKE3(clean(rootPath)), so the
// same root always resolves to the same id across process restarts.
func ProjectID(rootPath string) string {
	clean := filepath.Clean(rootPath)
	sum := blake3.Sum256([]byte(clean))
	return encoding.Base63Encode(binary.BigEndian.Uint64(sum[:8]))
}

// SymbolID derives a stable uint64 id for one symbol from its identity
// tuple, so re-parsing the same file deterministically reassigns the same
// id to the same symbol (enabling UpsertSymbol's idempotent-on-id
// contract) without a separate id-allocation table.
func SymbolID(projectID, filePath, name string, kind ast.SymbolKind) uint64 {
	h := blake3.New(32, nil)
	h.Write([]byte(projectID))
	h.Write([]byte{0})
	h.Write([]byte(filePath))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
