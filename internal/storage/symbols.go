package storage

import (
	"database/sql"
	"math"

	"github.com/leindex/leindex/internal/ast"
	"github.com/leindex/leindex/internal/errors"
)

// SymbolRecord is the persisted row shape for one symbol, per spec §4.4's
// logical schema. Embedding is nil when no vector backend produced one.
type SymbolRecord struct {
	ID          uint64
	ProjectID   string
	FilePath    string
	Name        string
	Kind        ast.SymbolKind
	Signature   string
	Complexity  int
	StartLine   int
	EndLine     int
	ContentHash [32]byte
	Embedding   []float32
	UpdatedAt   int64
}

// EdgeRecord is the persisted row shape for one PDG edge.
type EdgeRecord struct {
	CallerID uint64
	CalleeID uint64
	EdgeType string
	Metadata string
}

// UpsertSymbol inserts or replaces one symbol row. It is idempotent on id:
// re-upserting the same id with an unchanged ContentHash leaves UpdatedAt
// untouched by the caller's choice of updatedAt (the orchestrator decides
// whether content actually changed before calling this).
func (s *Store) UpsertSymbol(rec SymbolRecord, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.upsertSymbolTx(s.db, rec, updatedAt)
}

func (s *Store) upsertSymbolTx(ex execer, rec SymbolRecord, updatedAt int64) error {
	_, err := ex.Exec(`
		INSERT INTO symbols (id, project_id, file_path, symbol_name, kind, signature, complexity, start_line, end_line, content_hash, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id=excluded.project_id, file_path=excluded.file_path, symbol_name=excluded.symbol_name,
			kind=excluded.kind, signature=excluded.signature, complexity=excluded.complexity,
			start_line=excluded.start_line, end_line=excluded.end_line,
			content_hash=excluded.content_hash, embedding=excluded.embedding, updated_at=excluded.updated_at
	`, rec.ID, rec.ProjectID, rec.FilePath, rec.Name, string(rec.Kind), rec.Signature, rec.Complexity,
		rec.StartLine, rec.EndLine, rec.ContentHash[:], encodeEmbedding(rec.Embedding), updatedAt)
	if err != nil {
		return mapSQLiteErr("upsert_symbol", err)
	}
	return nil
}

// execer is the subset of *sql.DB / *sql.Tx that batch helpers need, so the
// same statement bodies run either standalone or inside BatchUpsertSymbols'
// transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// BatchUpsertSymbols upserts every record in one transaction: any single
// failure (e.g. a foreign-key violation surfaced only once edges are
// batched) rolls back the whole batch, per spec §4.4.
func (s *Store) BatchUpsertSymbols(recs []SymbolRecord, updatedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return mapSQLiteErr("batch_upsert_symbols", err)
	}
	for _, rec := range recs {
		if err := s.upsertSymbolTx(tx, rec, updatedAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr("batch_upsert_symbols", err)
	}
	return nil
}

// BatchUpsertEdges inserts every edge in one transaction. Edges referencing
// a symbol id not yet ingested abort the whole batch with InvalidInput, so
// callers must ingest nodes before edges (spec §4.4 failure semantics).
func (s *Store) BatchUpsertEdges(edges []EdgeRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return mapSQLiteErr("batch_upsert_edges", err)
	}
	for _, e := range edges {
		_, err := tx.Exec(`
			INSERT INTO edges (caller_id, callee_id, edge_type, metadata)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(caller_id, callee_id, edge_type) DO UPDATE SET metadata=excluded.metadata
		`, e.CallerID, e.CalleeID, e.EdgeType, e.Metadata)
		if err != nil {
			tx.Rollback()
			return mapSQLiteErr("batch_upsert_edges", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr("batch_upsert_edges", err)
	}
	return nil
}

// FindByHash looks up any previously-seen symbol sharing content_hash,
// across projects, supporting the cross-project cache reuse spec §4.4
// requires.
func (s *Store) FindByHash(hash [32]byte) (SymbolRecord, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, project_id, file_path, symbol_name, kind, signature, complexity, start_line, end_line, content_hash, embedding, updated_at
		FROM symbols WHERE content_hash = ? LIMIT 1
	`, hash[:])
	rec, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return SymbolRecord{}, false, nil
	}
	if err != nil {
		return SymbolRecord{}, false, mapSQLiteErr("find_by_hash", err)
	}
	return rec, true, nil
}

// GetSymbolByID returns one symbol row by its id, for resolving a search
// or PDG hit back into its displayable fields.
func (s *Store) GetSymbolByID(id uint64) (SymbolRecord, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, project_id, file_path, symbol_name, kind, signature, complexity, start_line, end_line, content_hash, embedding, updated_at
		FROM symbols WHERE id = ?
	`, id)
	rec, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return SymbolRecord{}, false, nil
	}
	if err != nil {
		return SymbolRecord{}, false, mapSQLiteErr("get_symbol_by_id", err)
	}
	return rec, true, nil
}

// GetSymbolsByFile returns every symbol currently recorded for one file.
func (s *Store) GetSymbolsByFile(projectID, filePath string) ([]SymbolRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, file_path, symbol_name, kind, signature, complexity, start_line, end_line, content_hash, embedding, updated_at
		FROM symbols WHERE project_id = ? AND file_path = ?
	`, projectID, filePath)
	if err != nil {
		return nil, mapSQLiteErr("get_symbols_by_file", err)
	}
	defer rows.Close()

	var out []SymbolRecord
	for rows.Next() {
		rec, err := scanSymbol(rows)
		if err != nil {
			return nil, mapSQLiteErr("get_symbols_by_file", err)
		}
		out = append(out, rec)
	}
	return out, mapSQLiteErr("get_symbols_by_file", rows.Err())
}

// DeleteSymbolsByFile removes every symbol recorded for one file; edges
// referencing those ids cascade via the edges table's foreign keys.
func (s *Store) DeleteSymbolsByFile(projectID, filePath string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`DELETE FROM symbols WHERE project_id = ? AND file_path = ?`, projectID, filePath)
	if err != nil {
		return mapSQLiteErr("delete_symbols_by_file", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row scanner) (SymbolRecord, error) {
	var rec SymbolRecord
	var kind string
	var hashBytes, embBytes []byte
	var complexity, startLine, endLine int
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.FilePath, &rec.Name, &kind, &rec.Signature, &complexity, &startLine, &endLine, &hashBytes, &embBytes, &rec.UpdatedAt); err != nil {
		return SymbolRecord{}, err
	}
	rec.Kind = ast.SymbolKind(kind)
	rec.Complexity = complexity
	rec.StartLine = startLine
	rec.EndLine = endLine
	copy(rec.ContentHash[:], hashBytes)
	rec.Embedding = decodeEmbedding(embBytes)
	return rec, nil
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := uint32(b[i*4+0]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
