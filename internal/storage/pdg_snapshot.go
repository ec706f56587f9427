package storage

import (
	"strconv"

	"github.com/leindex/leindex/internal/pdg"
)

// edgeKindName is the persisted spelling for each in-memory edge kind.
func edgeKindName(k pdg.EdgeKind) string {
	switch k {
	case pdg.EdgeCall:
		return "call"
	case pdg.EdgeDataFlow:
		return "data_flow"
	case pdg.EdgeInheritance:
		return "inheritance"
	case pdg.EdgeControlFlow:
		return "control_flow"
	default:
		return "edge_kind_" + strconv.Itoa(int(k))
	}
}

// EdgeKindFromName is edgeKindName's inverse, used when rehydrating edge
// rows back into an in-memory pdg.Graph. It reports ok=false for any
// edge_type it does not recognize rather than aliasing it to some other
// kind, so a row written by a future/unknown writer is dropped loudly
// instead of silently corrupted into a different edge on reload.
func EdgeKindFromName(name string) (kind pdg.EdgeKind, ok bool) {
	switch name {
	case "call":
		return pdg.EdgeCall, true
	case "data_flow":
		return pdg.EdgeDataFlow, true
	case "inheritance":
		return pdg.EdgeInheritance, true
	case "control_flow":
		return pdg.EdgeControlFlow, true
	default:
		return 0, false
	}
}

// SavePDGSnapshot persists every node/edge of an in-memory PDG belonging to
// one project. Per spec §4.4 there is no separate serialized snapshot
// blob: saving one is a batch upsert of the symbols and edges rows that
// already constitute the graph.
func (s *Store) SavePDGSnapshot(projectID string, g *pdg.Graph) error {
	nodes, edges := g.Snapshot(projectID)

	recs := make([]SymbolRecord, len(nodes))
	for i, n := range nodes {
		recs[i] = SymbolRecord{
			ID:         n.SymbolID,
			ProjectID:  n.ProjectID,
			FilePath:   n.FilePath,
			Name:       n.Name,
			Complexity: n.Complexity,
		}
	}
	if err := s.BatchUpsertSymbols(recs, 0); err != nil {
		return err
	}

	edgeRecs := make([]EdgeRecord, len(edges))
	for i, e := range edges {
		edgeRecs[i] = EdgeRecord{
			CallerID: nodeSymbolOf(nodes, e.From),
			CalleeID: nodeSymbolOf(nodes, e.To),
			EdgeType: edgeKindName(e.Kind),
		}
	}
	return s.BatchUpsertEdges(edgeRecs)
}

func nodeSymbolOf(nodes []pdg.Node, id uint32) uint64 {
	for _, n := range nodes {
		if n.ID == id {
			return n.SymbolID
		}
	}
	return 0
}

// LoadPDG reconstructs a project's node and edge rows for rebuilding an
// in-memory PDG on startup, composed from the symbols+edges tables per
// spec §4.4 (no separate serialized blob).
func (s *Store) LoadPDG(projectID string) ([]SymbolRecord, []EdgeRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, file_path, symbol_name, kind, signature, complexity, start_line, end_line, content_hash, embedding, updated_at
		FROM symbols WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, nil, mapSQLiteErr("load_pdg", err)
	}
	var symbols []SymbolRecord
	for rows.Next() {
		rec, err := scanSymbol(rows)
		if err != nil {
			rows.Close()
			return nil, nil, mapSQLiteErr("load_pdg", err)
		}
		symbols = append(symbols, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, mapSQLiteErr("load_pdg", err)
	}
	rows.Close()

	edgeRows, err := s.db.Query(`
		SELECT caller_id, callee_id, edge_type, metadata FROM edges
		WHERE caller_id IN (SELECT id FROM symbols WHERE project_id = ?)
	`, projectID)
	if err != nil {
		return nil, nil, mapSQLiteErr("load_pdg", err)
	}
	defer edgeRows.Close()

	var edges []EdgeRecord
	for edgeRows.Next() {
		var e EdgeRecord
		if err := edgeRows.Scan(&e.CallerID, &e.CalleeID, &e.EdgeType, &e.Metadata); err != nil {
			return nil, nil, mapSQLiteErr("load_pdg", err)
		}
		edges = append(edges, e)
	}
	return symbols, edges, mapSQLiteErr("load_pdg", edgeRows.Err())
}
