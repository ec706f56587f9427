package storage

import "database/sql"

// ProjectRecord is the persisted row shape for one indexed project root.
type ProjectRecord struct {
	ID          string
	RootPath    string
	Generation  int64
	LastIndexed int64
}

// UpsertProject registers a project root if new, leaving Generation and
// LastIndexed untouched on an existing row (callers bump those explicitly
// via IncrementGeneration/TouchLastIndexed).
func (s *Store) UpsertProject(id, rootPath string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO projects (id, root_path, generation, last_indexed) VALUES (?, ?, 0, 0)
		ON CONFLICT(id) DO UPDATE SET root_path=excluded.root_path
	`, id, rootPath)
	return mapSQLiteErr("upsert_project", err)
}

// GetProject returns the current generation/last_indexed for a project.
// Generation 0 for a project with no symbols yet matches spec §8's
// empty-project boundary case.
func (s *Store) GetProject(id string) (ProjectRecord, bool, error) {
	row := s.db.QueryRow(`SELECT id, root_path, generation, last_indexed FROM projects WHERE id = ?`, id)
	var rec ProjectRecord
	if err := row.Scan(&rec.ID, &rec.RootPath, &rec.Generation, &rec.LastIndexed); err != nil {
		if err == sql.ErrNoRows {
			return ProjectRecord{}, false, nil
		}
		return ProjectRecord{}, false, mapSQLiteErr("get_project", err)
	}
	return rec, true, nil
}

// ListProjects returns every known project root, ordered by most
// recently indexed first, for cache-warming strategies that must consider
// projects beyond whatever is currently loaded in memory.
func (s *Store) ListProjects() ([]ProjectRecord, error) {
	rows, err := s.db.Query(`SELECT id, root_path, generation, last_indexed FROM projects ORDER BY last_indexed DESC`)
	if err != nil {
		return nil, mapSQLiteErr("list_projects", err)
	}
	defer rows.Close()

	var out []ProjectRecord
	for rows.Next() {
		var rec ProjectRecord
		if err := rows.Scan(&rec.ID, &rec.RootPath, &rec.Generation, &rec.LastIndexed); err != nil {
			return nil, mapSQLiteErr("list_projects", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IncrementGeneration bumps a project's generation counter and records
// last_indexed, so readers mid-query can detect that the data underneath
// them has moved on (spec §4.4 durability requirement).
func (s *Store) IncrementGeneration(id string, indexedAt int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
		UPDATE projects SET generation = generation + 1, last_indexed = ? WHERE id = ?
	`, indexedAt, id)
	return mapSQLiteErr("increment_generation", err)
}
