package storage

import "database/sql"

// CacheEntry is one analysis_cache row: a content-addressed, cross-project
// reusable record of the expensive-to-recompute parts of analyzing one
// symbol body (its resolved config fingerprint and complexity metrics),
// per spec §4.4.
type CacheEntry struct {
	ContentHash    [32]byte
	CfgBlob        []byte
	ComplexityBlob []byte
	Timestamp      int64
}

// PutAnalysisCache inserts or replaces a cache row keyed by content_hash,
// so any project whose symbol hashes to the same content reuses the same
// row instead of recomputing it.
func (s *Store) PutAnalysisCache(e CacheEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO analysis_cache (content_hash, cfg_blob, complexity_blob, timestamp) VALUES (?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET cfg_blob=excluded.cfg_blob, complexity_blob=excluded.complexity_blob, timestamp=excluded.timestamp
	`, e.ContentHash[:], e.CfgBlob, e.ComplexityBlob, e.Timestamp)
	return mapSQLiteErr("put_analysis_cache", err)
}

// GetAnalysisCache looks up a cached analysis by content_hash, shared
// across every project whose symbol body hashes identically.
func (s *Store) GetAnalysisCache(hash [32]byte) (CacheEntry, bool, error) {
	row := s.db.QueryRow(`SELECT content_hash, cfg_blob, complexity_blob, timestamp FROM analysis_cache WHERE content_hash = ?`, hash[:])
	var e CacheEntry
	var hashBytes []byte
	if err := row.Scan(&hashBytes, &e.CfgBlob, &e.ComplexityBlob, &e.Timestamp); err != nil {
		if err == sql.ErrNoRows {
			return CacheEntry{}, false, nil
		}
		return CacheEntry{}, false, mapSQLiteErr("get_analysis_cache", err)
	}
	copy(e.ContentHash[:], hashBytes)
	return e, true, nil
}

// PruneAnalysisCache trims analysis_cache down to maxRows, evicting the
// oldest entries by timestamp first. This repo's Open Question decision
// (DESIGN.md) is that the cache never auto-expires on its own: rows are
// removed only when a caller invokes this explicitly.
func (s *Store) PruneAnalysisCache(maxRows int) (evicted int, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM analysis_cache`).Scan(&total); err != nil {
		return 0, mapSQLiteErr("prune_analysis_cache", err)
	}
	if total <= maxRows {
		return 0, nil
	}
	toEvict := total - maxRows

	res, err := s.db.Exec(`
		DELETE FROM analysis_cache WHERE content_hash IN (
			SELECT content_hash FROM analysis_cache ORDER BY timestamp ASC LIMIT ?
		)
	`, toEvict)
	if err != nil {
		return 0, mapSQLiteErr("prune_analysis_cache", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
