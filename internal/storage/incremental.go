package storage

// FileDiff is the result of comparing a freshly-parsed file's symbols
// against what is currently persisted for that file, per spec §4.4's
// Salsa-style content-addressed incrementality: only changed and new
// hashes need re-analysis, and hashes whose prior row is now absent are
// deletions.
type FileDiff struct {
	Unchanged []SymbolRecord // prior rows whose content_hash is still present; reuse as-is
	Changed   []SymbolRecord // fresh rows whose name existed before under a different hash
	New       []SymbolRecord // fresh rows with no prior counterpart
	Removed   []SymbolRecord // prior rows with no fresh counterpart
}

// DiffFile compares a file's current persisted symbols against a fresh
// parse, keyed by symbol name within the file (ids are assigned by the
// caller only for New/Changed rows, since Unchanged/Removed already carry
// their ids from the prior rows).
func DiffFile(prior, fresh []SymbolRecord) FileDiff {
	priorByName := make(map[string]SymbolRecord, len(prior))
	for _, p := range prior {
		priorByName[p.Name] = p
	}
	freshByName := make(map[string]SymbolRecord, len(fresh))
	for _, f := range fresh {
		freshByName[f.Name] = f
	}

	var diff FileDiff
	for name, f := range freshByName {
		p, existed := priorByName[name]
		switch {
		case !existed:
			diff.New = append(diff.New, f)
		case p.ContentHash == f.ContentHash:
			diff.Unchanged = append(diff.Unchanged, p)
		default:
			diff.Changed = append(diff.Changed, f)
		}
	}
	for name, p := range priorByName {
		if _, ok := freshByName[name]; !ok {
			diff.Removed = append(diff.Removed, p)
		}
	}
	return diff
}
