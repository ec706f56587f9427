package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leindex/leindex/internal/config"
)

// fastPathSkip is an O(1) fast-path set of directory names that are always
// ignored without consulting the pattern tree, per spec §4.5 step 1.
var fastPathSkip = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	".leindex":     true,
	"dist":         true,
	"build":        true,
}

// walk enumerates every file under root honoring cfg's include/exclude
// glob patterns and the fast-path skip set, per spec §4.5 step 1.
func walk(root string, cfg *config.IndexConfig) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // a single unreadable entry does not abort the whole walk
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path != root && fastPathSkip[d.Name()] {
				return filepath.SkipDir
			}
			if matchesAny(cfg.Exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(cfg.Include) > 0 && !matchesAny(cfg.Include, rel) {
			return nil
		}
		if matchesAny(cfg.Exclude, rel) {
			return nil
		}
		if info, statErr := d.Info(); statErr == nil && cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize {
			return nil
		}
		files = append(files, path)
		if cfg.MaxFileCount > 0 && len(files) >= cfg.MaxFileCount {
			return filepath.SkipAll
		}
		return nil
	})
	return files, err
}

func matchesAny(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range patterns {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
