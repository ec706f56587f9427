// Package orchestrator ties the parser, PDG, lexical index, vector index,
// and storage layer together into the project registry and request
// dispatch surface spec §4.5 and §6 describe.
package orchestrator

import (
	"path/filepath"
	"sync"

	"github.com/leindex/leindex/internal/config"
	"github.com/leindex/leindex/internal/errors"
	"github.com/leindex/leindex/internal/parser"
	"github.com/leindex/leindex/internal/storage"
)

// Orchestrator is the single entry point a CLI or RPC server calls into.
// It owns the project Registry, the parser, and the write-serialization
// lock that keeps storage/PDG/lexical mutation single-writer per spec
// §5, while index/search/analyze requests for different projects still
// run concurrently against the Registry's map.
type Orchestrator struct {
	cfg      *config.Config
	store    *storage.Store
	parser   *parser.Parser
	registry *Registry
	governor *MemGovernor
	watchers []*Watcher

	// writeMu serializes applyFile across every project: a single writer
	// stage keeps PDG/lexical/storage mutation ordered even though
	// parsing itself runs on a bounded worker pool.
	writeMu sync.Mutex
}

var errUnsupportedLanguage = errors.New(errors.Unsupported, "orchestrator.unsupported_language", "file extension has no registered grammar")

// New builds an Orchestrator over cfg, opening the shared store. It does
// not start the memory governor: a one-shot CLI invocation has no
// background process to protect, so StartMemGovernor is left to the
// long-running `serve` command.
func New(cfg *config.Config) (*Orchestrator, error) {
	registry, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    registry.Store(),
		parser:   parser.New(nil),
		registry: registry,
	}, nil
}

// StartMemGovernor builds and starts a MemGovernor over o, wiring it into
// the Registry so Get/Ensure reject further project loads with
// Unavailable once the governor reports Emergency, per spec §4.5's
// "requests... return Unavailable" failure semantics. Intended for the
// one long-running process (the `serve` command); calling it twice is a
// no-op on the already-running governor.
func (o *Orchestrator) StartMemGovernor() *MemGovernor {
	if o.governor == nil {
		o.governor = NewMemGovernor(o)
		o.registry.SetGovernor(o.governor)
	}
	o.governor.Start()
	return o.governor
}

// StartWatcher starts a debounced fsnotify watcher over root and triggers
// an incremental re-index on every change, per spec §2's "files enter the
// Orchestrator" via watcher or periodic scan data flow. Intended for the
// `serve` command, which is the one process long-running enough for a
// filesystem watch to matter; one-shot CLI commands never call it.
func (o *Orchestrator) StartWatcher(root string) (*Watcher, error) {
	w, err := NewWatcher(o, root)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	o.watchers = append(o.watchers, w)
	return w, nil
}

// Close releases the shared storage handle and stops the memory governor
// and any watchers that were started.
func (o *Orchestrator) Close() error {
	for _, w := range o.watchers {
		w.Stop()
	}
	if o.governor != nil {
		o.governor.Stop()
	}
	return o.registry.Close()
}

// Registry exposes the project registry to the dispatch layer.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
