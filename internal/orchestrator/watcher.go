package orchestrator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors one project's root for filesystem changes and triggers
// a debounced incremental re-index, per spec §4.5's change-detection step.
// New and changed files accumulate in a pending set during the debounce
// window so a burst of saves (an editor writing several files in one
// commit, a branch checkout) collapses into a single re-index pass rather
// than one per event.
type Watcher struct {
	fs   *fsnotify.Watcher
	root string
	orch *Orchestrator

	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]struct{}
	timer    *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onRebuild func(error) // test/observability hook, nil in production
}

// NewWatcher creates a Watcher over root using o's configured debounce
// window and indexing pipeline.
func NewWatcher(o *Orchestrator, root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	debounceMs := o.cfg.Index.DebounceMs
	if debounceMs <= 0 {
		debounceMs = 200
	}
	return &Watcher{
		fs:       fw,
		root:     root,
		orch:     o,
		debounce: time.Duration(debounceMs) * time.Millisecond,
		pending:  make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds recursive watches under root and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop cancels event processing, stops any pending debounce timer, and
// closes the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.fs.Close()
	w.wg.Wait()
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && fastPathSkip[d.Name()] {
			return filepath.SkipDir
		}
		if matchesAny(w.orch.cfg.Index.Exclude, relPath(root, path)) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return nil // a single directory failing to watch does not abort the rest
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.fs.Add(ev.Name)
		}
	}
	if fastPathSkip[filepath.Base(ev.Name)] {
		return
	}
	w.schedule(ev.Name)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.rebuild)
}

// rebuild re-indexes the whole project root rather than just the pending
// file set: the pipeline's content-hash diff already makes unchanged
// files a no-op, so a whole-root walk costs little extra while staying
// correct for renames and moves a per-file diff could miss.
func (w *Watcher) rebuild() {
	w.mu.Lock()
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	_, err := w.orch.Index(context.Background(), w.root, false)
	if w.onRebuild != nil {
		w.onRebuild(err)
	}
}
