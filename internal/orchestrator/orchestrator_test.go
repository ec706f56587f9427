package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leindex/leindex/internal/config"
)

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.Default(root)
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), ".leindex")
	cfg.Memory.BudgetMB = 2048
	return cfg
}

func newTestOrchestrator(t *testing.T, root string) *Orchestrator {
	t.Helper()
	o, err := New(testConfig(t, root))
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestIndexFreshProjectFindsSymbolsBySearch covers the fresh-index ->
// search golden path: a brand new project root with one file should be
// immediately hybrid-searchable for a symbol defined in it.
func TestIndexFreshProjectFindsSymbolsBySearch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "initial.go", `package test

func InitialFunction() string {
	return "initial"
}
`)

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	res, err := o.Index(ctx, root, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.FilesProcessed)
	require.Zero(t, res.FilesFailed)
	require.EqualValues(t, 1, res.Generation)

	hits, err := o.Search(ctx, SearchRequest{Query: "InitialFunction", ProjectID: res.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, "initial.go", hits[0].FilePath)
}

// TestIndexIsIncrementalNoOpOnUnchangedContent re-indexing an unchanged
// tree should not touch any symbol rows: the second run produces the same
// generation-relative symbol set with zero failures, and the xxhash fast
// path in parseOneFile should skip every file before it reaches applyFile
// rather than rewriting rows it doesn't need to.
func TestIndexIsIncrementalNoOpOnUnchangedContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", `package test

func Stable() int { return 1 }
`)

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	first, err := o.Index(ctx, root, false)
	require.NoError(t, err)

	second, err := o.Index(ctx, root, false)
	require.NoError(t, err)
	require.Equal(t, first.ProjectID, second.ProjectID)
	require.Greater(t, second.Generation, first.Generation)

	hits, err := o.Search(ctx, SearchRequest{Query: "Stable", ProjectID: first.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

// TestIndexPicksUpNewFileAfterInitialIndex mirrors the new-file addition
// step of the teacher's production-flow test: a file created after the
// first Index call must be discoverable once Index runs again.
func TestIndexPicksUpNewFileAfterInitialIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "initial.go", "package test\n\nfunc InitialFunction() string { return \"x\" }\n")

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	first, err := o.Index(ctx, root, false)
	require.NoError(t, err)

	writeFile(t, root, "newfile.go", "package test\n\nfunc BrandNewFunction() string { return \"y\" }\n")

	_, err = o.Index(ctx, root, false)
	require.NoError(t, err)

	hits, err := o.Search(ctx, SearchRequest{Query: "BrandNewFunction", ProjectID: first.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, "newfile.go", hits[0].FilePath)
}

// TestIndexRemovesSymbolsForDeletedFile covers the Removed branch of
// storage.DiffFile reaching all the way through to the lexical index: once
// a file disappears from disk, its symbols must stop being searchable.
func TestIndexRemovesSymbolsForDeletedFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "gone.go", "package test\n\nfunc Doomed() {}\n")

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	res, err := o.Index(ctx, root, false)
	require.NoError(t, err)

	hits, err := o.Search(ctx, SearchRequest{Query: "Doomed", ProjectID: res.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	require.NoError(t, os.Remove(path))
	_, err = o.Index(ctx, root, false)
	require.NoError(t, err)

	hits, err = o.Search(ctx, SearchRequest{Query: "Doomed", ProjectID: res.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, hits)
}

// TestConcurrentProjectsStayIsolated indexes two independent project
// roots through the same Orchestrator and checks a query scoped to one
// project never surfaces the other's symbols, per spec §5's per-project
// isolation guarantee.
func TestConcurrentProjectsStayIsolated(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, rootA, "a.go", "package a\n\nfunc OnlyInA() {}\n")
	writeFile(t, rootB, "b.go", "package b\n\nfunc OnlyInB() {}\n")

	o := newTestOrchestrator(t, rootA)
	ctx := context.Background()

	resA, err := o.Index(ctx, rootA, false)
	require.NoError(t, err)
	resB, err := o.Index(ctx, rootB, false)
	require.NoError(t, err)
	require.NotEqual(t, resA.ProjectID, resB.ProjectID)

	hitsA, err := o.Search(ctx, SearchRequest{Query: "OnlyInB", ProjectID: resA.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, hitsA)

	hitsB, err := o.Search(ctx, SearchRequest{Query: "OnlyInA", ProjectID: resB.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, hitsB)
}

// TestContextReturnsWindowAndSurroundingSymbols exercises the `context`
// op's line-window extraction and its surrounding-symbol overlap filter.
func TestContextReturnsWindowAndSurroundingSymbols(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "win.go", `package test

func First() int {
	return 1
}

func Second() int {
	return 2
}
`)

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	res, err := o.Index(ctx, root, false)
	require.NoError(t, err)

	out, err := o.Context(ctx, res.ProjectID, "win.go", 7, 2)
	require.NoError(t, err)
	require.Contains(t, out.WindowText, "Second")
	require.NotEmpty(t, out.SurroundingSymbols)
}

// TestDiagnosticsReportsLoadedProjectsAndSymbols covers the `diagnostics`
// op's aggregate counts across the registry's currently-loaded projects.
func TestDiagnosticsReportsLoadedProjectsAndSymbols(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "d.go", "package test\n\nfunc Counted() {}\n")

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	_, err := o.Index(ctx, root, false)
	require.NoError(t, err)

	diag, err := o.Diagnostics(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, diag.IndexStats.LoadedProjects)
	require.GreaterOrEqual(t, diag.IndexStats.TotalSymbols, 1)
}

// TestRegistryReloadSurvivesMemoryGovernorSpill is the package's
// boundary test for the nil-PDG/nil-Vector spill path: after the memory
// governor's spillLRU drops both structures, the project must still be
// fully usable (searchable, re-indexable) on the very next call, since
// Registry.reload is expected to transparently rebuild whatever was
// spilled.
func TestRegistryReloadSurvivesMemoryGovernorSpill(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "s.go", "package test\n\nfunc Survives() {}\n")

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	res, err := o.Index(ctx, root, false)
	require.NoError(t, err)

	proj, err := o.registry.Get(res.ProjectID)
	require.NoError(t, err)
	proj.spillPDG()
	proj.spillVector()
	require.Equal(t, cacheCold, proj.State())

	hits, err := o.Search(ctx, SearchRequest{Query: "Survives", ProjectID: res.ProjectID, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	reloaded, err := o.registry.Get(res.ProjectID)
	require.NoError(t, err)
	require.Equal(t, cacheWarm, reloaded.State())

	_, err = o.Index(ctx, root, false)
	require.NoError(t, err)
}

// TestProjectSkipUnchangedMatchesOnIdenticalBytesOnly covers the xxhash
// fast path Index consults ahead of the parser: a repeat of the exact same
// bytes at the same path should report unchanged, a genuinely different
// path or content should not, and force is the caller's job to check, not
// skipUnchanged's.
func TestProjectSkipUnchangedMatchesOnIdenticalBytesOnly(t *testing.T) {
	p := &Project{}

	require.False(t, p.skipUnchanged("a.go", []byte("package a\n")))
	require.True(t, p.skipUnchanged("a.go", []byte("package a\n")))

	require.False(t, p.skipUnchanged("a.go", []byte("package a // changed\n")))
	require.True(t, p.skipUnchanged("a.go", []byte("package a // changed\n")))

	require.False(t, p.skipUnchanged("b.go", []byte("package a\n")))
}

// TestRegistryRejectsNewLoadsWhileGovernorIsInEmergency covers the
// Unavailable failure path spec §4.5 requires once the memory governor
// reports Emergency: Get/Ensure must fail fast rather than load another
// project on top of an already over-budget process.
func TestRegistryRejectsNewLoadsWhileGovernorIsInEmergency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "g.go", "package test\n\nfunc Gated() {}\n")

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	res, err := o.Index(ctx, root, false)
	require.NoError(t, err)

	gov := NewMemGovernor(o)
	o.registry.SetGovernor(gov)
	gov.mu.Lock()
	gov.level = memEmergency
	gov.mu.Unlock()

	_, err = o.registry.Get(res.ProjectID)
	require.ErrorIs(t, err, errMemoryEmergency)

	_, err = o.registry.Ensure(root)
	require.ErrorIs(t, err, errMemoryEmergency)
}

// TestStartWatcherReindexesOnFileChange covers the `serve`-only change
// detection path: a file written after Start should trigger a debounced
// rebuild that makes its symbol searchable without any explicit Index
// call from the caller.
func TestStartWatcherReindexesOnFileChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "initial.go", "package test\n\nfunc Initial() {}\n")

	cfg := testConfig(t, root)
	cfg.Index.DebounceMs = 20
	o, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })

	_, err = o.Index(context.Background(), root, false)
	require.NoError(t, err)

	rebuilt := make(chan error, 1)
	w, err := o.StartWatcher(root)
	require.NoError(t, err)
	w.onRebuild = func(err error) { rebuilt <- err }

	writeFile(t, root, "watched.go", "package test\n\nfunc WatchedFunction() {}\n")

	select {
	case err := <-rebuilt:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher to trigger a rebuild")
	}

	hits, err := o.Search(context.Background(), SearchRequest{Query: "WatchedFunction", ProjectID: ProjectID(root), Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}

// TestPhaseAllRunsEveryStepAndReportsGeneration covers the `phase` op's
// "all" selector against a fresh project.
func TestPhaseAllRunsEveryStepAndReportsGeneration(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "p.go", "package test\n\nfunc Phased() {}\n")

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	res, err := o.Phase(ctx, PhaseRequest{ProjectPath: root, Phase: "all"})
	require.NoError(t, err)
	require.NotEmpty(t, res.ProjectID)
	require.Equal(t, []int{1, 2, 3, 4, 5}, res.ExecutedPhases)
	require.NotEmpty(t, res.PerPhaseSummaries)
}

// TestHandleRequestDispatchesIndexAndSearch exercises the HandleRequest
// envelope spec §6 names as the transport layer's single entry point.
func TestHandleRequestDispatchesIndexAndSearch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "e.go", "package test\n\nfunc Entry() {}\n")

	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	resp, err := o.HandleRequest(ctx, Request{Kind: KindIndex, Index: IndexRequest{ProjectPath: root}})
	require.NoError(t, err)
	require.NotNil(t, resp.Index)

	resp, err = o.HandleRequest(ctx, Request{Kind: KindSearch, Search: SearchRequest{
		Query:     "Entry",
		ProjectID: resp.Index.ProjectID,
		Limit:     10,
	}})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Search)
}

// TestHandleRequestRejectsUnknownKind covers the default branch of the
// dispatcher's switch.
func TestHandleRequestRejectsUnknownKind(t *testing.T) {
	root := t.TempDir()
	o := newTestOrchestrator(t, root)

	_, err := o.HandleRequest(context.Background(), Request{Kind: RequestKind("bogus")})
	require.Error(t, err)
}
