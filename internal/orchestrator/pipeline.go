package orchestrator

import (
	"context"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leindex/leindex/internal/ast"
	"github.com/leindex/leindex/internal/lexical"
	"github.com/leindex/leindex/internal/parser"
	"github.com/leindex/leindex/internal/pdg"
	"github.com/leindex/leindex/internal/storage"
)

// IndexResult is the `index` op's response shape from spec §6.
type IndexResult struct {
	ProjectID     string
	FilesProcessed int
	FilesFailed   int
	Generation    int64
	DurationMs    int64
}

// fileParse is one worker's output before it reaches the single-writer
// stage: parsing/hashing happen in parallel, but applying the result to
// storage and the in-memory indices is serialized per spec §4.5's
// parallelism rule.
type fileParse struct {
	path      string
	result    ast.ParseResult
	err       error
	unchanged bool // xxhash fast path matched; skip the single-writer stage entirely
}

// Index runs the full indexing pipeline (spec §4.5 steps 1-7) for one
// project root. force reprocesses every file regardless of content hash.
func (o *Orchestrator) Index(ctx context.Context, rootPath string, force bool) (IndexResult, error) {
	start := time.Now()
	proj, err := o.registry.Ensure(rootPath)
	if err != nil {
		return IndexResult{}, err
	}

	files, err := walk(rootPath, &o.cfg.Index)
	if err != nil {
		return IndexResult{}, err
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	results := make(chan fileParse, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	go func() {
		defer close(results)
		for _, path := range files {
			path := path
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				fp := parseOneFile(proj, rootPath, path, o.parser, force)
				select {
				case results <- fp:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	processed, failed := 0, 0
	for fp := range results {
		if fp.err != nil {
			failed++
			continue
		}
		if fp.unchanged {
			processed++
			continue
		}
		if err := o.applyFile(proj, rootPath, fp.path, fp.result, force); err != nil {
			failed++
			continue
		}
		processed++
	}

	indexedAt := time.Now().Unix()
	if err := o.store.IncrementGeneration(proj.ID, indexedAt); err != nil {
		return IndexResult{}, err
	}
	rec, _, err := o.store.GetProject(proj.ID)
	if err != nil {
		return IndexResult{}, err
	}
	proj.Generation = rec.Generation

	return IndexResult{
		ProjectID:      proj.ID,
		FilesProcessed: processed,
		FilesFailed:    failed,
		Generation:     proj.Generation,
		DurationMs:     time.Since(start).Milliseconds(),
	}, nil
}

// parseOneFile reads and parses one file, first checking proj's xxhash
// fast path so a file whose raw bytes are unchanged since the last index
// run never reaches the tree-sitter parser at all. force bypasses the
// fast path, matching Index's documented "reprocess every file" contract.
func parseOneFile(proj *Project, rootPath, path string, p *parser.Parser, force bool) fileParse {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileParse{path: path, err: err}
	}
	if !force && proj.skipUnchanged(relPath(rootPath, path), content) {
		return fileParse{path: path, unchanged: true}
	}
	lang, ok := p.DetectLanguage(path)
	if !ok {
		return fileParse{path: path, err: errUnsupportedLanguage}
	}
	result, err := p.Parse(lang, proj.ID, path, content)
	return fileParse{path: path, result: result, err: err}
}

// applyFile runs pipeline steps 4-6 for one file's parse result: diff
// against storage, apply deletes/upserts transactionally, then feed the
// PDG builder and lexical index. This is the single-writer stage; the
// Orchestrator serializes calls to it across all projects via writeMu.
func (o *Orchestrator) applyFile(proj *Project, rootPath, path string, result ast.ParseResult, force bool) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	if err := o.registry.reload(proj); err != nil {
		return err
	}

	rel := relPath(rootPath, path)
	prior, err := o.store.GetSymbolsByFile(proj.ID, rel)
	if err != nil {
		return err
	}

	fresh := make([]storage.SymbolRecord, len(result.Symbols))
	for i, s := range result.Symbols {
		fresh[i] = storage.SymbolRecord{
			ID:          SymbolID(proj.ID, rel, s.Name, s.Kind),
			ProjectID:   proj.ID,
			FilePath:    rel,
			Name:        s.Name,
			Kind:        s.Kind,
			Signature:   s.SignatureText,
			Complexity:  s.Complexity.Cyclomatic,
			StartLine:   s.StartLine,
			EndLine:     s.EndLine,
			ContentHash: s.ContentHash,
			Embedding:   s.Embedding,
		}
	}

	var diff storage.FileDiff
	if force {
		diff = storage.FileDiff{New: fresh, Removed: prior}
	} else {
		diff = storage.DiffFile(prior, fresh)
	}

	if len(diff.Removed) > 0 {
		if err := o.store.DeleteSymbolsByFile(proj.ID, rel); err != nil {
			return err
		}
		for _, r := range diff.Removed {
			proj.PDG.RemoveNode(r.ID)
			proj.Lexical.Remove(r.ID)
			proj.Vector.Delete(r.ID)
		}
	}

	upserts := append(append([]storage.SymbolRecord{}, diff.New...), diff.Changed...)
	now := time.Now().Unix()
	if len(upserts) > 0 {
		if err := o.store.BatchUpsertSymbols(upserts, now); err != nil {
			return err
		}
	}
	for _, rec := range upserts {
		if _, err := proj.PDG.UpsertNode(pdg.Node{
			SymbolID:   rec.ID,
			ProjectID:  rec.ProjectID,
			Name:       rec.Name,
			FilePath:   rec.FilePath,
			Complexity: rec.Complexity,
		}); err != nil {
			return err
		}
		proj.Lexical.Upsert(lexical.Meta{SymbolID: rec.ID, ProjectID: rec.ProjectID, FilePath: rec.FilePath, Kind: string(rec.Kind), Complexity: rec.Complexity},
			rec.Name, rec.Signature, "", rec.FilePath)
	}

	edges := buildHintEdges(proj.ID, rel, upserts, result.Hints)
	if len(edges) > 0 {
		if err := o.store.BatchUpsertEdges(edges); err != nil {
			return err
		}
		pdgEdges := make([]pdg.Edge, 0, len(edges))
		for _, e := range edges {
			from, ok1 := proj.PDG.NodeBySymbol(e.CallerID)
			to, ok2 := proj.PDG.NodeBySymbol(e.CalleeID)
			kind, ok3 := storage.EdgeKindFromName(e.EdgeType)
			if ok1 && ok2 && ok3 {
				pdgEdges = append(pdgEdges, pdg.Edge{From: from, To: to, Kind: kind})
			}
		}
		proj.PDG.AddEdges(pdgEdges)
	}
	return nil
}

// buildHintEdges resolves a file's ParseHints (which name callees/supers
// by symbol name, not id) against this file's freshly-upserted symbols.
// Names are not resolved across files or against this file's unchanged
// symbols: an edge whose endpoint is not among upserts is simply never
// added, in line with spec §4.2's "dangling edges are dropped" rule.
func buildHintEdges(projectID, filePath string, upserts []storage.SymbolRecord, hints ast.ParseHints) []storage.EdgeRecord {
	byName := make(map[string]uint64, len(upserts))
	for _, u := range upserts {
		byName[u.Name] = u.ID
	}

	var edges []storage.EdgeRecord
	for _, c := range hints.Calls {
		caller, ok1 := byName[c.CallerName]
		callee, ok2 := byName[c.CalleeName]
		if ok1 && ok2 {
			edges = append(edges, storage.EdgeRecord{CallerID: caller, CalleeID: callee, EdgeType: "call"})
		}
	}
	for _, inh := range hints.Inheritances {
		sub, ok1 := byName[inh.SubName]
		super, ok2 := byName[inh.SuperName]
		if ok1 && ok2 {
			edges = append(edges, storage.EdgeRecord{CallerID: sub, CalleeID: super, EdgeType: "inheritance"})
		}
	}
	for _, df := range hints.DataFlows {
		from, ok1 := byName[df.FromName]
		to, ok2 := byName[df.ToName]
		if ok1 && ok2 {
			edges = append(edges, storage.EdgeRecord{CallerID: from, CalleeID: to, EdgeType: "data_flow"})
		}
	}
	return edges
}
