package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leindex/leindex/internal/errors"
	"github.com/leindex/leindex/internal/lexical"
	"github.com/leindex/leindex/internal/search"
	"github.com/leindex/leindex/internal/storage"
	"github.com/leindex/leindex/internal/version"
)

// SearchFilters narrows a search request by file glob, language, and
// symbol kind, per spec §6's `search` op.
type SearchFilters struct {
	FilePatterns    []string
	ExcludePatterns []string
	Language        string
	Kind            string
}

// SearchMode selects which of §4.3's three query shapes to run.
type SearchMode string

const (
	ModeHybrid   SearchMode = "hybrid"
	ModeLexical  SearchMode = "lexical"
	ModeVector   SearchMode = "vector"
)

// SearchRequest is the `search` op's input, per spec §6.
type SearchRequest struct {
	Query     string
	ProjectID string
	Filters   SearchFilters
	Limit     int
	Mode      SearchMode
}

// ResultHit is the `search` op's per-result shape, spec §6's `Hit`.
type ResultHit struct {
	SymbolID        uint64
	ProjectID       string
	FilePath        string
	SymbolName      string
	Kind            string
	LineRange       [2]int
	ScoreOverall    float64
	ScoreSemantic   float64
	ScoreStructural float64
	ScoreText       float64
	Snippet         string
}

// Search runs the `search` op against one project's fused search engine.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) ([]ResultHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.Timeout, "orchestrator.request_cancelled", "search request's context ended before dispatch", err)
	}
	if req.ProjectID == "" {
		return nil, errors.New(errors.InvalidInput, "orchestrator.project_id_required", "search requires a project_id")
	}
	proj, err := o.registry.Get(req.ProjectID)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	filters := lexical.Filters{ProjectID: req.ProjectID, Language: req.Filters.Language, Kind: req.Filters.Kind}

	var hits []search.Hit
	switch req.Mode {
	case ModeLexical:
		hits, err = proj.Engine.LexicalSearch(req.Query, lexical.QueryCaseInsensitive, filters, limit)
	case ModeVector:
		return nil, errors.New(errors.Unavailable, "search.vector_mode_requires_embedding", "vector mode requires a pre-computed query embedding, not yet wired through this op")
	default: // ModeHybrid, "" (spec §6 default)
		hits, err = proj.Engine.Hybrid(req.Query, search.ClassifyIntent(req.Query), nil, filters, limit)
	}
	if err != nil {
		return nil, err
	}

	out := make([]ResultHit, 0, len(hits))
	for _, h := range hits {
		rec, ok, err := o.store.GetSymbolByID(h.SymbolID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !matchesPatterns(rec.FilePath, req.Filters.FilePatterns, req.Filters.ExcludePatterns) {
			continue
		}
		out = append(out, ResultHit{
			SymbolID:        rec.ID,
			ProjectID:       rec.ProjectID,
			FilePath:        rec.FilePath,
			SymbolName:      rec.Name,
			Kind:            string(rec.Kind),
			LineRange:       [2]int{rec.StartLine, rec.EndLine},
			ScoreOverall:    h.Overall,
			ScoreSemantic:   h.Semantic,
			ScoreStructural: h.Structural,
			ScoreText:       h.Text,
		})
	}
	return out, nil
}

func matchesPatterns(filePath string, include, exclude []string) bool {
	for _, pat := range exclude {
		if ok, _ := doublestar.Match(pat, filePath); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if ok, _ := doublestar.Match(pat, filePath); ok {
			return true
		}
	}
	return false
}

// AnalyzeRequest is the `analyze` op's input, per spec §6.
type AnalyzeRequest struct {
	ProjectID   string
	FilePath    string
	SymbolName  string
	Query       string
	BudgetTokens int
}

// Analyze runs the `analyze` op, dispatching to NLQuery when Query is set.
// Otherwise it returns the symbols recorded for FilePath (narrowed to
// SymbolName when set) as direct-lookup entries within the budget; this
// path does no PDG expansion, and a SymbolName without a FilePath yields an
// empty bundle.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (search.AnalysisBundle, error) {
	if err := ctx.Err(); err != nil {
		return search.AnalysisBundle{}, errors.Wrap(errors.Timeout, "orchestrator.request_cancelled", "analyze request's context ended before dispatch", err)
	}
	proj, err := o.registry.Get(req.ProjectID)
	if err != nil {
		return search.AnalysisBundle{}, err
	}
	budget := req.BudgetTokens
	if budget <= 0 {
		budget = 2000
	}

	excerptOf := func(symbolID uint64) (string, string) {
		rec, ok, err := o.store.GetSymbolByID(symbolID)
		if err != nil || !ok {
			return "", ""
		}
		return rec.Signature, rec.FilePath
	}

	if req.Query != "" {
		return proj.Engine.NLQuery(req.Query, req.ProjectID, budget, nil, proj.PDG, excerptOf)
	}

	var recs []storage.SymbolRecord
	if req.FilePath != "" {
		recs, err = o.store.GetSymbolsByFile(req.ProjectID, req.FilePath)
	}
	if err != nil {
		return search.AnalysisBundle{}, err
	}
	if req.SymbolName != "" {
		filtered := recs[:0]
		for _, r := range recs {
			if r.Name == req.SymbolName {
				filtered = append(filtered, r)
			}
		}
		recs = filtered
	}

	bundle := search.AnalysisBundle{}
	spent := 0
	for _, r := range recs {
		cost := len(r.Signature)/4 + 8
		if spent+cost > budget {
			break
		}
		spent += cost
		bundle.Entries = append(bundle.Entries, search.BundleEntry{SymbolID: r.ID, Excerpt: r.Signature, Reason: "direct lookup"})
	}
	bundle.TokensUsed = spent
	return bundle, nil
}

// ContextResult is the `context` op's output, per spec §6.
type ContextResult struct {
	WindowText        string
	SurroundingSymbols []ResultHit
}

// Context returns a source window around a line plus the symbols whose
// ranges overlap it, per spec §6's `context` op.
func (o *Orchestrator) Context(ctx context.Context, projectID, filePath string, lineNumber, contextLines int) (ContextResult, error) {
	if err := ctx.Err(); err != nil {
		return ContextResult{}, errors.Wrap(errors.Timeout, "orchestrator.request_cancelled", "context request's context ended before dispatch", err)
	}
	if contextLines <= 0 {
		contextLines = 10
	}
	proj, err := o.registry.Get(projectID)
	if err != nil {
		return ContextResult{}, err
	}

	absPath := filePath
	if proj.RootPath != "" {
		absPath = proj.RootPath + string(os.PathSeparator) + filePath
	}
	window, err := readWindow(absPath, lineNumber, contextLines)
	if err != nil {
		return ContextResult{}, err
	}

	recs, err := o.store.GetSymbolsByFile(projectID, filePath)
	if err != nil {
		return ContextResult{}, err
	}
	lo, hi := lineNumber-contextLines, lineNumber+contextLines
	var surrounding []ResultHit
	for _, r := range recs {
		if r.EndLine < lo || r.StartLine > hi {
			continue
		}
		surrounding = append(surrounding, ResultHit{
			SymbolID:   r.ID,
			ProjectID:  r.ProjectID,
			FilePath:   r.FilePath,
			SymbolName: r.Name,
			Kind:       string(r.Kind),
			LineRange:  [2]int{r.StartLine, r.EndLine},
		})
	}
	return ContextResult{WindowText: window, SurroundingSymbols: surrounding}, nil
}

func readWindow(path string, line, contextLines int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(errors.NotFound, "orchestrator.file_not_found", "could not open file for context", err)
	}
	defer f.Close()

	lo := line - contextLines
	if lo < 1 {
		lo = 1
	}
	hi := line + contextLines

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if n < lo {
			continue
		}
		if n > hi {
			break
		}
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// IndexRequest is the `index` op's input.
type IndexRequest struct {
	ProjectPath string
	Force       bool
}

// Diagnostics is the `diagnostics` op's output, per spec §6.
type Diagnostics struct {
	Version     string
	RSSBytes    uint64
	Projects    []ProjectDiagnostic
	IndexStats  IndexStats
}

// ProjectDiagnostic summarizes one loaded project's residency and size.
type ProjectDiagnostic struct {
	ProjectID  string
	RootPath   string
	Generation int64
	State      string
}

// IndexStats aggregates symbol/edge counts across every loaded project.
type IndexStats struct {
	LoadedProjects int
	TotalSymbols   int
}

// Diagnostics runs the `diagnostics` op.
func (o *Orchestrator) Diagnostics(ctx context.Context) (Diagnostics, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	all := o.registry.All()
	diags := make([]ProjectDiagnostic, 0, len(all))
	totalSymbols := 0
	for _, p := range all {
		diags = append(diags, ProjectDiagnostic{
			ProjectID:  p.ID,
			RootPath:   p.RootPath,
			Generation: p.Generation,
			State:      cacheStateName(p.State()),
		})
		if graph := p.PDG; graph != nil {
			totalSymbols += graph.Len()
		}
	}

	return Diagnostics{
		Version:  version.Version,
		RSSBytes: ms.Sys,
		Projects: diags,
		IndexStats: IndexStats{
			LoadedProjects: len(all),
			TotalSymbols:   totalSymbols,
		},
	}, nil
}

func cacheStateName(s cacheState) string {
	switch s {
	case cacheWarm:
		return "warm"
	case cachePDGOnly:
		return "pdg_only"
	case cacheSearchOnly:
		return "search_only"
	default:
		return "cold"
	}
}

// PhaseRequest is the `phase` op's input, per spec §6; phase is "all" or
// a stage number 1-5 mapping onto the indexing pipeline's own numbered
// steps (enumerate, parse, diff+apply, pdg/index update, generation bump).
type PhaseRequest struct {
	ProjectPath string
	Phase       string
	Force       bool
}

// PhaseResult is the `phase` op's output.
type PhaseResult struct {
	ProjectID       string
	Generation      int64
	ExecutedPhases  []int
	CacheHit        bool
	Changed         int
	Deleted         int
	PerPhaseSummaries []string
	FormattedOutput string
}

// Phase runs the indexing pipeline for the requested stage, reporting a
// summary per executed stage. Unlike `index`, it is meant for
// interactive/debugging use: running phase "1" only enumerates files
// (after Registry.Ensure has loaded the project). Any stage from 2 to 5,
// like "all", runs the complete pipeline exactly as `index` does and
// reports stages 1-5 as executed; stages 2-4 cannot be run on their own.
func (o *Orchestrator) Phase(ctx context.Context, req PhaseRequest) (PhaseResult, error) {
	target := 5
	if req.Phase != "" && req.Phase != "all" {
		if _, err := fmt.Sscanf(req.Phase, "%d", &target); err != nil {
			return PhaseResult{}, errors.New(errors.InvalidInput, "orchestrator.invalid_phase", "phase must be 1-5 or \"all\"")
		}
	}

	proj, err := o.registry.Ensure(req.ProjectPath)
	if err != nil {
		return PhaseResult{}, err
	}

	result := PhaseResult{ProjectID: proj.ID}
	files, err := walk(req.ProjectPath, &o.cfg.Index)
	if err != nil {
		return PhaseResult{}, err
	}
	result.ExecutedPhases = append(result.ExecutedPhases, 1)
	result.PerPhaseSummaries = append(result.PerPhaseSummaries, fmt.Sprintf("phase 1: enumerated %d files", len(files)))
	if target < 2 {
		result.Generation = proj.Generation
		result.FormattedOutput = strings.Join(result.PerPhaseSummaries, "\n")
		return result, nil
	}

	indexResult, err := o.Index(ctx, req.ProjectPath, req.Force)
	if err != nil {
		return PhaseResult{}, err
	}
	result.Generation = indexResult.Generation
	result.Changed = indexResult.FilesProcessed
	result.Deleted = indexResult.FilesFailed
	result.ExecutedPhases = append(result.ExecutedPhases, 2, 3, 4, 5)
	result.PerPhaseSummaries = append(result.PerPhaseSummaries,
		"phase 2: parsed and hashed candidate files",
		"phase 3: diffed against storage",
		fmt.Sprintf("phase 4: applied %d files, %d PDG/index updates", indexResult.FilesProcessed, indexResult.FilesProcessed),
		fmt.Sprintf("phase 5: generation advanced to %d", indexResult.Generation),
	)
	result.FormattedOutput = strings.Join(result.PerPhaseSummaries, "\n")
	return result, nil
}

// RequestKind selects which operation HandleRequest dispatches to, per
// spec §4.5's "single handle_request(req) -> resp entry point".
type RequestKind string

const (
	KindIndex       RequestKind = "index"
	KindSearch      RequestKind = "search"
	KindAnalyze     RequestKind = "analyze"
	KindContext     RequestKind = "context"
	KindPhase       RequestKind = "phase"
	KindDiagnostics RequestKind = "diagnostics"
)

// Request is the transport-agnostic envelope the RPC server builds and
// passes to HandleRequest; the CLI calls the Orchestrator methods directly. Exactly one of the op-specific fields
// is read, selected by Kind; the rest are ignored.
type Request struct {
	Kind RequestKind

	Index       IndexRequest
	Search      SearchRequest
	Analyze     AnalyzeRequest
	ContextReq  ContextRequest
	Phase       PhaseRequest
}

// ContextRequest is the `context` op's input, broken out as its own type
// so Request can carry it by value like every other op.
type ContextRequest struct {
	ProjectID    string
	FilePath     string
	LineNumber   int
	ContextLines int
}

// Response is HandleRequest's return envelope; exactly one payload field
// is populated, matching the Request's Kind.
type Response struct {
	Index       *IndexResult
	Search      []ResultHit
	Analyze     *search.AnalysisBundle
	ContextRes  *ContextResult
	Phase       *PhaseResult
	Diagnostics *Diagnostics
}

// HandleRequest is the single entry point the RPC transport calls into;
// that transport is a thin adapter that builds a Request and relays
// Response back to its wire format, per spec §1's "thin collaborator"
// boundary.
func (o *Orchestrator) HandleRequest(ctx context.Context, req Request) (Response, error) {
	switch req.Kind {
	case KindIndex:
		res, err := o.Index(ctx, req.Index.ProjectPath, req.Index.Force)
		if err != nil {
			return Response{}, err
		}
		return Response{Index: &res}, nil

	case KindSearch:
		hits, err := o.Search(ctx, req.Search)
		if err != nil {
			return Response{}, err
		}
		return Response{Search: hits}, nil

	case KindAnalyze:
		bundle, err := o.Analyze(ctx, req.Analyze)
		if err != nil {
			return Response{}, err
		}
		return Response{Analyze: &bundle}, nil

	case KindContext:
		c := req.ContextReq
		res, err := o.Context(ctx, c.ProjectID, c.FilePath, c.LineNumber, c.ContextLines)
		if err != nil {
			return Response{}, err
		}
		return Response{ContextRes: &res}, nil

	case KindPhase:
		res, err := o.Phase(ctx, req.Phase)
		if err != nil {
			return Response{}, err
		}
		return Response{Phase: &res}, nil

	case KindDiagnostics:
		diag, err := o.Diagnostics(ctx)
		if err != nil {
			return Response{}, err
		}
		return Response{Diagnostics: &diag}, nil

	default:
		return Response{}, errors.New(errors.InvalidInput, "orchestrator.unknown_request_kind", "unrecognized request kind: "+string(req.Kind))
	}
}
