package rpc

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leindex/leindex/internal/orchestrator"
)

// indexParams is the `index` tool's decoded arguments, per spec §6.
type indexParams struct {
	ProjectPath string `json:"project_path"`
	Force       bool   `json:"force"`
}

// searchParams is the `search` tool's decoded arguments, per spec §6.
type searchParams struct {
	Query           string   `json:"query"`
	ProjectID       string   `json:"project_id"`
	FilePatterns    []string `json:"file_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	Language        string   `json:"language"`
	Kind            string   `json:"kind"`
	Limit           int      `json:"limit"`
	Mode            string   `json:"mode"`
}

// analyzeParams is the `analyze` tool's decoded arguments, per spec §6.
type analyzeParams struct {
	ProjectID    string `json:"project_id"`
	FilePath     string `json:"file_path"`
	SymbolName   string `json:"symbol_name"`
	Query        string `json:"query"`
	BudgetTokens int    `json:"budget_tokens"`
}

// contextParams is the `context` tool's decoded arguments, per spec §6.
type contextParams struct {
	ProjectID    string `json:"project_id"`
	FilePath     string `json:"file_path"`
	LineNumber   int    `json:"line_number"`
	ContextLines int    `json:"context_lines"`
}

// phaseParams is the `phase` tool's decoded arguments, per spec §6.
type phaseParams struct {
	ProjectPath string `json:"project_path"`
	Phase       string `json:"phase"`
	Force       bool   `json:"force"`
}

// registerTools wires one mcp.Tool per spec §6 op onto s.server. Every
// handler's body is a decode-dispatch-respond triple; none contain any
// domain logic themselves.
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "index",
		Description: "Index (or re-index) one project root, parsing every matching file and updating the symbol graph and search indices.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project_path": {Type: "string", Description: "Absolute path to the project root to index"},
				"force":        {Type: "boolean", Description: "Reprocess every file regardless of content hash"},
			},
			Required: []string{"project_path"},
		},
	}, s.handleIndex)

	s.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "Hybrid lexical/vector/structural search over one already-indexed project.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":            {Type: "string", Description: "Search query text"},
				"project_id":       {Type: "string", Description: "Project id returned by a prior index call"},
				"file_patterns":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Glob patterns a hit's file path must match"},
				"exclude_patterns": {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Glob patterns a hit's file path must not match"},
				"language":         {Type: "string", Description: "Restrict results to one language"},
				"kind":             {Type: "string", Description: "Restrict results to one symbol kind"},
				"limit":            {Type: "integer", Description: "Maximum hits to return (default 10)"},
				"mode":             {Type: "string", Description: "\"hybrid\" (default), \"lexical\", or \"vector\""},
			},
			Required: []string{"query", "project_id"},
		},
	}, s.handleSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze",
		Description: "Build a token-budgeted analysis bundle for a file, symbol, or natural-language question about one project.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project_id":    {Type: "string", Description: "Project id returned by a prior index call"},
				"file_path":     {Type: "string", Description: "File path relative to the project root"},
				"symbol_name":   {Type: "string", Description: "Symbol name to narrow the file lookup to"},
				"query":         {Type: "string", Description: "Natural-language question; takes precedence over file_path/symbol_name"},
				"budget_tokens": {Type: "integer", Description: "Approximate token budget for the bundle (default 2000)"},
			},
			Required: []string{"project_id"},
		},
	}, s.handleAnalyze)

	s.server.AddTool(&mcp.Tool{
		Name:        "context",
		Description: "Return a source window around a line plus the symbols whose ranges overlap it.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project_id":    {Type: "string", Description: "Project id returned by a prior index call"},
				"file_path":     {Type: "string", Description: "File path relative to the project root"},
				"line_number":   {Type: "integer", Description: "1-based line number to center the window on"},
				"context_lines": {Type: "integer", Description: "Lines of context on each side (default 10)"},
			},
			Required: []string{"project_id", "file_path", "line_number"},
		},
	}, s.handleContext)

	s.server.AddTool(&mcp.Tool{
		Name:        "phase",
		Description: "Run the indexing pipeline for interactive debugging, reporting a per-stage summary: stage 1 only enumerates files; any stage 2-5 or \"all\" runs the complete pipeline.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project_path": {Type: "string", Description: "Absolute path to the project root"},
				"phase":        {Type: "string", Description: "\"all\" or a stage number 1-5"},
				"force":        {Type: "boolean", Description: "Reprocess every file regardless of content hash"},
			},
			Required: []string{"project_path"},
		},
	}, s.handlePhase)

	s.server.AddTool(&mcp.Tool{
		Name:        "diagnostics",
		Description: "Report server version, memory usage, and per-project index statistics.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
		},
	}, s.handleDiagnostics)
}

func (s *Server) handleIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p indexParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return errorResult("index", err)
	}
	resp, err := s.orch.HandleRequest(ctx, orchestrator.Request{
		Kind:  orchestrator.KindIndex,
		Index: orchestrator.IndexRequest{ProjectPath: p.ProjectPath, Force: p.Force},
	})
	if err != nil {
		return errorResult("index", err)
	}
	return jsonResult(resp.Index)
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p searchParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return errorResult("search", err)
	}
	resp, err := s.orch.HandleRequest(ctx, orchestrator.Request{
		Kind: orchestrator.KindSearch,
		Search: orchestrator.SearchRequest{
			Query:     p.Query,
			ProjectID: p.ProjectID,
			Filters: orchestrator.SearchFilters{
				FilePatterns:    p.FilePatterns,
				ExcludePatterns: p.ExcludePatterns,
				Language:        p.Language,
				Kind:            p.Kind,
			},
			Limit: p.Limit,
			Mode:  orchestrator.SearchMode(p.Mode),
		},
	})
	if err != nil {
		return errorResult("search", err)
	}
	return jsonResult(resp.Search)
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p analyzeParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return errorResult("analyze", err)
	}
	resp, err := s.orch.HandleRequest(ctx, orchestrator.Request{
		Kind: orchestrator.KindAnalyze,
		Analyze: orchestrator.AnalyzeRequest{
			ProjectID:    p.ProjectID,
			FilePath:     p.FilePath,
			SymbolName:   p.SymbolName,
			Query:        p.Query,
			BudgetTokens: p.BudgetTokens,
		},
	})
	if err != nil {
		return errorResult("analyze", err)
	}
	return jsonResult(resp.Analyze)
}

func (s *Server) handleContext(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p contextParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return errorResult("context", err)
	}
	resp, err := s.orch.HandleRequest(ctx, orchestrator.Request{
		Kind: orchestrator.KindContext,
		ContextReq: orchestrator.ContextRequest{
			ProjectID:    p.ProjectID,
			FilePath:     p.FilePath,
			LineNumber:   p.LineNumber,
			ContextLines: p.ContextLines,
		},
	})
	if err != nil {
		return errorResult("context", err)
	}
	return jsonResult(resp.ContextRes)
}

func (s *Server) handlePhase(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p phaseParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return errorResult("phase", err)
	}
	resp, err := s.orch.HandleRequest(ctx, orchestrator.Request{
		Kind: orchestrator.KindPhase,
		Phase: orchestrator.PhaseRequest{
			ProjectPath: p.ProjectPath,
			Phase:       p.Phase,
			Force:       p.Force,
		},
	})
	if err != nil {
		return errorResult("phase", err)
	}
	return jsonResult(resp.Phase)
}

func (s *Server) handleDiagnostics(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.orch.HandleRequest(ctx, orchestrator.Request{Kind: orchestrator.KindDiagnostics})
	if err != nil {
		return errorResult("diagnostics", err)
	}
	return jsonResult(resp.Diagnostics)
}
