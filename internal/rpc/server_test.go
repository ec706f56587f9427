package rpc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/leindex/leindex/internal/config"
	"github.com/leindex/leindex/internal/orchestrator"
)

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()
	cfg := config.Default(root)
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), ".leindex")
	orch, err := orchestrator.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = orch.Close() })
	return NewServer(orch)
}

func callToolRequest(t *testing.T, args any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

// TestIndexThenSearchToolRoundTrip drives the `index` and `search` tools
// exactly as a client would, checking the handlers decode, dispatch, and
// marshal a usable response with no domain logic of their own.
func TestIndexThenSearchToolRoundTrip(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package test\n\nfunc Handled() {}\n"), 0o644))

	s := newTestServer(t, root)
	ctx := context.Background()

	indexRes, err := s.handleIndex(ctx, callToolRequest(t, indexParams{ProjectPath: root}))
	require.NoError(t, err)
	require.False(t, indexRes.IsError)

	var indexed orchestrator.IndexResult
	require.NoError(t, json.Unmarshal([]byte(indexRes.Content[0].(*mcp.TextContent).Text), &indexed))
	require.Equal(t, 1, indexed.FilesProcessed)

	searchRes, err := s.handleSearch(ctx, callToolRequest(t, searchParams{Query: "Handled", ProjectID: indexed.ProjectID, Limit: 10}))
	require.NoError(t, err)
	require.False(t, searchRes.IsError)

	var hits []orchestrator.ResultHit
	require.NoError(t, json.Unmarshal([]byte(searchRes.Content[0].(*mcp.TextContent).Text), &hits))
	require.NotEmpty(t, hits)
	require.Equal(t, "a.go", hits[0].FilePath)
}

// TestSearchToolReportsCategoryOnMissingProject covers the error path: an
// unknown project_id should come back as an IsError result carrying the
// NotFound category, never a raw transport-level failure.
func TestSearchToolReportsCategoryOnMissingProject(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, root)

	res, err := s.handleSearch(context.Background(), callToolRequest(t, searchParams{Query: "x", ProjectID: "unknown", Limit: 10}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &body))
	require.Equal(t, "not_found", body["category"])
}

// TestDiagnosticsToolReportsVersion covers the no-argument `diagnostics`
// tool.
func TestDiagnosticsToolReportsVersion(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, root)

	res, err := s.handleDiagnostics(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var diag orchestrator.Diagnostics
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &diag))
	require.NotEmpty(t, diag.Version)
}
