// Package rpc exposes the orchestrator's operations over stdio JSON-RPC
// 2.0, per spec §6's "thin transport adapter" requirement: every tool
// handler here does nothing but decode parameters and call
// orchestrator.HandleRequest, which owns all real behavior.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leindex/leindex/internal/errors"
)

// jsonResult marshals data as the tool call's sole text content block.
func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResult reports a failed op back to the client as a tool result with
// IsError set, carrying the error's Category so a client can distinguish a
// retriable Unavailable from a terminal InvalidInput without string
// matching the message, per spec §7's error taxonomy.
func errorResult(op string, err error) (*mcp.CallToolResult, error) {
	body := map[string]any{
		"success":   false,
		"operation": op,
		"category":  string(errors.CategoryOf(err)),
		"error":     err.Error(),
	}
	content, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return nil, marshalErr
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: true,
	}, nil
}

// decodeParams unmarshals a tool call's raw arguments into dst, reporting
// a decode failure the same shape as any other op failure rather than
// letting the SDK's own parameter validation surface a bare Go error.
func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
