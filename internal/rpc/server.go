package rpc

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leindex/leindex/internal/orchestrator"
	"github.com/leindex/leindex/internal/version"
)

// Server is the stdio JSON-RPC transport over one Orchestrator. It owns no
// domain state of its own: every tool call decodes its parameters and
// immediately hands off to orch.HandleRequest, per spec §6's thin-adapter
// requirement.
type Server struct {
	orch   *orchestrator.Orchestrator
	server *mcp.Server
}

// NewServer builds a Server over orch and registers its tool set.
func NewServer(orch *orchestrator.Orchestrator) *Server {
	s := &Server{
		orch: orch,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "leindex",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves requests over stdio until ctx is cancelled or the transport
// closes.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
