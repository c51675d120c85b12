// Package mcpserver exposes the memvault tool set over the Model Context
// Protocol on stdio. Each tools.Tool is bridged onto an MCP tool
// definition; handlers delegate back through the registry so rate limiting
// applies uniformly.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/memvault/internal/tools"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// Server wraps an MCP stdio server over a tool registry.
type Server struct {
	registry *tools.Registry
	mcp      *server.MCPServer
}

// New builds the MCP server and registers every tool in the registry.
func New(registry *tools.Registry) *Server {
	s := server.NewMCPServer("memvault", Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv := &Server{registry: registry, mcp: s}
	for _, t := range registry.List() {
		srv.addTool(t)
	}
	return srv
}

func (s *Server) addTool(t tools.Tool) {
	schema, err := json.Marshal(t.Parameters())
	if err != nil {
		slog.Error("tool schema marshal failed", "tool", t.Name(), "error", err)
		return
	}

	def := mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema)
	name := t.Name()

	s.mcp.AddTool(def, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := s.registry.Execute(ctx, name, req.GetArguments())
		if result.IsError {
			msg := result.Content
			if result.Code != "" {
				msg = result.Code + ": " + msg
			}
			return mcp.NewToolResultError(msg), nil
		}
		return mcp.NewToolResultText(result.Content), nil
	})
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	slog.Info("mcp server listening on stdio", "tools", len(s.registry.List()))
	return server.ServeStdio(s.mcp)
}
