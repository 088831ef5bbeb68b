package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"gigdesk/internal/engine"
)

// NewServer exposes the agent engine as MCP tools. defaultUser is used when a
// tool call omits user_id.
func NewServer(e engine.Engine, defaultUser string) *server.MCPServer {
	s := server.NewMCPServer(
		"gigdesk",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	registerTools(s, e, defaultUser)
	return s
}
