// Package mcp serves structured search to MCP clients over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"medialib/internal/characters"
	"medialib/internal/media"
)

const (
	ServerName    = "medialib-mcp"
	ServerVersion = "1.0.0"
)

type Server struct {
	mcp        *server.MCPServer
	Media      *media.Repo
	Characters *characters.Repo
}

func NewServer(m *media.Repo, c *characters.Repo) *Server {
	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion),
		Media:      m,
		Characters: c,
	}
	s.mcp.AddTool(searchMediaTool(), s.handleSearchMedia)
	s.mcp.AddTool(explainQueryTool(), s.handleExplainQuery)
	return s
}

// Serve blocks on stdio until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}
