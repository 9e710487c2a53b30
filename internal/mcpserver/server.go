// Package mcpserver exposes search/list/show as MCP tools over stdio,
// an additive external-collaborator interface alongside the CLI's
// --robot flat-JSON mode, for agentic callers that speak MCP instead.
// Grounded directly on gocontext-mcp's internal/mcp server, retargeted
// from code search to conversation search.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/convoindex/convoindex/internal/query"
	"github.com/convoindex/convoindex/internal/store"
)

const (
	ServerName    = "convoindex"
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the store/query-engine dependencies
// its tools call into.
type Server struct {
	mcp    *server.MCPServer
	store  *store.Store
	engine *query.Engine
}

// NewServer builds an MCP server backed by st/engine and registers the
// search/list/show tools.
func NewServer(st *store.Store, engine *query.Engine) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		store:  st,
		engine: engine,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(listTool(), s.handleList)
	s.mcp.AddTool(showTool(), s.handleShow)
}

// Serve starts the MCP server on stdio and blocks until it shuts down.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}
