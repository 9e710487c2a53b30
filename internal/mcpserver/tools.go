package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/convoindex/convoindex/internal/query"
	"github.com/convoindex/convoindex/internal/robot"
	"github.com/convoindex/convoindex/internal/store"
)

// MCP error codes, numbered in gocontext-mcp's custom range so a client
// talking to both servers never confuses the two.
const (
	ErrorCodeInvalidParams = -32602
	ErrorCodeInternalError = -32603
	ErrorCodeEmptyQuery    = -32004
	ErrorCodeNotFound      = -32005
)

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	q, _ := args["query"].(string)
	if q == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", nil)
	}

	filters := query.Filters{
		Agent:     getStringDefault(args, "agent", ""),
		Workspace: getStringDefault(args, "workspace", ""),
	}
	opts := query.Options{Rank: query.RankMode(getStringDefault(args, "rank", "balanced"))}
	paging := query.Paging{Limit: getIntDefault(args, "limit", 20)}

	hits, err := s.engine.Search(ctx, q, filters, paging, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{"error": err.Error()})
	}

	env := robot.FromQueryHits(hits, "")
	return mcp.NewToolResultText(formatJSON(env)), nil
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	filter := store.ListFilter{
		Agent:     getStringDefault(args, "agent", ""),
		Workspace: getStringDefault(args, "workspace", ""),
		Limit:     getIntDefault(args, "limit", 50),
	}

	summaries, err := s.store.ListConversations(ctx, filter)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "list failed", map[string]interface{}{"error": err.Error()})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"conversations": summaries})), nil
}

func (s *Server) handleShow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := int64(getIntDefault(args, "id", 0))
	if id == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", nil)
	}

	conv, agentSlug, workspacePath, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, store.ErrConversationNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, fmt.Sprintf("conversation %d not found", id), nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "show failed", map[string]interface{}{"error": err.Error()})
	}
	messages, err := s.store.GetMessages(ctx, id)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "show failed", map[string]interface{}{"error": err.Error()})
	}

	response := map[string]interface{}{
		"conversation": conv,
		"agent":        agentSlug,
		"workspace":    workspacePath,
		"messages":     messages,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// newMCPError mirrors gocontext-mcp's MCPError: MCP errors travel as
// plain Go errors, the server framework handles wire encoding.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func getStringDefault(args map[string]interface{}, key, defaultValue string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return defaultValue
}

func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	if v, ok := args[key].(int); ok {
		return v
	}
	return defaultValue
}
