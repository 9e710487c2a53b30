package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search indexed coding-assistant conversations across every connected agent",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query: bare terms, a trailing * for prefix, or a leading/trailing * for wildcard",
				},
				"agent": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one agent slug (codex, cline, gemini, claudecode, opencode, amp, cursor, chatgpt, aider)",
				},
				"workspace": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one workspace path",
				},
				"rank": map[string]interface{}{
					"type":        "string",
					"description": "Ranking mode",
					"enum":        []string{"recent", "relevance", "balanced", "quality"},
					"default":     "balanced",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of hits to return",
					"default":     20,
					"minimum":     1,
					"maximum":     200,
				},
			},
			Required: []string{"query"},
		},
	}
}

func listTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list",
		Description: "List indexed conversations, most recently updated first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one agent slug",
				},
				"workspace": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one workspace path",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of conversations to return",
					"default":     50,
					"minimum":     1,
					"maximum":     500,
				},
			},
		},
	}
}

func showTool() mcp.Tool {
	return mcp.Tool{
		Name:        "show",
		Description: "Fetch one conversation's full transcript by its internal ID",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Conversation ID, as returned by search or list",
				},
			},
			Required: []string{"id"},
		},
	}
}
