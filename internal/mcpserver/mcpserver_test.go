package mcpserver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/model"
	"github.com/convoindex/convoindex/internal/query"
	"github.com/convoindex/convoindex/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	idx, err := ftsindex.Open(dir)
	if err != nil {
		t.Fatalf("open ftsindex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	st, err := store.Open(context.Background(), filepath.Join(dir, "store.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	agentID, err := st.EnsureAgent(ctx, "codex", "Codex", time.Now())
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	tx, err := st.BeginWrite(ctx)
	if err != nil {
		t.Fatalf("begin write: %v", err)
	}
	conv := &model.Conversation{
		AgentID: agentID, WorkspaceID: model.UnknownWorkspaceID, ExternalID: "conv-1",
		Title: "fix the bug", CreatedAt: time.Now(), UpdatedAt: time.Now(),
		SourcePath: "/fake/codex/conv-1.jsonl", Metadata: map[string]any{},
	}
	convID, err := st.UpsertConversation(ctx, tx, conv)
	if err != nil {
		t.Fatalf("upsert conversation: %v", err)
	}
	msg := &model.Message{
		ConversationID: convID, MsgIdx: 0, Role: model.RoleUser, Content: "the widget is broken",
		CreatedAt: time.Now(), ContentHash: model.ContentHash(model.RoleUser, "the widget is broken"),
	}
	if _, _, err := st.UpsertMessage(ctx, tx, msg); err != nil {
		t.Fatalf("upsert message: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	w := ftsindex.NewWriter(idx, 1, time.Second)
	if err := w.Add(ftsindex.NewDocument("codex", "", conv.SourcePath, 0, time.Now(), conv.Title, msg.Content, msg.ContentHash)); err != nil {
		t.Fatalf("add doc: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	engine := query.NewEngine(idx, st, 4, 64, 1024, 50, 2, query.DefaultConsistencyThreshold, query.RankWeights{
		BalancedRelWt: 0.7, BalancedTimeWt: 0.3, DecayDays: 30,
	})
	t.Cleanup(engine.Close)

	return NewServer(st, engine)
}

func TestHandleSearchReturnsMatchingHit(t *testing.T) {
	s := newTestServer(t)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]interface{}{"query": "widget"},
	}}
	res, err := s.handleSearch(context.Background(), req)
	if err != nil {
		t.Fatalf("handleSearch: %v", err)
	}
	if res == nil {
		t.Fatalf("handleSearch returned nil result")
	}
}

func TestHandleSearchRejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]interface{}{"query": ""},
	}}
	if _, err := s.handleSearch(context.Background(), req); err == nil {
		t.Errorf("handleSearch with empty query should error")
	}
}

func TestHandleListReturnsSeededConversation(t *testing.T) {
	s := newTestServer(t)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "list",
		Arguments: map[string]interface{}{},
	}}
	if _, err := s.handleList(context.Background(), req); err != nil {
		t.Fatalf("handleList: %v", err)
	}
}

func TestHandleShowUnknownIDErrors(t *testing.T) {
	s := newTestServer(t)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "show",
		Arguments: map[string]interface{}{"id": float64(999)},
	}}
	if _, err := s.handleShow(context.Background(), req); err == nil {
		t.Errorf("handleShow with unknown id should error")
	}
}
