package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/convoindex/convoindex/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "store.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnsureAgentIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.EnsureAgent(ctx, "codex", "Codex", time.Now())
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	id2, err := s.EnsureAgent(ctx, "codex", "Codex", time.Now())
	if err != nil {
		t.Fatalf("re-ensure agent: %v", err)
	}
	if id1 != id2 {
		t.Errorf("ensure agent returned different IDs: %d vs %d", id1, id2)
	}
}

func TestEnsureWorkspaceEmptyPathIsUnknown(t *testing.T) {
	s := openTestStore(t)
	id, err := s.EnsureWorkspace(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	if id != model.UnknownWorkspaceID {
		t.Errorf("empty path workspace id = %d, want %d", id, model.UnknownWorkspaceID)
	}
}

func TestUpsertMessageSkipsUnchangedContentHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	agentID, err := s.EnsureAgent(ctx, "codex", "Codex", time.Now())
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}

	tx, err := s.BeginWrite(ctx)
	if err != nil {
		t.Fatalf("begin write: %v", err)
	}
	conv := &model.Conversation{
		AgentID:     agentID,
		WorkspaceID: model.UnknownWorkspaceID,
		ExternalID:  "conv-1",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		SourcePath:  "/tmp/conv-1.jsonl",
		Metadata:    map[string]any{},
	}
	convID, err := s.UpsertConversation(ctx, tx, conv)
	if err != nil {
		t.Fatalf("upsert conversation: %v", err)
	}

	msg := &model.Message{
		ConversationID: convID,
		MsgIdx:         0,
		Role:           model.RoleUser,
		Content:        "hello",
		CreatedAt:      time.Now(),
		ContentHash:    model.ContentHash(model.RoleUser, "hello"),
	}
	_, wrote1, err := s.UpsertMessage(ctx, tx, msg)
	if err != nil {
		t.Fatalf("first upsert message: %v", err)
	}
	if !wrote1 {
		t.Error("first insert should report wrote=true")
	}

	_, wrote2, err := s.UpsertMessage(ctx, tx, msg)
	if err != nil {
		t.Fatalf("second upsert message: %v", err)
	}
	if wrote2 {
		t.Error("unchanged content_hash should report wrote=false")
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestFullRebuildClearsContentTables(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	agentID, err := s.EnsureAgent(ctx, "codex", "Codex", time.Now())
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	tx, err := s.BeginWrite(ctx)
	if err != nil {
		t.Fatalf("begin write: %v", err)
	}
	conv := &model.Conversation{
		AgentID: agentID, WorkspaceID: model.UnknownWorkspaceID, ExternalID: "conv-1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(), SourcePath: "/tmp/x", Metadata: map[string]any{},
	}
	if _, err := s.UpsertConversation(ctx, tx, conv); err != nil {
		t.Fatalf("upsert conversation: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := s.FullRebuild(ctx); err != nil {
		t.Fatalf("full rebuild: %v", err)
	}

	var count int
	if err := s.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count); err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if count != 0 {
		t.Errorf("conversations after full rebuild = %d, want 0", count)
	}
}

func seedConversation(t *testing.T, s *Store, agentSlug, externalID string) int64 {
	t.Helper()
	ctx := context.Background()
	agentID, err := s.EnsureAgent(ctx, agentSlug, agentSlug, time.Now())
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	tx, err := s.BeginWrite(ctx)
	if err != nil {
		t.Fatalf("begin write: %v", err)
	}
	conv := &model.Conversation{
		AgentID: agentID, WorkspaceID: model.UnknownWorkspaceID, ExternalID: externalID,
		Title: "hello there", CreatedAt: time.Now(), UpdatedAt: time.Now(),
		SourcePath: "/tmp/" + externalID, Metadata: map[string]any{},
	}
	convID, err := s.UpsertConversation(ctx, tx, conv)
	if err != nil {
		t.Fatalf("upsert conversation: %v", err)
	}
	msg := &model.Message{
		ConversationID: convID, MsgIdx: 0, Role: model.RoleUser, Content: "hello there",
		CreatedAt: time.Now(), ContentHash: model.ContentHash(model.RoleUser, "hello there"),
	}
	if _, _, err := s.UpsertMessage(ctx, tx, msg); err != nil {
		t.Fatalf("upsert message: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return convID
}

func TestListConversationsFiltersByAgent(t *testing.T) {
	s := openTestStore(t)
	seedConversation(t, s, "codex", "conv-1")
	seedConversation(t, s, "cline", "conv-2")

	summaries, err := s.ListConversations(context.Background(), ListFilter{Agent: "codex"})
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(summaries) != 1 || summaries[0].AgentSlug != "codex" {
		t.Errorf("list conversations filtered by agent = %+v, want one codex row", summaries)
	}
}

func TestGetConversationAndMessagesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	convID := seedConversation(t, s, "codex", "conv-1")
	ctx := context.Background()

	conv, agentSlug, _, err := s.GetConversation(ctx, convID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if agentSlug != "codex" || conv.ExternalID != "conv-1" {
		t.Errorf("get conversation = %+v / %s, want conv-1 / codex", conv, agentSlug)
	}

	msgs, err := s.GetMessages(ctx, convID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello there" {
		t.Errorf("get messages = %+v, want one 'hello there' message", msgs)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, _, _, err := s.GetConversation(context.Background(), 999); err != ErrConversationNotFound {
		t.Errorf("get conversation for missing id = %v, want ErrConversationNotFound", err)
	}
}
