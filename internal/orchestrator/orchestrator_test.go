package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/convoindex/convoindex/internal/connector"
	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/store"
)

// fakeConnector is a minimal in-memory connector.Connector used to drive
// the orchestrator without touching any real agent storage.
type fakeConnector struct {
	slug  string
	convs []connector.NormalizedConversation
	diags []connector.Diagnostic
}

func (f *fakeConnector) Slug() string        { return f.slug }
func (f *fakeConnector) DisplayName() string { return f.slug }

func (f *fakeConnector) Detect(ctx context.Context) (connector.DetectionResult, error) {
	return connector.DetectionResult{Present: true, Roots: []string{"/fake/" + f.slug}}, nil
}

func (f *fakeConnector) Scan(ctx context.Context, sc connector.ScanContext) (<-chan connector.Event, error) {
	ch := make(chan connector.Event, len(f.convs)+len(f.diags))
	for i := range f.convs {
		c := f.convs[i]
		ch <- connector.Event{Conversation: &c}
	}
	for i := range f.diags {
		d := f.diags[i]
		ch <- connector.Event{Diagnostic: &d}
	}
	close(ch)
	return ch, nil
}

func newTestOrchestrator(t *testing.T, connectors []connector.Connector) (*Orchestrator, *store.Store, *ftsindex.Index) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(context.Background(), filepath.Join(dir, "store.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	idx, err := ftsindex.Open(dir)
	if err != nil {
		t.Fatalf("open ftsindex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	o := New(st, idx, 10, 50*time.Millisecond)
	o.Connectors = connectors
	return o, st, idx
}

func sampleConversation(slug, externalID string) connector.NormalizedConversation {
	now := time.Now()
	return connector.NormalizedConversation{
		AgentSlug:  slug,
		ExternalID: externalID,
		Title:      "hello there",
		CreatedAt:  now,
		UpdatedAt:  now,
		SourcePath: "/fake/" + slug + "/" + externalID,
		Messages: []connector.NormalizedMessage{
			{Role: "user", Content: "hello there", Timestamp: &now},
			{Role: "assistant", Content: "hi, how can I help?", Timestamp: &now},
		},
	}
}

func TestRunIngestsConversationsAndMessages(t *testing.T) {
	fc := &fakeConnector{slug: "fakeagent", convs: []connector.NormalizedConversation{
		sampleConversation("fakeagent", "conv-1"),
		sampleConversation("fakeagent", "conv-2"),
	}}
	o, st, _ := newTestOrchestrator(t, []connector.Connector{fc})

	summary, err := o.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ConversationsIngested != 2 {
		t.Errorf("ConversationsIngested = %d, want 2", summary.ConversationsIngested)
	}
	if summary.MessagesIngested != 4 {
		t.Errorf("MessagesIngested = %d, want 4", summary.MessagesIngested)
	}

	n, err := st.MessageCount(context.Background())
	if err != nil {
		t.Fatalf("MessageCount: %v", err)
	}
	if n != 4 {
		t.Errorf("store MessageCount = %d, want 4", n)
	}
}

func TestRunCountsDiagnosticsAsParseErrors(t *testing.T) {
	fc := &fakeConnector{slug: "fakeagent", diags: []connector.Diagnostic{
		{AgentSlug: "fakeagent", Path: "/fake/bad.json", Reason: "malformed_json"},
		{AgentSlug: "fakeagent", Path: "/fake/enc.bin", Reason: "encrypted_unsupported"},
	}}
	o, _, _ := newTestOrchestrator(t, []connector.Connector{fc})

	summary, err := o.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", summary.ParseErrors)
	}
	if summary.SkippedEncrypted != 1 {
		t.Errorf("SkippedEncrypted = %d, want 1", summary.SkippedEncrypted)
	}
}

func TestRunIsIdempotentUnderSameKey(t *testing.T) {
	fc := &fakeConnector{slug: "fakeagent", convs: []connector.NormalizedConversation{
		sampleConversation("fakeagent", "conv-1"),
	}}
	o, _, _ := newTestOrchestrator(t, []connector.Connector{fc})

	first, err := o.Run(context.Background(), RunOptions{IdempotencyKey: "key-1"})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.IdempotentReplay {
		t.Errorf("first run should not be a replay")
	}

	second, err := o.Run(context.Background(), RunOptions{IdempotencyKey: "key-1"})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.IdempotentReplay {
		t.Errorf("second run under the same key should be a replay")
	}
	if second.ConversationsIngested != first.ConversationsIngested {
		t.Errorf("replayed summary mismatch: got %d, want %d", second.ConversationsIngested, first.ConversationsIngested)
	}
}

func TestRunDedupesUnchangedMessagesOnRescan(t *testing.T) {
	conv := sampleConversation("fakeagent", "conv-1")
	fc := &fakeConnector{slug: "fakeagent", convs: []connector.NormalizedConversation{conv}}
	o, _, _ := newTestOrchestrator(t, []connector.Connector{fc})

	if _, err := o.Run(context.Background(), RunOptions{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	detected, err := o.detectAll(context.Background())
	if err != nil {
		t.Fatalf("detectAll: %v", err)
	}
	sum, err := o.ingestOne(context.Background(), detected[0], connector.ScanContext{})
	if err != nil {
		t.Fatalf("ingestOne rescan: %v", err)
	}
	if sum.MessagesDeduped != 2 {
		t.Errorf("MessagesDeduped = %d, want 2 (unchanged content re-scanned)", sum.MessagesDeduped)
	}
	if sum.MessagesIngested != 0 {
		t.Errorf("MessagesIngested = %d, want 0 on an unchanged rescan", sum.MessagesIngested)
	}
}

func TestWatchStateAdvanceAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watch_state.json")

	ws, err := LoadWatchState(path)
	if err != nil {
		t.Fatalf("LoadWatchState: %v", err)
	}
	if !ws.LastScanFor("codex").IsZero() {
		t.Errorf("fresh state should report zero time for unseen slug")
	}

	now := time.Now().Truncate(time.Second)
	if err := ws.Advance("codex", now); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	reloaded, err := LoadWatchState(path)
	if err != nil {
		t.Fatalf("reload LoadWatchState: %v", err)
	}
	if !reloaded.LastScanFor("codex").Equal(now) {
		t.Errorf("LastScanFor(codex) = %v, want %v", reloaded.LastScanFor("codex"), now)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("watch state file not written: %v", err)
	}
}
