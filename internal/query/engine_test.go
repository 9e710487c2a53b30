package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *ftsindex.Index, *store.Store) {
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

	e := NewEngine(idx, st, 4, 64, 1024, 50, 2, DefaultConsistencyThreshold, RankWeights{
		FallbackPenalty: 0.2, RegexPenalty: 0.1, BalancedRelWt: 0.7, BalancedTimeWt: 0.3, DecayDays: 30,
	})
	t.Cleanup(e.Close)
	return e, idx, st
}

func indexOneMessage(t *testing.T, idx *ftsindex.Index, agent, workspace, title, content string) {
	t.Helper()
	w := ftsindex.NewWriter(idx, 1, time.Second)
	doc := ftsindex.NewDocument(agent, workspace, "/fake/"+agent+"/conv.jsonl", 0, time.Now(), title, content, "hash-"+content)
	if err := w.Add(doc); err != nil {
		t.Fatalf("add document: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush writer: %v", err)
	}
}

func TestSearchFindsExactTermMatch(t *testing.T) {
	e, idx, _ := newTestEngine(t)
	indexOneMessage(t, idx, "codex", "/proj", "fix the flaky test", "the retry loop is flaky under load")

	hits, err := e.Search(context.Background(), "flaky", Filters{}, Paging{Limit: 10}, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits.Items) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits.Items))
	}
	if hits.Items[0].Agent != "codex" {
		t.Errorf("hit agent = %q, want codex", hits.Items[0].Agent)
	}
}

func TestSearchFiltersByAgent(t *testing.T) {
	e, idx, _ := newTestEngine(t)
	indexOneMessage(t, idx, "codex", "/proj", "x", "shared keyword appears here")
	indexOneMessage(t, idx, "cline", "/proj", "y", "shared keyword appears here too")

	hits, err := e.Search(context.Background(), "keyword", Filters{Agent: "cline"}, Paging{Limit: 10}, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits.Items {
		if h.Agent != "cline" {
			t.Errorf("hit from agent %q leaked through an agent=cline filter", h.Agent)
		}
	}
}

func TestSearchNoMatchReturnsEmptyNotError(t *testing.T) {
	e, idx, _ := newTestEngine(t)
	indexOneMessage(t, idx, "codex", "/proj", "x", "completely unrelated content")

	hits, err := e.Search(context.Background(), "zzzznomatch", Filters{}, Paging{Limit: 10}, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits.Items) != 0 {
		t.Errorf("got %d hits, want 0", len(hits.Items))
	}
}

func TestSearchEmptyQueryReturnsEmptyWithoutCaching(t *testing.T) {
	e, idx, _ := newTestEngine(t)
	indexOneMessage(t, idx, "codex", "/proj", "x", "anything at all")

	hits, err := e.Search(context.Background(), "", Filters{}, Paging{Limit: 10}, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits.Items) != 0 {
		t.Errorf("got %d hits for an empty query, want 0", len(hits.Items))
	}
	if _, ok := e.cache.Get(cacheKey{NormalizedQuery: "", FilterFingerprint: Filters{}.FilterFingerprint()}); ok {
		t.Error("empty query should not leave a cache entry")
	}
}

func TestSearchCursorFromARebuiltIndexIsInvalidated(t *testing.T) {
	e, idx, _ := newTestEngine(t)
	indexOneMessage(t, idx, "codex", "/proj", "x", "alpha bravo charlie")

	stale := encodeCursor(cursorState{Offset: 1, IndexSchemaHash: "some-old-schema-hash"})
	_, err := e.Search(context.Background(), "alpha", Filters{}, Paging{Limit: 10, Cursor: stale}, Options{NoCache: true})
	if !errs.As(err, errs.KindCursorInvalidated) {
		t.Fatalf("Search with a stale cursor = %v, want a KindCursorInvalidated *errs.Error", err)
	}
}
