package ftsindex

import (
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestWriterFlushMakesDocumentSearchable(t *testing.T) {
	idx := openTestIndex(t)
	w := NewWriter(idx, 200, 500*time.Millisecond)

	doc := NewDocument("codex", "", "/tmp/conv.jsonl", 0, time.Now(), "hello world", "hello world from codex", "hash1")
	if err := w.Add(doc); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	q := bleve.NewMatchQuery("codex")
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	res, err := idx.Underlying().Search(req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total == 0 {
		t.Error("expected at least one hit after flush")
	}
}

func TestRebuildClearsDocuments(t *testing.T) {
	idx := openTestIndex(t)
	w := NewWriter(idx, 200, 500*time.Millisecond)
	doc := NewDocument("codex", "", "/tmp/conv.jsonl", 0, time.Now(), "title", "content", "hash1")
	if err := w.Add(doc); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("doc count: %v", err)
	}
	if count == 0 {
		t.Fatal("expected nonzero doc count before rebuild")
	}

	if err := idx.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	count, err = idx.DocCount()
	if err != nil {
		t.Fatalf("doc count after rebuild: %v", err)
	}
	if count != 0 {
		t.Errorf("doc count after rebuild = %d, want 0", count)
	}
}
