package ftsindex

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/convoindex/convoindex/internal/logx"
)

// Writer batches document adds and flushes them as one bleve.Batch on a
// count-or-elapsed-time boundary, so a full scan of thousands of
// messages doesn't commit one document at a time.
type Writer struct {
	idx *Index

	mu          sync.Mutex
	batch       *bleve.Batch
	batchCount  int
	batchOpened time.Time

	maxCount int
	maxWait  time.Duration
}

// NewWriter creates a batching writer over idx, flushing every maxCount
// documents or maxWait elapsed since the batch opened, whichever comes
// first. Both boundaries are checked in Add; no timer runs, so a partial
// batch stays staged until the next Add, Flush or Close.
func NewWriter(idx *Index, maxCount int, maxWait time.Duration) *Writer {
	if maxCount <= 0 {
		maxCount = 200
	}
	if maxWait <= 0 {
		maxWait = 500 * time.Millisecond
	}
	return &Writer{
		idx:      idx,
		batch:    idx.bi.NewBatch(),
		maxCount: maxCount,
		maxWait:  maxWait,
	}
}

// Add stages one document for indexing, then flushes the batch if either
// boundary has been reached.
func (w *Writer) Add(d Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.batchCount == 0 {
		w.batchOpened = time.Now()
	}

	id := docID(d.SourcePath, d.MsgIdx)
	if err := w.batch.Index(id, toFieldMap(d)); err != nil {
		return fmt.Errorf("stage document %s: %w", id, err)
	}
	w.batchCount++

	if w.batchCount >= w.maxCount || time.Since(w.batchOpened) >= w.maxWait {
		return w.flushLocked()
	}
	return nil
}

// Flush commits any staged documents regardless of batch size/age.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if w.batchCount == 0 {
		return nil
	}
	if err := w.idx.bi.Batch(w.batch); err != nil {
		return fmt.Errorf("commit ftsindex batch of %d docs: %w", w.batchCount, err)
	}
	logx.Debug("ftsindex: committed batch of %d docs", w.batchCount)
	w.batch = w.idx.bi.NewBatch()
	w.batchCount = 0
	return nil
}

// Delete removes a document by its (sourcePath, msgIdx) identity,
// committed immediately rather than batched — deletes are rare
// (re-scans overwrite in place) and spec.md never requires batching them.
func (w *Writer) Delete(sourcePath, msgIdx string) error {
	return w.idx.bi.Delete(docID(sourcePath, msgIdx))
}

// Close flushes any remaining staged documents.
func (w *Writer) Close() error {
	return w.Flush()
}

func toFieldMap(d Document) map[string]interface{} {
	return map[string]interface{}{
		"agent":          d.Agent,
		"workspace":      d.Workspace,
		"source_path":    d.SourcePath,
		"msg_idx":        d.MsgIdx,
		"created_at":     d.CreatedAt,
		"title":          d.Title,
		"title_prefix":   d.TitlePrefix,
		"content":        d.Content,
		"content_prefix": d.ContentPrefix,
		"preview":        d.Preview,
		"content_hash":   d.ContentHash,
	}
}

// NewDocument builds a Document from the relational fields the query
// engine and writer share, deriving the two prefix-field mirrors and the
// stored preview window inline rather than asking every caller to.
func NewDocument(agent, workspace, sourcePath string, msgIdx int, createdAt time.Time, title, content, contentHash string) Document {
	return Document{
		Agent:         agent,
		Workspace:     workspace,
		SourcePath:    sourcePath,
		MsgIdx:        strconv.Itoa(msgIdx),
		CreatedAt:     createdAt,
		Title:         title,
		TitlePrefix:   title,
		Content:       content,
		ContentPrefix: content,
		Preview:       previewWindow(content, 200),
		ContentHash:   contentHash,
	}
}

func previewWindow(content string, maxRunes int) string {
	r := []rune(content)
	if len(r) <= maxRunes {
		return content
	}
	return string(r[:maxRunes]) + "…"
}
