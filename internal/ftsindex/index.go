// Package ftsindex is the full-text index adapter: a bleve index
// directory under $DATA_DIR/ftsindex, with a schema-hash marker gating
// rebuilds, a custom hyphen-aware analyzer pair, and a batching writer.
// Searches and writes share one bleve handle, so each committed batch is
// visible to the next search; there is no separate reader reload.
package ftsindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/convoindex/convoindex/internal/logx"
)

// SchemaHash identifies the current document-mapping shape. Bumping it
// forces Open to delete and rebuild the on-disk index rather than run
// against a stale mapping.
const SchemaHash = "edge-ngram-preview-v4"

const schemaHashMarkerName = ".schema-hash"

// Document is one indexed message, matching spec.md §4.3's field table.
type Document struct {
	Agent         string    `json:"agent"`
	Workspace     string    `json:"workspace"`
	SourcePath    string    `json:"source_path"`
	MsgIdx        string    `json:"msg_idx"`
	CreatedAt     time.Time `json:"created_at"`
	Title         string    `json:"title"`
	TitlePrefix   string    `json:"title_prefix"`
	Content       string    `json:"content"`
	ContentPrefix string    `json:"content_prefix"`
	Preview       string    `json:"preview"`
	ContentHash   string    `json:"content_hash"`
}

// BuildMapping constructs the document mapping described in spec.md
// §4.3: keyword/exact fields for agent/workspace/source_path/msg_idx, a
// numeric created_at, hyphen-normalize text fields for title/content, and
// not-stored edge-ngram prefix fields mirroring them.
func BuildMapping() *mapping.IndexMappingImpl {
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"

	text := bleve.NewTextFieldMapping()
	text.Analyzer = HyphenNormalizeName

	prefix := bleve.NewTextFieldMapping()
	prefix.Analyzer = EdgeNgramAnalyzerName
	prefix.Store = false
	prefix.IncludeInAll = false

	dateField := bleve.NewDateTimeFieldMapping()

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Analyzer = "keyword"

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("agent", keyword)
	doc.AddFieldMappingsAt("workspace", keyword)
	doc.AddFieldMappingsAt("source_path", keyword)
	doc.AddFieldMappingsAt("msg_idx", keyword)
	doc.AddFieldMappingsAt("created_at", dateField)
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("title_prefix", prefix)
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("content_prefix", prefix)
	doc.AddFieldMappingsAt("preview", stored)
	doc.AddFieldMappingsAt("content_hash", keyword)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = HyphenNormalizeName
	return im
}

// Index wraps a bleve.Index with the schema-hash gate. Writers and
// searchers share the one handle; no reader reload or reload debounce
// takes place.
type Index struct {
	dir string

	mu      sync.RWMutex
	bi      bleve.Index
	reloadT *time.Timer
}

// Open opens (or creates) the index at dataDir/ftsindex. A schema-hash
// mismatch against the on-disk marker deletes and recreates the
// directory rather than running against a stale mapping.
func Open(dataDir string) (*Index, error) {
	dir := filepath.Join(dataDir, "ftsindex")
	markerPath := filepath.Join(dir, schemaHashMarkerName)

	if existing, err := os.ReadFile(markerPath); err == nil {
		if string(existing) != SchemaHash {
			logx.Warn("ftsindex schema hash changed (%s -> %s), rebuilding index", string(existing), SchemaHash)
			if err := os.RemoveAll(dir); err != nil {
				return nil, fmt.Errorf("remove stale ftsindex dir: %w", err)
			}
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ftsindex dir: %w", err)
	}

	bi, err := bleve.Open(dir)
	if err != nil {
		bi, err = bleve.New(dir, BuildMapping())
		if err != nil {
			return nil, fmt.Errorf("create ftsindex: %w", err)
		}
		if err := os.WriteFile(markerPath, []byte(SchemaHash), 0o644); err != nil {
			return nil, fmt.Errorf("write schema hash marker: %w", err)
		}
	}

	return &Index{dir: dir, bi: bi}, nil
}

// Rebuild deletes the on-disk index and recreates it empty, the
// full-text half of `index --full`'s reindex; paired with
// store.FullRebuild.
func (idx *Index) Rebuild() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.bi != nil {
		idx.bi.Close()
	}
	if err := os.RemoveAll(idx.dir); err != nil {
		return fmt.Errorf("remove ftsindex dir: %w", err)
	}
	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return fmt.Errorf("recreate ftsindex dir: %w", err)
	}
	bi, err := bleve.New(idx.dir, BuildMapping())
	if err != nil {
		return fmt.Errorf("recreate ftsindex: %w", err)
	}
	if err := os.WriteFile(filepath.Join(idx.dir, schemaHashMarkerName), []byte(SchemaHash), 0o644); err != nil {
		return fmt.Errorf("rewrite schema hash marker: %w", err)
	}
	idx.bi = bi
	return nil
}

// Underlying exposes the live bleve.Index for internal/query's search
// path, read under the lock Rebuild holds while it swaps handles. A
// handle returned before a Rebuild is closed by that Rebuild.
func (idx *Index) Underlying() bleve.Index {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.bi
}

// DocCount reports the index's live document count, used by the query
// engine's consistency-fallback check against the relational mirror.
func (idx *Index) DocCount() (uint64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.bi.DocCount()
}

// Close closes the underlying bleve index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.reloadT != nil {
		idx.reloadT.Stop()
	}
	return idx.bi.Close()
}

func docID(sourcePath, msgIdx string) string {
	return sourcePath + "#" + msgIdx
}
