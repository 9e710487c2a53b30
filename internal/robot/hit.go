// Package robot implements the flat-JSON output contract external
// scripts and agentic callers consume instead of the human-rendered CLI
// tables: a Hit per matched message plus an optional _meta envelope,
// with field selection and UTF-8-safe content truncation.
package robot

import (
	"github.com/convoindex/convoindex/internal/query"
)

// Hit is one matched message in robot-mode output. The robot tag names
// the field's projector key; the preset tag lists which presets include
// it by default. A field with an empty preset tag only appears when the
// caller names it explicitly in a csv --fields list.
type Hit struct {
	SourcePath       string  `robot:"source_path" preset:"minimal,summary,all" json:"source_path,omitempty"`
	LineNumber       int     `robot:"line_number" preset:"summary,all" json:"line_number,omitempty"`
	Agent            string  `robot:"agent" preset:"minimal,summary,all" json:"agent,omitempty"`
	Workspace        string  `robot:"workspace" preset:"summary,all" json:"workspace,omitempty"`
	Title            string  `robot:"title" preset:"summary,all" json:"title,omitempty"`
	Score            float64 `robot:"score" preset:"summary,all" json:"score,omitempty"`
	Snippet          string  `robot:"snippet" preset:"minimal,summary,all" json:"snippet,omitempty"`
	Content          string  `robot:"content" preset:"all" json:"content,omitempty"`
	ContentTruncated *bool   `robot:"content_truncated" preset:"all" json:"content_truncated,omitempty"`
}

// Meta is the optional envelope header carrying everything about the
// search itself rather than any one hit.
type Meta struct {
	ElapsedMs        int64  `json:"elapsed_ms"`
	CacheHit         bool   `json:"cache_hit"`
	WildcardFallback bool   `json:"wildcard_fallback"`
	StaleIndex       bool   `json:"stale_index"`
	NextCursor       string `json:"next_cursor,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
	IndexSchemaHash  string `json:"index_schema_hash,omitempty"`
	TimeoutTruncated *bool  `json:"timeout_truncated,omitempty"`
	IdempotentReplay *bool  `json:"idempotent_replay,omitempty"`
}

// Envelope is the full robot-mode response body for one search.
type Envelope struct {
	Hits []Hit `json:"hits"`
	Meta Meta  `json:"_meta"`
}

// FromQueryHit converts a query.Hit to its robot-mode projection,
// carrying the full, untruncated content; callers apply truncation
// afterward via TruncateContent/TruncateTokens.
func FromQueryHit(h query.Hit) Hit {
	return Hit{
		SourcePath: h.SourcePath,
		LineNumber: h.LineNumber,
		Agent:      h.Agent,
		Workspace:  h.Workspace,
		Title:      h.Title,
		Score:      h.Score,
		Snippet:    h.Snippet,
		Content:    h.Content,
	}
}

// FromQueryHits converts an entire query.Hits result, including its
// metadata, to the robot envelope. requestID is supplied by the caller
// (the CLI layer mints one per invocation); it has no query-engine
// equivalent.
func FromQueryHits(hits query.Hits, requestID string) Envelope {
	items := make([]Hit, 0, len(hits.Items))
	for _, h := range hits.Items {
		items = append(items, FromQueryHit(h))
	}
	return Envelope{
		Hits: items,
		Meta: Meta{
			ElapsedMs:        hits.ElapsedMs,
			CacheHit:         hits.CacheHit,
			WildcardFallback: hits.WildcardFallback,
			StaleIndex:       hits.StaleIndex,
			NextCursor:       hits.NextCursor,
			RequestID:        requestID,
			IndexSchemaHash:  hits.IndexSchemaHash,
			TimeoutTruncated: boolPtr(hits.TimeoutTruncated),
		},
	}
}

func boolPtr(b bool) *bool { return &b }
