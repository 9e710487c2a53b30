// Package connector defines the capability every agent-log adapter
// implements (spec.md §4.1): Detect reports whether the agent's storage is
// present on this host, Scan streams normalized conversations out of it.
// Dispatch across the nine concrete adapters is by a flat list of this
// interface held by the orchestrator — no inheritance hierarchy, per
// spec.md §9's design note.
package connector

import (
	"context"
	"time"
)

// DetectionResult reports whether a connector's source is present and
// which root paths it claims.
type DetectionResult struct {
	Present bool
	Roots   []string
}

// ScanContext carries the parameters that narrow a scan: an incremental
// watermark and an optional path filter (used in watch mode).
// Cancellation is not a field here: it comes from the ctx passed to Scan
// alongside, which several connectors check mid-walk, between
// conversations, not just at function entry.
type ScanContext struct {
	SinceTS    time.Time // zero value means "scan everything"
	PathFilter []string  // empty means "no filter"
}

// NormalizedMessage is one turn as emitted by a connector, before it is
// assigned a dense msg_idx by the orchestrator.
type NormalizedMessage struct {
	Role      string
	Content   string
	Timestamp *time.Time // nil means "fall back to source file mtime"
	Metadata  map[string]any
}

// NormalizedConversation is the one shape every connector produces,
// regardless of its source format.
type NormalizedConversation struct {
	AgentSlug     string
	ExternalID    string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	WorkspaceHint string // path or label; orchestrator resolves to a Workspace row
	SourcePath    string
	Metadata      map[string]any
	Messages      []NormalizedMessage
}

// Diagnostic is a non-fatal scan event: a skipped malformed record, a
// skipped unreadable file, or a skipped encrypted conversation. The
// orchestrator logs these at warn and continues, per spec.md §7.
type Diagnostic struct {
	AgentSlug string
	Path      string
	Reason    string
	Err       error
}

// Event is one item on a Scan channel: exactly one of Conversation or
// Diagnostic is set.
type Event struct {
	Conversation *NormalizedConversation
	Diagnostic   *Diagnostic
}

// Connector is the capability every adapter implements.
type Connector interface {
	Slug() string
	DisplayName() string
	Detect(ctx context.Context) (DetectionResult, error)
	Scan(ctx context.Context, sc ScanContext) (<-chan Event, error)
}

// All returns the nine built-in connectors. Adding a new connector is a
// pure additive operation: append it here.
func All() []Connector {
	return []Connector{
		NewCodex(),
		NewCline(),
		NewGemini(),
		NewClaudeCode(),
		NewOpenCode(),
		NewAmp(),
		NewCursor(),
		NewChatGPT(),
		NewAider(),
	}
}
