// Package model defines the normalized data model shared by every
// connector, store, and query component: Agent, Workspace, Conversation,
// Message, and Snippet, plus the content-hash invariant used to dedupe
// re-emitted messages on re-scan.
//
// Entities reference each other by stable integer identifier, never by
// in-memory pointer, so that the relational store and the full-text index
// can each hold their own copy without aliasing (spec design note: "cyclic
// or shared references... by identifier, not by in-memory pointer").
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/text/unicode/norm"
)

// UnknownWorkspaceID is the sentinel workspace every connector falls back
// to when it cannot infer a project/directory scope.
const UnknownWorkspaceID int64 = 0

// Role is the normalized speaker of one message turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// NormalizeRole maps an arbitrary connector-reported role string to one of
// the four known roles, defaulting unknown values to "system" per the
// connector framework's resilience rules.
func NormalizeRole(raw string) Role {
	switch Role(raw) {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return Role(raw)
	default:
		return RoleSystem
	}
}

// Agent is an identified source tool, created on first sighting and never
// deleted.
type Agent struct {
	ID          int64
	Slug        string
	DisplayName string
	FirstSeenAt time.Time
}

// Workspace is a project or directory scope inferred from connector
// metadata. A workspace may be "unknown" (ID == UnknownWorkspaceID).
type Workspace struct {
	ID    int64
	Path  string
	Label string
}

// Conversation is a session from one agent in one workspace.
type Conversation struct {
	ID          int64
	AgentID     int64
	WorkspaceID int64
	ExternalID  string // connector-assigned, unique per (AgentID, ExternalID)
	Title       string // first-user-message prefix, <=100 chars
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SourcePath  string
	Metadata    map[string]any
}

// Message is one turn within a conversation.
type Message struct {
	ID             int64
	ConversationID int64
	MsgIdx         int // zero-based, dense, unique per conversation
	Role           Role
	Content        string
	CreatedAt      time.Time
	ContentHash    string
}

// Snippet is an optional, derived, rebuildable code fragment extracted
// from a message.
type Snippet struct {
	ID        int64
	MessageID int64
	Language  string
	Text      string
}

// MaxTitleLen is the cap spec.md places on a conversation's derived title.
const MaxTitleLen = 100

// DeriveTitle truncates the first user message to MaxTitleLen runes,
// matching the "first-user-message prefix" invariant.
func DeriveTitle(firstUserMessage string) string {
	r := []rune(firstUserMessage)
	if len(r) <= MaxTitleLen {
		return string(r)
	}
	return string(r[:MaxTitleLen])
}

// ContentHash computes the stable hash used to dedupe re-emitted messages
// on re-scan: SHA-256 over the role and the NFC-normalized, trimmed
// content, so that byte-for-byte identical re-emissions of a message hash
// identically regardless of Unicode composition differences introduced by
// a connector's JSON decoder.
func ContentHash(role Role, content string) string {
	normalized := norm.NFC.String(trimSpace(content))
	h := sha256.New()
	h.Write([]byte(role))
	h.Write([]byte{0})
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
