package connector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/convoindex/convoindex/internal/paths"
)

// Codex reads ~/.codex/sessions/**/rollout-*.jsonl: one conversation per
// file, one JSON object per line.
type Codex struct{ root string }

func NewCodex() *Codex {
	r, _ := paths.DetectRoots()
	return &Codex{root: r.CodexSessions}
}

func (c *Codex) Slug() string        { return "codex" }
func (c *Codex) DisplayName() string { return "Codex" }

func (c *Codex) Detect(ctx context.Context) (DetectionResult, error) {
	if !paths.IsDir(c.root) {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: []string{c.root}}, nil
}

func (c *Codex) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		files := globFiles(c.root, func(name string) bool {
			return strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl")
		})
		for _, f := range files {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !pathPassesFilter(f, sc.PathFilter) {
				continue
			}
			if info, err := os.Stat(f); err == nil && !sc.SinceTS.IsZero() && !info.ModTime().After(sc.SinceTS) {
				continue
			}
			c.scanFile(f, out)
		}
	}()
	return out, nil
}

type codexLine struct {
	Role      string          `json:"role"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
}

func (c *Codex) scanFile(path string, out chan<- Event) {
	f, err := os.Open(path)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: path, Reason: "io_read", Err: err}}
		return
	}
	defer f.Close()

	info, _ := f.Stat()
	mtime := time.Now()
	if info != nil {
		mtime = info.ModTime()
	}

	conv := &NormalizedConversation{
		AgentSlug:  c.Slug(),
		ExternalID: externalIDFromPath(path),
		SourcePath: path,
		CreatedAt:  mtime,
		UpdatedAt:  mtime,
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec codexLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: fmt.Sprintf("%s:%d", path, lineNo), Reason: "parse", Err: err}}
			continue
		}

		role := rec.Role
		if role == "" {
			role = rec.Type
		}
		content := flattenJSONContent(rec.Content, rec.Text)
		if content == "" {
			continue
		}
		ts := ParseTimestamp(rec.Timestamp, mtime)
		conv.Messages = append(conv.Messages, NormalizedMessage{
			Role:      NormalizeRole(role),
			Content:   content,
			Timestamp: &ts,
		})
		if ts.After(conv.UpdatedAt) {
			conv.UpdatedAt = ts
		}
	}
	if err := scanner.Err(); err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: path, Reason: "io_read", Err: err}}
	}

	if len(conv.Messages) > 0 {
		conv.Title = firstUserMessagePrefix(conv.Messages)
		out <- Event{Conversation: conv}
	}
}

// flattenJSONContent handles content shaped as a plain string, an array
// of {text:...} parts, or falls back to a sibling text field.
func flattenJSONContent(raw json.RawMessage, fallbackText string) string {
	if len(raw) == 0 {
		return fallbackText
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var parts []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		if len(texts) > 0 {
			return FlattenContent(texts)
		}
	}

	return fallbackText
}

func externalIDFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base
}

func firstUserMessagePrefix(msgs []NormalizedMessage) string {
	for _, m := range msgs {
		if m.Role == "user" {
			return truncateRunes(m.Content, 100)
		}
	}
	if len(msgs) > 0 {
		return truncateRunes(msgs[0].Content, 100)
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
