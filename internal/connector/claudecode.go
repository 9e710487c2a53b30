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

// ClaudeCode reads ~/.claude/projects/<project-dir>/<session-id>.jsonl: one
// conversation per file, one JSON record per line, each wrapping a
// nested message object. ~/.claude.json additionally holds workspace
// metadata the orchestrator can use to resolve WorkspaceHint to a real
// path, but this connector only needs the projects tree.
type ClaudeCode struct {
	projectsRoot string
	configPath   string
}

func NewClaudeCode() *ClaudeCode {
	r, _ := paths.DetectRoots()
	return &ClaudeCode{projectsRoot: r.ClaudeProjects, configPath: r.ClaudeConfigJSON}
}

func (c *ClaudeCode) Slug() string        { return "claude-code" }
func (c *ClaudeCode) DisplayName() string { return "Claude Code" }

func (c *ClaudeCode) Detect(ctx context.Context) (DetectionResult, error) {
	if !paths.IsDir(c.projectsRoot) {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: []string{c.projectsRoot}}, nil
}

type claudeCodeRecord struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	CWD       string          `json:"cwd"`
	Message   struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

func (c *ClaudeCode) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		files := globFiles(c.projectsRoot, func(name string) bool {
			return strings.HasSuffix(name, ".jsonl")
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
			info, err := os.Stat(f)
			if err != nil {
				continue
			}
			if !sc.SinceTS.IsZero() && !info.ModTime().After(sc.SinceTS) {
				continue
			}
			c.scanFile(f, info.ModTime(), out)
		}
	}()
	return out, nil
}

func (c *ClaudeCode) scanFile(path string, mtime time.Time, out chan<- Event) {
	f, err := os.Open(path)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: path, Reason: "io_read", Err: err}}
		return
	}
	defer f.Close()

	conv := &NormalizedConversation{
		AgentSlug:     c.Slug(),
		ExternalID:    externalIDFromPath(path),
		SourcePath:    path,
		WorkspaceHint: filepath.Base(filepath.Dir(path)),
		CreatedAt:     mtime,
		UpdatedAt:     mtime,
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
		var rec claudeCodeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: fmt.Sprintf("%s:%d", path, lineNo), Reason: "parse", Err: err}}
			continue
		}
		if rec.Message.Role == "" && rec.Type != "user" && rec.Type != "assistant" {
			continue
		}
		role := rec.Message.Role
		if role == "" {
			role = rec.Type
		}
		content := flattenJSONContent(rec.Message.Content, "")
		if content == "" {
			continue
		}
		if rec.CWD != "" {
			conv.WorkspaceHint = rec.CWD
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
