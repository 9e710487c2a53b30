package connector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/convoindex/convoindex/internal/paths"
)

// Cline reads VS Code's saoudrizwan.claude-dev globalStorage: one directory
// per task under tasks/<taskId>/, containing api_conversation_history.json
// (the full message array) and optionally ui_messages.json.
type Cline struct{ root string }

func NewCline() *Cline {
	r, _ := paths.DetectRoots()
	return &Cline{root: r.ClineGlobalStorage}
}

func (c *Cline) Slug() string        { return "cline" }
func (c *Cline) DisplayName() string { return "Cline" }

func (c *Cline) Detect(ctx context.Context) (DetectionResult, error) {
	tasksDir := filepath.Join(c.root, "tasks")
	if !paths.IsDir(tasksDir) {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: []string{tasksDir}}, nil
}

type clineMsg struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Ts        json.RawMessage `json:"ts"`
	Timestamp json.RawMessage `json:"timestamp"`
}

func (c *Cline) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 32)
	go func() {
		defer close(out)
		tasksDir := filepath.Join(c.root, "tasks")
		entries, err := os.ReadDir(tasksDir)
		if err != nil {
			out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: tasksDir, Reason: "io_read", Err: err}}
			return
		}
		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !entry.IsDir() {
				continue
			}
			taskDir := filepath.Join(tasksDir, entry.Name())
			histPath := filepath.Join(taskDir, "api_conversation_history.json")
			if !pathPassesFilter(histPath, sc.PathFilter) {
				continue
			}
			info, err := os.Stat(histPath)
			if err != nil {
				continue
			}
			if !sc.SinceTS.IsZero() && !info.ModTime().After(sc.SinceTS) {
				continue
			}
			c.scanTask(entry.Name(), histPath, info.ModTime(), out)
		}
	}()
	return out, nil
}

func (c *Cline) scanTask(taskID, histPath string, mtime time.Time, out chan<- Event) {
	data, err := os.ReadFile(histPath)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: histPath, Reason: "io_read", Err: err}}
		return
	}

	var raw []clineMsg
	if err := json.Unmarshal(data, &raw); err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: histPath, Reason: "parse", Err: err}}
		return
	}

	conv := &NormalizedConversation{
		AgentSlug:     c.Slug(),
		ExternalID:    taskID,
		SourcePath:    histPath,
		WorkspaceHint: taskID,
		CreatedAt:     mtime,
		UpdatedAt:     mtime,
	}

	for _, m := range raw {
		content := flattenJSONContent(m.Content, "")
		if content == "" {
			continue
		}
		tsRaw := m.Ts
		if len(tsRaw) == 0 {
			tsRaw = m.Timestamp
		}
		ts := ParseTimestamp(tsRaw, mtime)
		conv.Messages = append(conv.Messages, NormalizedMessage{
			Role:      NormalizeRole(m.Role),
			Content:   content,
			Timestamp: &ts,
		})
		if ts.After(conv.UpdatedAt) {
			conv.UpdatedAt = ts
		}
		if ts.Before(conv.CreatedAt) {
			conv.CreatedAt = ts
		}
	}

	if len(conv.Messages) == 0 {
		return
	}
	conv.Title = firstUserMessagePrefix(conv.Messages)
	if conv.Title == "" {
		conv.Title = "Cline task " + taskIDSuffix(taskID)
	}
	out <- Event{Conversation: conv}
}

func taskIDSuffix(id string) string {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return strings.TrimSpace(strconv.FormatInt(n, 10))
	}
	return id
}
