package connector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/convoindex/convoindex/internal/paths"
)

// Gemini reads ~/.gemini/tmp/<hash>/logs.json (or chats/*.json, depending on
// CLI version): a JSON array of {role, parts:[{text}], timestamp} entries,
// one file per session directory.
type Gemini struct{ root string }

func NewGemini() *Gemini {
	r, _ := paths.DetectRoots()
	return &Gemini{root: r.GeminiTmp}
}

func (g *Gemini) Slug() string        { return "gemini" }
func (g *Gemini) DisplayName() string { return "Gemini CLI" }

func (g *Gemini) Detect(ctx context.Context) (DetectionResult, error) {
	if !paths.IsDir(g.root) {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: []string{g.root}}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiMsg struct {
	Role      string          `json:"role"`
	Parts     []geminiPart    `json:"parts"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
}

func (g *Gemini) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 32)
	go func() {
		defer close(out)
		files := globFiles(g.root, func(name string) bool {
			return filepath.Ext(name) == ".json"
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
			g.scanFile(f, info.ModTime(), out)
		}
	}()
	return out, nil
}

func (g *Gemini) scanFile(path string, mtime time.Time, out chan<- Event) {
	data, err := os.ReadFile(path)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: g.Slug(), Path: path, Reason: "io_read", Err: err}}
		return
	}

	var raw []geminiMsg
	if err := json.Unmarshal(data, &raw); err != nil {
		// Some Gemini CLI versions wrap the array in {"messages": [...]}.
		var wrapper struct {
			Messages []geminiMsg `json:"messages"`
		}
		if err2 := json.Unmarshal(data, &wrapper); err2 != nil {
			out <- Event{Diagnostic: &Diagnostic{AgentSlug: g.Slug(), Path: path, Reason: "parse", Err: err}}
			return
		}
		raw = wrapper.Messages
	}

	conv := &NormalizedConversation{
		AgentSlug:     g.Slug(),
		ExternalID:    externalIDFromPath(path),
		SourcePath:    path,
		WorkspaceHint: filepath.Dir(path),
		CreatedAt:     mtime,
		UpdatedAt:     mtime,
	}

	for _, m := range raw {
		var texts []string
		for _, p := range m.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		content := FlattenContent(texts)
		if content == "" {
			content = m.Text
		}
		if content == "" {
			continue
		}
		ts := ParseTimestamp(m.Timestamp, mtime)
		conv.Messages = append(conv.Messages, NormalizedMessage{
			Role:      NormalizeRole(m.Role),
			Content:   content,
			Timestamp: &ts,
		})
		if ts.After(conv.UpdatedAt) {
			conv.UpdatedAt = ts
		}
	}

	if len(conv.Messages) == 0 {
		return
	}
	conv.Title = firstUserMessagePrefix(conv.Messages)
	out <- Event{Conversation: conv}
}
