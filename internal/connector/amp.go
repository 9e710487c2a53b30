package connector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/convoindex/convoindex/internal/paths"
)

// Amp reads Sourcegraph Amp's thread cache: JSON files under either the
// VS Code extension's globalStorage or ~/.local/share/amp/threads, each
// holding {id, title, messages:[{role, content, createdAt}]}.
type Amp struct {
	vscodeRoot string
	shareRoot  string
}

func NewAmp() *Amp {
	r, _ := paths.DetectRoots()
	return &Amp{
		vscodeRoot: r.AmpVSCodeStorage,
		shareRoot:  filepath.Join(r.AmpLocalShare, "threads"),
	}
}

func (a *Amp) Slug() string        { return "amp" }
func (a *Amp) DisplayName() string { return "Amp" }

func (a *Amp) roots() []string {
	var out []string
	if paths.IsDir(a.vscodeRoot) {
		out = append(out, a.vscodeRoot)
	}
	if paths.IsDir(a.shareRoot) {
		out = append(out, a.shareRoot)
	}
	return out
}

func (a *Amp) Detect(ctx context.Context) (DetectionResult, error) {
	roots := a.roots()
	if len(roots) == 0 {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: roots}, nil
}

type ampMsg struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	CreatedAt json.RawMessage `json:"createdAt"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type ampThread struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Messages []ampMsg `json:"messages"`
}

func (a *Amp) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 32)
	go func() {
		defer close(out)
		for _, root := range a.roots() {
			files := globFiles(root, func(name string) bool {
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
				a.scanFile(f, info.ModTime(), out)
			}
		}
	}()
	return out, nil
}

func (a *Amp) scanFile(path string, mtime time.Time, out chan<- Event) {
	data, err := os.ReadFile(path)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: a.Slug(), Path: path, Reason: "io_read", Err: err}}
		return
	}

	var thread ampThread
	if err := json.Unmarshal(data, &thread); err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: a.Slug(), Path: path, Reason: "parse", Err: err}}
		return
	}
	if len(thread.Messages) == 0 {
		return
	}

	extID := thread.ID
	if extID == "" {
		extID = externalIDFromPath(path)
	}

	conv := &NormalizedConversation{
		AgentSlug:  a.Slug(),
		ExternalID: extID,
		Title:      thread.Title,
		SourcePath: path,
		CreatedAt:  mtime,
		UpdatedAt:  mtime,
	}

	for _, m := range thread.Messages {
		content := flattenJSONContent(m.Content, "")
		if content == "" {
			continue
		}
		tsRaw := m.CreatedAt
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
	if conv.Title == "" {
		conv.Title = firstUserMessagePrefix(conv.Messages)
	}
	out <- Event{Conversation: conv}
}
