package connector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/convoindex/convoindex/internal/cursorkv"
	"github.com/convoindex/convoindex/internal/paths"
)

// Cursor wraps the cursorkv package: Cursor's conversation history lives in
// per-workspace state.vscdb SQLite files (workspaceStorage) plus a shared
// globalStorage state.vscdb, and, on newer builds, a flat per-agent
// cursorDiskKV key-value store under CursorAgentStorage. All three feed the
// same bubble/composer reconstruction pipeline.
type Cursor struct {
	workspaceRoot string
	globalRoot    string
	agentRoot     string
}

func NewCursor() *Cursor {
	r, _ := paths.DetectRoots()
	return &Cursor{
		workspaceRoot: r.CursorWorkspace,
		globalRoot:    r.CursorGlobalStorage,
		agentRoot:     r.CursorAgentStorage,
	}
}

func (c *Cursor) Slug() string        { return "cursor" }
func (c *Cursor) DisplayName() string { return "Cursor" }

func (c *Cursor) Detect(ctx context.Context) (DetectionResult, error) {
	var roots []string
	if paths.IsDir(c.workspaceRoot) {
		roots = append(roots, c.workspaceRoot)
	}
	if paths.IsDir(c.globalRoot) {
		roots = append(roots, c.globalRoot)
	}
	if paths.IsDir(c.agentRoot) {
		roots = append(roots, c.agentRoot)
	}
	if len(roots) == 0 {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: roots}, nil
}

func (c *Cursor) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 64)
	go func() {
		defer close(out)

		dbPaths := globFiles(c.workspaceRoot, func(name string) bool { return name == "state.vscdb" })
		if gp := filepath.Join(c.globalRoot, "state.vscdb"); paths.Exists(gp) {
			dbPaths = append(dbPaths, gp)
		}

		for _, dbPath := range dbPaths {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !pathPassesFilter(dbPath, sc.PathFilter) {
				continue
			}
			info, err := os.Stat(dbPath)
			if err != nil {
				continue
			}
			if !sc.SinceTS.IsZero() && !info.ModTime().After(sc.SinceTS) {
				continue
			}
			c.scanStateDB(dbPath, info.ModTime(), out)
		}

		if paths.IsDir(c.agentRoot) {
			storeDBs := globFiles(c.agentRoot, func(name string) bool { return strings.HasSuffix(name, ".db") || strings.HasSuffix(name, ".sqlite") })
			if len(storeDBs) > 0 {
				reader := cursorkv.NewAgentStorageReader(storeDBs)
				bubbles, composers, contexts, err := reader.LoadAllSessionsFromAgentStorage()
				if err != nil {
					out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: c.agentRoot, Reason: "io_read", Err: err}}
				} else {
					c.emitReconstructedFromMap(bubbles, composers, contexts, c.agentRoot, out)
				}
			}
		}
	}()
	return out, nil
}

func (c *Cursor) scanStateDB(dbPath string, mtime time.Time, out chan<- Event) {
	db, err := cursorkv.OpenDatabase(dbPath)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: dbPath, Reason: "io_read", Err: err}}
		return
	}
	defer db.Close()

	storage := cursorkv.NewStorage(db)
	bubbleRaw, err := storage.LoadBubbles()
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: dbPath, Reason: "parse", Err: err}}
		return
	}
	composers, err := storage.LoadComposers()
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: dbPath, Reason: "parse", Err: err}}
		return
	}
	contexts, err := storage.LoadMessageContexts()
	if err != nil {
		contexts = map[string][]*cursorkv.MessageContext{}
	}

	c.emitReconstructedFromMap(bubbleRaw, composers, contexts, dbPath, out)
}

func (c *Cursor) emitReconstructedFromMap(
	bubbles map[string]*cursorkv.RawBubble,
	composers []*cursorkv.RawComposer,
	contexts map[string][]*cursorkv.MessageContext,
	sourcePath string,
	out chan<- Event,
) {
	bm := cursorkv.NewBubbleMap()
	for id, b := range bubbles {
		bm.Set(id, b)
	}
	c.emitReconstructed(bm, composers, contexts, sourcePath, out)
}

func (c *Cursor) emitReconstructed(
	bubbleMap *cursorkv.BubbleMap,
	composers []*cursorkv.RawComposer,
	contexts map[string][]*cursorkv.MessageContext,
	sourcePath string,
	out chan<- Event,
) {
	recon := cursorkv.NewReconstructor(bubbleMap, contexts)
	conversations, err := recon.ReconstructAllConversations(composers)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: sourcePath, Reason: "parse", Err: err}}
		return
	}

	for _, rc := range conversations {
		if len(rc.Messages) == 0 {
			continue
		}
		conv := &NormalizedConversation{
			AgentSlug:     c.Slug(),
			ExternalID:    rc.ComposerID,
			Title:         rc.Name,
			SourcePath:    sourcePath,
			WorkspaceHint: filepath.Dir(filepath.Dir(sourcePath)),
			CreatedAt:     epochMillisToTime(rc.CreatedAt),
			UpdatedAt:     epochMillisToTime(rc.UpdatedAt),
		}
		for _, m := range rc.Messages {
			if strings.TrimSpace(m.Text) == "" {
				continue
			}
			role := "assistant"
			if m.Type == 1 {
				role = "user"
			}
			ts := epochMillisToTime(m.Timestamp)
			conv.Messages = append(conv.Messages, NormalizedMessage{
				Role:      NormalizeRole(role),
				Content:   m.Text,
				Timestamp: &ts,
			})
		}
		if len(conv.Messages) == 0 {
			continue
		}
		if conv.Title == "" {
			conv.Title = firstUserMessagePrefix(conv.Messages)
		}
		out <- Event{Conversation: conv}
	}
}

func epochMillisToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
