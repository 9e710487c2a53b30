package connector

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/convoindex/convoindex/internal/paths"
)

// Aider reads ~/.aider.chat.history.md: a single append-only Markdown
// transcript for every session ever run on this host. Sessions are
// delimited by "# aider chat started at ..." headers; within a session,
// "#### " prefixes a user message and blockquoted/plain lines are the
// assistant's reply, per Aider's own history-writer format.
type Aider struct{ path string }

func NewAider() *Aider {
	r, _ := paths.DetectRoots()
	return &Aider{path: r.AiderGlobalHistory}
}

func (a *Aider) Slug() string        { return "aider" }
func (a *Aider) DisplayName() string { return "Aider" }

func (a *Aider) Detect(ctx context.Context) (DetectionResult, error) {
	if !paths.Exists(a.path) {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: []string{a.path}}, nil
}

func (a *Aider) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		if !pathPassesFilter(a.path, sc.PathFilter) {
			return
		}
		info, err := os.Stat(a.path)
		if err != nil {
			return
		}
		if !sc.SinceTS.IsZero() && !info.ModTime().After(sc.SinceTS) {
			return
		}
		a.scanFile(info.ModTime(), out, ctx)
	}()
	return out, nil
}

func (a *Aider) scanFile(mtime time.Time, out chan<- Event, ctx context.Context) {
	f, err := os.Open(a.path)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: a.Slug(), Path: a.path, Reason: "io_read", Err: err}}
		return
	}
	defer f.Close()

	var (
		sessionIdx  int
		conv        *NormalizedConversation
		sessionTime = mtime
		pendingRole string
		pendingBuf  []string
	)

	flushPending := func() {
		if len(pendingBuf) == 0 || conv == nil {
			pendingBuf = nil
			return
		}
		content := strings.TrimSpace(strings.Join(pendingBuf, "\n"))
		pendingBuf = nil
		if content == "" {
			return
		}
		ts := sessionTime
		conv.Messages = append(conv.Messages, NormalizedMessage{
			Role:      NormalizeRole(pendingRole),
			Content:   content,
			Timestamp: &ts,
		})
	}

	emitConv := func() {
		flushPending()
		if conv != nil && len(conv.Messages) > 0 {
			conv.Title = firstUserMessagePrefix(conv.Messages)
			out <- Event{Conversation: conv}
		}
		conv = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := scanner.Text()

		if strings.HasPrefix(line, "# aider chat started at ") {
			emitConv()
			sessionIdx++
			sessionTime = parseAiderHeaderTime(line, mtime)
			conv = &NormalizedConversation{
				AgentSlug:  a.Slug(),
				ExternalID: sessionStartMarker(sessionIdx, sessionTime),
				SourcePath: a.path,
				CreatedAt:  sessionTime,
				UpdatedAt:  sessionTime,
			}
			pendingRole = ""
			continue
		}
		if conv == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#### "):
			flushPending()
			pendingRole = "user"
			pendingBuf = append(pendingBuf, strings.TrimPrefix(line, "#### "))
		case strings.HasPrefix(line, "# "):
			// a secondary header inside a session marks aider's own
			// commentary; treat as a role switch back to assistant.
			flushPending()
			pendingRole = "assistant"
			pendingBuf = append(pendingBuf, strings.TrimPrefix(line, "# "))
		default:
			if pendingRole != "assistant" {
				flushPending()
				pendingRole = "assistant"
			}
			pendingBuf = append(pendingBuf, line)
		}
		if conv.UpdatedAt.Before(sessionTime) {
			conv.UpdatedAt = sessionTime
		}
	}
	if err := scanner.Err(); err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: a.Slug(), Path: a.path, Reason: "io_read", Err: err}}
	}
	emitConv()
}

func parseAiderHeaderTime(line string, fallback time.Time) time.Time {
	rest := strings.TrimPrefix(line, "# aider chat started at ")
	rest = strings.TrimSpace(rest)
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, rest); err == nil {
			return t
		}
	}
	return fallback
}

func sessionStartMarker(idx int, t time.Time) string {
	return "aider-" + t.Format("20060102-150405") + "-" + strconv.Itoa(idx)
}
