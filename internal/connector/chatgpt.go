package connector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/convoindex/convoindex/internal/paths"
)

// ChatGPT reads the desktop app's per-conversation export cache under
// Application Support/com.openai.chat. Versions through v1 write plain
// JSON; v2/v3 wrap the payload in an encrypted container this connector
// cannot open (no device key available outside the app's own keychain
// access), so those files surface as skipped diagnostics rather than
// silently dropped conversations.
type ChatGPT struct{ root string }

func NewChatGPT() *ChatGPT {
	r, _ := paths.DetectRoots()
	return &ChatGPT{root: r.ChatGPTAppSupport}
}

func (c *ChatGPT) Slug() string        { return "chatgpt" }
func (c *ChatGPT) DisplayName() string { return "ChatGPT" }

func (c *ChatGPT) Detect(ctx context.Context) (DetectionResult, error) {
	if !paths.IsDir(c.root) {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: []string{c.root}}, nil
}

type chatgptMsg struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Content struct {
		Parts []string `json:"parts"`
	} `json:"content"`
	CreateTime json.RawMessage `json:"create_time"`
}

type chatgptConversation struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Mapping    map[string]chatgptMsg `json:"mapping"`
	CreateTime json.RawMessage       `json:"create_time"`
	UpdateTime json.RawMessage       `json:"update_time"`
}

func (c *ChatGPT) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 32)
	go func() {
		defer close(out)
		files := globFiles(c.root, func(name string) bool {
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
			c.scanFile(f, info.ModTime(), out)
		}
	}()
	return out, nil
}

func (c *ChatGPT) scanFile(path string, mtime time.Time, out chan<- Event) {
	data, err := os.ReadFile(path)
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: path, Reason: "io_read", Err: err}}
		return
	}

	if looksEncrypted(data) {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: path, Reason: "encrypted_unsupported", Err: nil}}
		return
	}

	var raw chatgptConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: c.Slug(), Path: path, Reason: "parse", Err: err}}
		return
	}

	extID := raw.ID
	if extID == "" {
		extID = externalIDFromPath(path)
	}

	conv := &NormalizedConversation{
		AgentSlug:  c.Slug(),
		ExternalID: extID,
		Title:      raw.Title,
		SourcePath: path,
		CreatedAt:  ParseTimestamp(raw.CreateTime, mtime),
		UpdatedAt:  ParseTimestamp(raw.UpdateTime, mtime),
	}

	for _, node := range raw.Mapping {
		content := FlattenContent(node.Content.Parts)
		if content == "" {
			continue
		}
		ts := ParseTimestamp(node.CreateTime, conv.CreatedAt)
		conv.Messages = append(conv.Messages, NormalizedMessage{
			Role:      NormalizeRole(node.Author.Role),
			Content:   content,
			Timestamp: &ts,
		})
	}

	if len(conv.Messages) == 0 {
		return
	}
	sortMessagesByTimestamp(conv.Messages)
	if conv.Title == "" {
		conv.Title = firstUserMessagePrefix(conv.Messages)
	}
	out <- Event{Conversation: conv}
}

// looksEncrypted detects the v2/v3 container: a top-level JSON object
// whose only keys are a ciphertext envelope, rather than the plaintext
// "mapping" shape v1 exports use.
func looksEncrypted(data []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, hasMapping := probe["mapping"]
	_, hasCiphertext := probe["ciphertext"]
	_, hasEncVersion := probe["encryption_version"]
	return !hasMapping && (hasCiphertext || hasEncVersion)
}

func sortMessagesByTimestamp(msgs []NormalizedMessage) {
	for i := 1; i < len(msgs); i++ {
		for j := i; j > 0 && msgs[j].Timestamp.Before(*msgs[j-1].Timestamp); j-- {
			msgs[j], msgs[j-1] = msgs[j-1], msgs[j]
		}
	}
}
