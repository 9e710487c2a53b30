package export

import (
	"encoding/json"
	"io"
)

// JSONExporter writes the whole conversation as one pretty-printed JSON
// document.
type JSONExporter struct{}

type jsonDoc struct {
	ID         int64          `json:"id"`
	Agent      string         `json:"agent"`
	ExternalID string         `json:"external_id"`
	Title      string         `json:"title"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	SourcePath string         `json:"source_path"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Messages   []jsonlRecord  `json:"messages"`
}

func (e *JSONExporter) Export(c Conversation, w io.Writer) error {
	doc := jsonDoc{
		ID:         c.Conversation.ID,
		Agent:      c.AgentSlug,
		ExternalID: c.Conversation.ExternalID,
		Title:      c.Conversation.Title,
		CreatedAt:  c.Conversation.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  c.Conversation.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		SourcePath: c.Conversation.SourcePath,
		Metadata:   c.Conversation.Metadata,
	}
	for _, m := range c.Messages {
		rec := jsonlRecord{Role: m.Role, Content: m.Content, MsgIdx: m.MsgIdx}
		if !m.CreatedAt.IsZero() {
			rec.Timestamp = m.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		doc.Messages = append(doc.Messages, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (e *JSONExporter) Extension() string { return "json" }
