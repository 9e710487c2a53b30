package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter writes the whole conversation as a single YAML document.
type YAMLExporter struct{}

type yamlMessage struct {
	Role      string `yaml:"role"`
	Content   string `yaml:"content"`
	Timestamp string `yaml:"timestamp,omitempty"`
	MsgIdx    int    `yaml:"msg_idx"`
}

type yamlDoc struct {
	ID         int64          `yaml:"id"`
	Agent      string         `yaml:"agent"`
	ExternalID string         `yaml:"external_id"`
	Title      string         `yaml:"title"`
	CreatedAt  string         `yaml:"created_at"`
	UpdatedAt  string         `yaml:"updated_at"`
	SourcePath string         `yaml:"source_path"`
	Metadata   map[string]any `yaml:"metadata,omitempty"`
	Messages   []yamlMessage  `yaml:"messages"`
}

func (e *YAMLExporter) Export(c Conversation, w io.Writer) error {
	doc := yamlDoc{
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
		rec := yamlMessage{Role: string(m.Role), Content: m.Content, MsgIdx: m.MsgIdx}
		if !m.CreatedAt.IsZero() {
			rec.Timestamp = m.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		doc.Messages = append(doc.Messages, rec)
	}

	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(doc)
}

func (e *YAMLExporter) Extension() string { return "yaml" }
