// Package export renders one conversation to a portable file format.
// Each exporter operates on the normalized model rather than any
// connector-specific shape, so a conversation ingested from any of the
// nine sources exports identically.
package export

import (
	"fmt"
	"io"

	"github.com/convoindex/convoindex/internal/model"
)

// Conversation bundles a conversation row with its messages, the unit
// every Exporter renders.
type Conversation struct {
	Conversation model.Conversation
	Messages     []model.Message
	AgentSlug    string
}

// Exporter renders one Conversation to w in its own format.
type Exporter interface {
	Export(c Conversation, w io.Writer) error
	Extension() string
}

// NewExporter resolves format to a concrete Exporter.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s (supported: jsonl, md, yaml, json)", format)
	}
}
