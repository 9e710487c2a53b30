package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/convoindex/convoindex/internal/model"
)

// JSONLExporter writes one JSON object per message, newline-delimited,
// the same line-per-record style internal/robot's streaming output uses.
type JSONLExporter struct{}

type jsonlRecord struct {
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp,omitempty"`
	MsgIdx    int        `json:"msg_idx"`
}

func (e *JSONLExporter) Export(c Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, m := range c.Messages {
		rec := jsonlRecord{
			Role:    m.Role,
			Content: m.Content,
			MsgIdx:  m.MsgIdx,
		}
		if !m.CreatedAt.IsZero() {
			rec.Timestamp = m.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode message %d: %w", m.MsgIdx, err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string { return "jsonl" }
