package robot

import (
	"encoding/json"
	"fmt"
	"io"
)

// metaLine wraps Meta so the streaming header line is distinguishable
// from a Hit line without a schema field: the header is the only line
// with a top-level "_meta" key.
type metaLine struct {
	Meta Meta `json:"_meta"`
}

// WriteStream writes env in line-delimited form: one _meta header line
// first, then one projected Hit object per line, matching the teacher's
// JSONLExporter line-per-record style so downstream tools can treat
// robot --stream output the same way they treat a jsonl export.
func WriteStream(w io.Writer, env Envelope, keys map[string]bool) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(metaLine{Meta: env.Meta}); err != nil {
		return fmt.Errorf("encode _meta header: %w", err)
	}
	for i, h := range env.Hits {
		if err := enc.Encode(Project(h, keys)); err != nil {
			return fmt.Errorf("encode hit %d: %w", i, err)
		}
	}
	return nil
}

// WriteEnvelope writes env as one pretty-printed JSON document with hits
// projected to keys, the non-streaming --robot default.
func WriteEnvelope(w io.Writer, env Envelope, keys map[string]bool) error {
	projected := make([]map[string]any, 0, len(env.Hits))
	for _, h := range env.Hits {
		projected = append(projected, Project(h, keys))
	}
	doc := struct {
		Hits []map[string]any `json:"hits"`
		Meta Meta             `json:"_meta"`
	}{Hits: projected, Meta: env.Meta}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
