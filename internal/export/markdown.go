package export

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownExporter exports a conversation as a human-readable transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(c Conversation, w io.Writer) error {
	conv := c.Conversation

	title := conv.Title
	if title == "" {
		title = conv.ExternalID
	}
	if _, err := fmt.Fprintf(w, "# %s\n\n", title); err != nil {
		return err
	}
	if c.AgentSlug != "" {
		fmt.Fprintf(w, "**Agent:** %s  \n", c.AgentSlug)
	}
	fmt.Fprintf(w, "**Source:** %s  \n", conv.SourcePath)
	fmt.Fprintf(w, "**Messages:** %d\n\n", len(c.Messages))
	fmt.Fprintf(w, "---\n\n")

	for i, m := range c.Messages {
		ts := ""
		if !m.CreatedAt.IsZero() {
			ts = fmt.Sprintf(" (%s)", m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", m.Role, ts, escapeMarkdown(m.Content))
		if i < len(c.Messages)-1 {
			fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

// escapeMarkdown escapes markdown syntax outside fenced code blocks, which
// are left untouched so embedded snippets still render correctly.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		case inCodeBlock:
			result = append(result, line)
		default:
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

func (e *MarkdownExporter) Extension() string { return "md" }
