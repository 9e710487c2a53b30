package query

import "strings"

// snippetWindow is how many runes of context surround the first match
// when no pre-computed snippet is available.
const snippetWindow = 120

// BuildSnippet resolves a hit's display snippet in the priority order
// spec.md §4.4 lays out: a snippet already sitting in the prefix cache,
// then the index's stored preview field, then a locally computed window
// around the first literal match, and finally the full content (never
// an empty string) as the last resort.
func BuildSnippet(cached string, storedPreview string, content string, query string) string {
	if cached != "" {
		return cached
	}
	if storedPreview != "" {
		return storedPreview
	}
	if w := windowAroundMatch(content, query); w != "" {
		return w
	}
	return content
}

func windowAroundMatch(content, query string) string {
	query = strings.TrimSpace(strings.Trim(query, "*\""))
	if query == "" {
		return ""
	}
	lower := strings.ToLower(content)
	idx := strings.Index(lower, strings.ToLower(query))
	if idx < 0 {
		return ""
	}

	runes := []rune(content)
	byteToRune := make([]int, len(content)+1)
	pos := 0
	for i := range content {
		byteToRune[i] = pos
		pos++
	}
	byteToRune[len(content)] = pos

	matchStart := byteToRune[idx]
	start := matchStart - snippetWindow/2
	if start < 0 {
		start = 0
	}
	end := start + snippetWindow
	if end > len(runes) {
		end = len(runes)
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(runes) {
		snippet = snippet + "…"
	}
	return snippet
}
