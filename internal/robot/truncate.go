package robot

import (
	"strings"
	"unicode/utf8"
)

// TruncateContent caps content at maxRunes runes, never splitting a
// multi-byte rune, and reports whether truncation occurred. maxRunes <= 0
// disables truncation.
func TruncateContent(content string, maxRunes int) (string, bool) {
	if maxRunes <= 0 || utf8.RuneCountInString(content) <= maxRunes {
		return content, false
	}
	r := []rune(content)
	return string(r[:maxRunes]), true
}

// TruncateTokens caps content at maxTokens whitespace-delimited tokens,
// reassembled with single spaces, and reports whether truncation
// occurred. maxTokens <= 0 disables truncation.
func TruncateTokens(content string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return content, false
	}
	tokens := strings.Fields(content)
	if len(tokens) <= maxTokens {
		return content, false
	}
	return strings.Join(tokens[:maxTokens], " "), true
}

// ApplyTruncation applies both the content-length and token limits (the
// tighter of the two wins) and sets h.ContentTruncated when either fired.
func ApplyTruncation(h Hit, maxContentLength, maxTokens int) Hit {
	content := h.Content
	truncated := false

	if c, did := TruncateContent(content, maxContentLength); did {
		content, truncated = c, true
	}
	if c, did := TruncateTokens(content, maxTokens); did {
		content, truncated = c, true
	}

	h.Content = content
	if truncated {
		h.ContentTruncated = boolPtr(true)
	}
	return h
}
