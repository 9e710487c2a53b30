package connector

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// NormalizeRole maps an arbitrary connector-reported role to one of
// user/assistant/system/tool, defaulting unknown values to "system" per
// spec.md §4.1's resilience rules. Kept connector-local (rather than
// importing internal/model) so this package has no dependency on the
// store's model types — a connector only ever speaks the wire shape.
func NormalizeRole(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user", "human":
		return "user"
	case "assistant", "ai", "bot", "model":
		return "assistant"
	case "tool", "tool_result", "function":
		return "tool"
	default:
		return "system"
	}
}

// FlattenContent joins array-shaped content (tool-use blocks, structured
// content parts) into plain text by concatenating textual parts with a
// single newline separator, per spec.md §4.1.
func FlattenContent(parts []string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// ParseTimestamp accepts either an epoch integer (seconds or
// milliseconds, auto-detected by magnitude) or an ISO-8601 string, per
// spec.md §4.1. On failure, or if raw is nil/empty, it returns fallback
// (typically the source file's mtime).
func ParseTimestamp(raw json.RawMessage, fallback time.Time) time.Time {
	if len(raw) == 0 {
		return fallback
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return epochToTime(asNumber)
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return ParseTimestampString(asString, fallback)
	}

	return fallback
}

// ParseTimestampString parses an epoch-as-string or ISO-8601 timestamp.
func ParseTimestampString(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToTime(n)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

// epochToTime auto-detects whether a numeric timestamp is in seconds,
// milliseconds, or microseconds by magnitude (values above 1e14 are
// microseconds, above 1e11 are milliseconds, otherwise seconds), since
// agent logs in the wild mix all three.
func epochToTime(n float64) time.Time {
	switch {
	case n > 1e14:
		return time.UnixMicro(int64(n))
	case n > 1e11:
		return time.UnixMilli(int64(n))
	default:
		return time.Unix(int64(n), 0)
	}
}
