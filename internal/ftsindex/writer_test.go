package ftsindex

import (
	"strings"
	"testing"
)

func TestPreviewWindowUnderLimitIsUnchanged(t *testing.T) {
	content := "short message"
	if got := previewWindow(content, 200); got != content {
		t.Errorf("previewWindow(short) = %q, want %q", got, content)
	}
}

func TestPreviewWindowOverLimitGetsEllipsis(t *testing.T) {
	content := strings.Repeat("a", 250)
	got := previewWindow(content, 200)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("previewWindow(long) = %q, want a trailing ellipsis", got)
	}
	if runes := []rune(got); len(runes) != 201 {
		t.Errorf("previewWindow(long) has %d runes, want 200 + ellipsis", len(runes))
	}
}
