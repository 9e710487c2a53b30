package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/convoindex/convoindex/internal/store"
)

func TestListCommandMissingIndexErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "list"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("list against an empty data dir should error")
	}
}

func TestListCommandFlagParsing(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "agent filter", args: []string{"list", "--agent", "codex"}},
		{name: "workspace filter", args: []string{"list", "--workspace", "/proj"}},
		{name: "limit flag", args: []string{"list", "--limit", "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(append([]string{"--data-dir", t.TempDir()}, tt.args...))
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetErr(&bytes.Buffer{})
			_ = rootCmd.Execute()
		})
	}
}

func TestFormatRelative(t *testing.T) {
	if got := formatRelative(time.Time{}); got != "-" {
		t.Errorf("formatRelative(zero) = %q, want %q", got, "-")
	}
	recent := formatRelative(time.Now().Add(-time.Hour))
	if recent == "" {
		t.Error("formatRelative(recent) should not be empty")
	}
}

func TestDisplayConversationsEmptyDoesNotPanic(t *testing.T) {
	displayConversations(nil)
	displayConversations([]store.ConversationSummary{})
}
