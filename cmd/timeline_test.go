package cmd

import (
	"bytes"
	"testing"
)

func TestTimelineCommandMissingIndexErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "timeline"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("timeline against an empty data dir should error")
	}
}

func TestTimelineCommandRejectsBadSince(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "timeline", "--since", "not-a-time"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("timeline --since not-a-time should error")
	}
}
