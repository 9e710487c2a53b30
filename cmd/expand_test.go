package cmd

import (
	"bytes"
	"testing"
)

func TestExpandCommandRequiresTwoArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "expand", "1"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expand with only one argument should error")
	}
}

func TestContextCommandMissingIndexErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "context", "1", "0"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("context against an empty data dir should error")
	}
}
