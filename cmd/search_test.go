package cmd

import (
	"bytes"
	"testing"

	"github.com/convoindex/convoindex/internal/query"
)

func TestSearchCommandMissingIndexErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "search", "widget"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("search against an empty data dir should error")
	}
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "search"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Error("search with no query argument should error")
	}
}

func TestBuildFiltersRejectsBadTimestamps(t *testing.T) {
	searchSince, searchUntil = "not-a-time", ""
	defer func() { searchSince = "" }()

	if _, err := buildFilters(); err == nil {
		t.Error("buildFilters with an invalid --since should error")
	}
}

func TestPrintHitsTableEmptyDoesNotPanic(t *testing.T) {
	printHitsTable(query.Hits{})
}
