package cmd

import (
	"bytes"
	"os"
	"testing"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "version flag", args: []string{"--version"}, wantErr: false},
		{name: "help flag", args: []string{"--help"}, wantErr: false},
		{name: "unknown subcommand", args: []string{"frobnicate"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			var stdout, stderr bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stderr)

			err := rootCmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCommandCreatesDataDir(t *testing.T) {
	dir := t.TempDir() + "/nested/data"
	rootCmd.SetArgs([]string{"--data-dir", dir, "list"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	// list has nothing to index yet, so it returns errs.KindIndexMissing;
	// the point of this test is that PersistentPreRunE still ran first
	// and created the directory.
	_ = rootCmd.Execute()
	if cfg.DataDir != dir {
		t.Errorf("cfg.DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("data dir %q was not created: %v", dir, err)
	}
}
