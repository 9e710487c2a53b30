// Package cmd wires the cobra command tree for convoindex, in the
// teacher's root.go/list.go/show.go idiom: persistent flags set up
// shared dependencies in PersistentPreRun, each subcommand opens what
// it needs and closes it before returning.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/config"
	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/logx"
	"github.com/convoindex/convoindex/internal/query"
	"github.com/convoindex/convoindex/internal/store"
)

var (
	verbose    bool
	dataDir    string
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "convoindex",
	Short: "Search, browse, and export local coding-assistant conversation logs",
	Long: `convoindex indexes conversation logs left behind by local coding
assistants (Codex, Cline, Gemini, Claude Code, OpenCode, Amp, Cursor,
ChatGPT, Aider) into one searchable corpus.

Quick Start:
  convoindex index --full        # build the index
  convoindex search "flaky test" # search across every agent
  convoindex list                # list indexed conversations
  convoindex show <id>           # view one conversation
  convoindex export <id> --format md`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logx.SetVerbose(verbose)
		cfg = config.Load(configPath)
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if cfg.DataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve default data dir: %w", err)
			}
			cfg.DataDir = filepath.Join(home, ".convoindex")
		}
		return os.MkdirAll(cfg.DataDir, 0o755)
	},
}

// Execute adds all child commands to the root command, runs it, and maps
// any returned errs.Error to the process exit code spec.md §6 pins.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if ce, ok := err.(*errs.Error); ok {
			if ce.Hint != "" {
				fmt.Fprintf(os.Stderr, "Hint: %s\n", ce.Hint)
			}
			os.Exit(ce.ExitCode())
		}
		os.Exit(9)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the index/store data directory (default: ~/.convoindex)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// storePath returns the path to the relational store database under the
// resolved data directory.
func storePath() string {
	return filepath.Join(cfg.DataDir, "store.db")
}

// openStoreAndIndex opens the relational store and full-text index the
// way every read-only command needs them, mapping a missing index to
// errs.KindIndexMissing per spec.md §7.
func openStoreAndIndex(ctx context.Context) (*store.Store, *ftsindex.Index, error) {
	if _, err := os.Stat(storePath()); os.IsNotExist(err) {
		return nil, nil, errs.New(errs.KindIndexMissing, "no index found, run `convoindex index --full` first", err)
	}
	st, err := store.Open(ctx, storePath())
	if err != nil {
		return nil, nil, errs.New(errs.KindIORead, "failed to open store", err)
	}
	idx, err := ftsindex.Open(cfg.DataDir)
	if err != nil {
		st.Close()
		return nil, nil, errs.New(errs.KindIndexMissing, "failed to open full-text index", err)
	}
	return st, idx, nil
}

// openEngine opens the store/index pair and wraps them in a query.Engine
// configured from cfg, for the commands that search rather than just list.
func openEngine(ctx context.Context) (*query.Engine, *store.Store, *ftsindex.Index, error) {
	st, idx, err := openStoreAndIndex(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	e := query.NewEngine(idx, st, cfg.CacheShards, cfg.CacheShardSize, cfg.CacheGlobalCap,
		cfg.WarmDebounceMS, cfg.FuzzyThreshold, cfg.ConsistencyThresh, query.RankWeights{
			FallbackPenalty: cfg.RankFallbackPenalty,
			RegexPenalty:    cfg.RankRegexPenalty,
			BalancedRelWt:   cfg.RankBalancedRelWt,
			BalancedTimeWt:  cfg.RankBalancedTimeWt,
			DecayDays:       cfg.RankDecayDays,
		})
	return e, st, idx, nil
}
