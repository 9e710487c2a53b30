package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/orchestrator"
	"github.com/convoindex/convoindex/internal/progress"
	"github.com/convoindex/convoindex/internal/store"
)

var (
	indexFull           bool
	indexWatch          bool
	indexIdempotencyKey string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the conversation index",
	Long: `index scans every detected connector's storage and writes the
normalized result into both the relational store and the full-text
index.

--full truncates and rebuilds both stores from scratch. --watch instead
keeps watching each connector's storage until interrupted and re-scans a
connector when its files change; no scan runs at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, storePath())
		if err != nil {
			return errs.New(errs.KindIORead, "failed to open store", err)
		}
		defer st.Close()

		idx, err := ftsindex.Open(cfg.DataDir)
		if err != nil {
			return errs.New(errs.KindIndexMissing, "failed to open full-text index", err)
		}
		defer idx.Close()

		o := orchestrator.New(st, idx, cfg.BatchCommitCount, time.Duration(cfg.BatchCommitMS)*time.Millisecond)
		o.OnProgress = progress.OnOrchestratorEvent

		if indexWatch {
			statePath := filepath.Join(cfg.DataDir, "watch_state.json")
			progress.PrintInfo("watching connector storage for changes, press ctrl-c to stop")
			if err := o.RunIncremental(ctx, statePath, time.Duration(cfg.WatchDebounceMS)*time.Millisecond); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		}

		summary, err := o.Run(ctx, orchestrator.RunOptions{IdempotencyKey: indexIdempotencyKey})
		if err != nil {
			return err
		}

		if summary.IdempotentReplay {
			progress.PrintInfo("idempotency key already run, returning prior result")
		}
		progress.PrintSuccess(fmt.Sprintf(
			"scanned %d agent(s): %d conversation(s), %d message(s) ingested (%d deduped, %d parse errors, %d encrypted skipped)",
			summary.AgentsScanned, summary.ConversationsIngested, summary.MessagesIngested,
			summary.MessagesDeduped, summary.ParseErrors, summary.SkippedEncrypted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "Truncate and rebuild the index from scratch")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "Run incrementally and watch for changes")
	indexCmd.Flags().StringVar(&indexIdempotencyKey, "idempotency-key", "", "Dedupe repeated --full runs sharing this key")
}
