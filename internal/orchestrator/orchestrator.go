// Package orchestrator drives the nine connectors (internal/connector)
// and writes their normalized output into both the relational store
// (internal/store) and the full-text index (internal/ftsindex), in full
// and incremental/watch modes, per spec.md §4.5.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/convoindex/convoindex/internal/connector"
	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/logx"
	"github.com/convoindex/convoindex/internal/model"
	"github.com/convoindex/convoindex/internal/store"
)

// ProgressEvent is one point on the orchestrator's progress stream,
// strictly monotonic in Completed within each stage of a single Run
// (spec.md §5).
type ProgressEvent struct {
	Stage     string // "discovering" or "indexing"
	Completed int
	Total     int
	LastSlug  string
}

// RunSummary accumulates the counters original_source's connector and
// robot-output tests expect back from a run, supplementing what
// spec.md's distillation dropped.
type RunSummary struct {
	AgentsScanned         int
	ConversationsIngested int
	MessagesIngested      int
	MessagesDeduped       int
	ParseErrors           int
	SkippedEncrypted      int
	IdempotentReplay      bool
}

// Orchestrator is the single drive loop over every registered connector.
type Orchestrator struct {
	Connectors []connector.Connector
	Store      *store.Store
	Index      *ftsindex.Index
	Writer     *ftsindex.Writer

	OnProgress func(ProgressEvent)

	batchCount int
	batchWait  time.Duration
}

// New builds an Orchestrator wired to the given store/index, batching
// index writes through a fresh ftsindex.Writer with the configured
// batch boundaries.
func New(st *store.Store, idx *ftsindex.Index, batchCount int, batchWait time.Duration) *Orchestrator {
	return &Orchestrator{
		Connectors: connector.All(),
		Store:      st,
		Index:      idx,
		Writer:     ftsindex.NewWriter(idx, batchCount, batchWait),
		batchCount: batchCount,
		batchWait:  batchWait,
	}
}

func (o *Orchestrator) emit(ev ProgressEvent) {
	if o.OnProgress != nil {
		o.OnProgress(ev)
	}
}

// RunOptions configures one full-mode invocation.
type RunOptions struct {
	IdempotencyKey string
}

// Run performs a full reindex: truncates both stores, detects every
// connector concurrently, scans detected connectors through a bounded
// worker pool, and ingests each connector's events sequentially inside
// that connector's own transaction. Grounded on cmd/reconstruct.go's
// async load-then-reconstruct channel pipeline, generalized from one
// fixed two-stage pipeline to N concurrent per-connector pipelines.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (RunSummary, error) {
	if opts.IdempotencyKey != "" {
		replay, ok, err := checkIdempotency(ctx, o.Store, opts.IdempotencyKey, fingerprintFull(opts))
		if err != nil {
			return RunSummary{}, err
		}
		if ok {
			replay.IdempotentReplay = true
			return replay, nil
		}
	}

	startedAt := time.Now()

	if err := o.Store.PruneExpiredIdempotencyRuns(ctx); err != nil {
		logx.Warn("prune idempotency ledger: %v", err)
	}
	if err := o.Store.FullRebuild(ctx); err != nil {
		return RunSummary{}, fmt.Errorf("truncate relational store: %w", err)
	}
	if err := o.Index.Rebuild(); err != nil {
		return RunSummary{}, fmt.Errorf("rebuild ftsindex: %w", err)
	}
	o.Writer = ftsindex.NewWriter(o.Index, o.batchCount, o.batchWait)

	detected, err := o.detectAll(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	o.emit(ProgressEvent{Stage: "discovering", Completed: len(detected), Total: len(detected)})

	summary, err := o.scanAndIngestAll(ctx, detected, connector.ScanContext{})
	if err != nil {
		return summary, err
	}

	if err := o.Writer.Flush(); err != nil {
		return summary, fmt.Errorf("flush ftsindex writer: %w", err)
	}

	if opts.IdempotencyKey != "" {
		if err := recordIdempotency(ctx, o.Store, opts.IdempotencyKey, fingerprintFull(opts), startedAt, summary); err != nil {
			logx.Warn("record idempotency run: %v", err)
		}
	}

	return summary, nil
}

// detectAll runs Detect concurrently across every registered connector,
// grounded on gocontext-mcp's errgroup fan-out, and returns the subset
// that reported itself present.
func (o *Orchestrator) detectAll(ctx context.Context) ([]connector.Connector, error) {
	results := make([]connector.DetectionResult, len(o.Connectors))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range o.Connectors {
		i, c := i, c
		g.Go(func() error {
			res, err := c.Detect(gctx)
			if err != nil {
				logx.Warn("detect %s: %v", c.Slug(), err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detect connectors: %w", err)
	}

	var present []connector.Connector
	for i, c := range o.Connectors {
		if results[i].Present {
			present = append(present, c)
		}
	}
	return present, nil
}

// scanAndIngestAll scans detected connectors through a worker pool sized
// runtime.NumCPU(), ingesting each connector's event stream sequentially
// inside its own transaction as it arrives.
func (o *Orchestrator) scanAndIngestAll(ctx context.Context, detected []connector.Connector, sc connector.ScanContext) (RunSummary, error) {
	var (
		mu      sync.Mutex
		total   RunSummary
		done    int
		workers = runtime.NumCPU()
	)
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range detected {
		c := c
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			sum, err := o.ingestOne(gctx, c, sc)
			mu.Lock()
			total.AgentsScanned++
			total.ConversationsIngested += sum.ConversationsIngested
			total.MessagesIngested += sum.MessagesIngested
			total.MessagesDeduped += sum.MessagesDeduped
			total.ParseErrors += sum.ParseErrors
			total.SkippedEncrypted += sum.SkippedEncrypted
			done++
			o.emit(ProgressEvent{Stage: "indexing", Completed: done, Total: len(detected), LastSlug: c.Slug()})
			mu.Unlock()
			if err != nil {
				logx.Warn("ingest %s: %v", c.Slug(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, fmt.Errorf("scan connectors: %w", err)
	}
	return total, nil
}

// ingestOne drains one connector's Scan channel and commits everything
// it produced in a single transaction, preserving ordering and atomicity
// per connector while letting connectors run concurrently with each
// other.
func (o *Orchestrator) ingestOne(ctx context.Context, c connector.Connector, sc connector.ScanContext) (RunSummary, error) {
	var sum RunSummary

	events, err := c.Scan(ctx, sc)
	if err != nil {
		return sum, fmt.Errorf("scan %s: %w", c.Slug(), err)
	}

	tx, err := o.Store.BeginWrite(ctx)
	if err != nil {
		return sum, fmt.Errorf("begin write for %s: %w", c.Slug(), err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	agentID, err := o.Store.EnsureAgent(ctx, c.Slug(), c.DisplayName(), time.Now())
	if err != nil {
		return sum, fmt.Errorf("ensure agent %s: %w", c.Slug(), err)
	}

	for ev := range events {
		if ev.Diagnostic != nil {
			sum.ParseErrors++
			if ev.Diagnostic.Reason == "encrypted_unsupported" {
				sum.SkippedEncrypted++
			}
			logx.With("agent", ev.Diagnostic.AgentSlug, "path", ev.Diagnostic.Path).
				Warn("skipping: %s: %v", ev.Diagnostic.Reason, ev.Diagnostic.Err)
			continue
		}

		nc := ev.Conversation
		workspaceID, err := o.Store.EnsureWorkspace(ctx, nc.WorkspaceHint, filepath.Base(nc.WorkspaceHint))
		if err != nil {
			sum.ParseErrors++
			logx.Warn("ensure workspace for %s/%s: %v", c.Slug(), nc.ExternalID, err)
			continue
		}

		conv := &model.Conversation{
			AgentID:     agentID,
			WorkspaceID: workspaceID,
			ExternalID:  nc.ExternalID,
			Title:       deriveTitle(nc),
			CreatedAt:   nc.CreatedAt,
			UpdatedAt:   nc.UpdatedAt,
			SourcePath:  nc.SourcePath,
			Metadata:    nc.Metadata,
		}
		convID, err := o.Store.UpsertConversation(ctx, tx, conv)
		if err != nil {
			sum.ParseErrors++
			logx.Warn("upsert conversation %s/%s: %v", c.Slug(), nc.ExternalID, err)
			continue
		}
		sum.ConversationsIngested++

		for i, nm := range nc.Messages {
			role := model.NormalizeRole(nm.Role)
			createdAt := nc.CreatedAt
			if nm.Timestamp != nil {
				createdAt = *nm.Timestamp
			}
			msg := &model.Message{
				ConversationID: convID,
				MsgIdx:         i,
				Role:           role,
				Content:        nm.Content,
				CreatedAt:      createdAt,
				ContentHash:    model.ContentHash(role, nm.Content),
			}
			_, wrote, err := o.Store.UpsertMessage(ctx, tx, msg)
			if err != nil {
				sum.ParseErrors++
				logx.Warn("upsert message %s/%s#%d: %v", c.Slug(), nc.ExternalID, i, err)
				continue
			}
			if !wrote {
				sum.MessagesDeduped++
				continue
			}
			sum.MessagesIngested++

			doc := ftsindex.NewDocument(c.Slug(), nc.WorkspaceHint, nc.SourcePath, i, createdAt,
				conv.Title, nm.Content, msg.ContentHash)
			if err := o.Writer.Add(doc); err != nil {
				logx.Warn("stage ftsindex doc %s/%s#%d: %v", c.Slug(), nc.ExternalID, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return sum, fmt.Errorf("commit %s: %w", c.Slug(), err)
	}
	committed = true
	return sum, nil
}

func deriveTitle(nc *connector.NormalizedConversation) string {
	if nc.Title != "" {
		return model.DeriveTitle(nc.Title)
	}
	for _, m := range nc.Messages {
		if m.Role == "user" {
			return model.DeriveTitle(m.Content)
		}
	}
	return ""
}
