package query

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/store"
)

// DefaultConsistencyThreshold is the absolute doc-count drift between ftsindex
// and the relational store beyond which Engine distrusts the full-text
// index and falls back to the FTS5 mirror (spec.md §4.4).
const DefaultConsistencyThreshold = 50

// Engine is the single search entry point spec.md §4.4 names.
type Engine struct {
	idx   *ftsindex.Index
	store *store.Store
	cache *PrefixCache
	warm  *Warmer

	fuzzyThreshold    int
	consistencyThresh int
	weights           RankWeights
}

// NewEngine wires an Engine over an already-open index and store.
func NewEngine(idx *ftsindex.Index, st *store.Store, cacheShards, cacheShardSize, cacheGlobalCap int, warmDebounceMS, fuzzyThreshold, consistencyThresh int, weights RankWeights) *Engine {
	e := &Engine{
		idx:               idx,
		store:             st,
		cache:             NewPrefixCache(cacheShards, cacheShardSize, cacheGlobalCap),
		fuzzyThreshold:    fuzzyThreshold,
		consistencyThresh: consistencyThresh,
		weights:           weights,
	}
	e.warm = NewWarmer(time.Duration(warmDebounceMS)*time.Millisecond, warmSearch(idx.Underlying()))
	return e
}

// Suggest feeds a candidate next-query string to the predictive warmer,
// called by CLI/TUI layers as the user types.
func (e *Engine) Suggest(q string) { e.warm.Suggest(q) }

// Close stops the warm worker.
func (e *Engine) Close() { e.warm.Stop() }

// Search is the single entry point: parses raw, runs it (with cache,
// fallback, and consistency-fallback logic), ranks, dedups, and pages
// the result.
func (e *Engine) Search(ctx context.Context, raw string, filters Filters, paging Paging, opts Options) (Hits, error) {
	start := time.Now()
	threshold := opts.FuzzyThreshold
	if threshold <= 0 {
		threshold = e.fuzzyThreshold
	}

	parsed := Parse(raw)
	if strings.TrimSpace(raw) == "" || len(parsed.Terms) == 0 {
		return Hits{}, nil
	}

	fp := filters.FilterFingerprint()
	key := cacheKey{NormalizedQuery: raw, FilterFingerprint: fp}

	if !opts.NoCache {
		if entry, ok := e.cache.Get(key); ok {
			return e.finish(entry.hits, true, false, false, entry.indexSchemaHash, paging, start)
		}
		if baseKey, entry, ok := e.cache.FindRefinementBase(raw, fp); ok && baseKey.NormalizedQuery != raw {
			if refined, ok := Refine(entry, raw, paging.effectiveLimit()); ok {
				e.cache.Put(key, &cacheEntry{hits: toCachedHits(refined), indexSchemaHash: entry.indexSchemaHash})
				return e.finish(toCachedHits(refined), true, false, false, entry.indexSchemaHash, paging, start)
			}
		}
	}

	stale, err := e.isStale(ctx)
	if err != nil {
		return Hits{}, fmt.Errorf("consistency check: %w", err)
	}

	var hits []Hit
	var wildcardFallback bool
	var timeoutTruncated bool
	var schemaHash string

	if stale {
		hits, err = e.searchMirror(ctx, parsed, filters, paging.effectiveLimit())
		if err != nil {
			return Hits{}, err
		}
	} else {
		hits, timeoutTruncated, err = e.searchIndex(ctx, parsed, filters, paging.effectiveLimit())
		if err != nil {
			return Hits{}, err
		}
		schemaHash = ftsindex.SchemaHash

		if shouldFallback(parsed, len(hits), threshold) {
			fbHits, _, fbErr := e.searchIndex(ctx, parsed.WithWildcards(), filters, paging.effectiveLimit())
			if fbErr == nil {
				hits = mergeFallbackHits(hits, fbHits, paging.effectiveLimit())
				wildcardFallback = true
			}
		}
	}

	Normalize(hits)
	Rank(hits, opts.Rank, e.weights)
	hits = Dedup(hits)

	if !opts.NoCache {
		e.cache.Put(key, &cacheEntry{hits: toCachedHits(hits), indexSchemaHash: schemaHash})
	}

	result, err := e.finish(toCachedHits(hits), false, wildcardFallback, stale, schemaHash, paging, start)
	if err != nil {
		return Hits{}, err
	}
	result.TimeoutTruncated = timeoutTruncated
	return result, nil
}

func (e *Engine) finish(cached []cachedHit, cacheHit, wildcardFallback, stale bool, schemaHash string, paging Paging, start time.Time) (Hits, error) {
	items := make([]Hit, len(cached))
	for i, c := range cached {
		items[i] = c.hit
	}

	limit := paging.effectiveLimit()
	total := len(items)
	offset := paging.Offset
	if paging.Cursor != "" {
		cur, ok := decodeCursor(paging.Cursor)
		if !ok {
			return Hits{}, errs.New(errs.KindUsage, "malformed cursor", nil)
		}
		if cur.IndexSchemaHash != schemaHash {
			return Hits{}, errs.New(errs.KindCursorInvalidated, "cursor invalidated: index schema changed", ErrCursorInvalidated)
		}
		offset = cur.Offset
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[offset:end]

	var nextCursor string
	if end < len(items) {
		nextCursor = encodeCursor(cursorState{Offset: end, IndexSchemaHash: schemaHash})
	}

	return Hits{
		Items:            page,
		Total:            total,
		ElapsedMs:        time.Since(start).Milliseconds(),
		CacheHit:         cacheHit,
		WildcardFallback: wildcardFallback,
		StaleIndex:       stale,
		NextCursor:       nextCursor,
		IndexSchemaHash:  schemaHash,
	}, nil
}

func (p Paging) effectiveLimit() int {
	if p.Limit <= 0 {
		return 20
	}
	return p.Limit
}

// isStale implements the consistency-fallback gate: missing/empty index,
// or a doc-count drift from the relational row count beyond threshold.
func (e *Engine) isStale(ctx context.Context) (bool, error) {
	if e.idx == nil {
		return true, nil
	}
	docCount, err := e.idx.DocCount()
	if err != nil {
		return true, nil
	}
	if docCount == 0 {
		msgCount, err := e.store.MessageCount(ctx)
		if err != nil {
			return false, err
		}
		return msgCount > 0, nil
	}
	msgCount, err := e.store.MessageCount(ctx)
	if err != nil {
		return false, err
	}
	thresh := int64(e.consistencyThresh)
	if thresh <= 0 {
		thresh = DefaultConsistencyThreshold
	}
	drift := msgCount - int64(docCount)
	if drift < 0 {
		drift = -drift
	}
	return drift > thresh, nil
}

func (e *Engine) searchIndex(ctx context.Context, parsed ParsedQuery, filters Filters, limit int) (hits []Hit, timeoutTruncated bool, err error) {
	q := buildBleveQuery(parsed, filters)
	req := bleve.NewSearchRequest(q)
	req.Size = limit * 4 // over-fetch before dedup/rank narrows it
	req.Fields = []string{"agent", "workspace", "source_path", "msg_idx", "created_at", "title", "content", "preview", "content_hash"}

	res, searchErr := e.idx.Underlying().SearchInContext(ctx, req)
	if searchErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("ftsindex search: %w", searchErr)
	}

	kind := MatchExact
	if parsed.HasExplicitWildcard() {
		kind = MatchWildcard
	}

	for _, dm := range res.Hits {
		h := hitFromDoc(dm.ID, dm.Score, dm.Fields, kind)
		h.Snippet = BuildSnippet("", fmt.Sprint(dm.Fields["preview"]), h.Content, parsed.Raw)
		hits = append(hits, h)
	}
	return hits, ctx.Err() == context.DeadlineExceeded, nil
}

func (e *Engine) searchMirror(ctx context.Context, parsed ParsedQuery, filters Filters, limit int) ([]Hit, error) {
	var expr string
	for i, t := range parsed.Terms {
		if i > 0 {
			expr += " "
		}
		expr += `"` + t.Text + `"`
	}
	rows, err := e.store.SearchFTSMirror(ctx, expr, filters.Agent, filters.Workspace, limit*2)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, Hit{
			SourcePath:  r.SourcePath,
			LineNumber:  r.MsgIdx,
			Agent:       r.AgentSlug,
			Workspace:   r.WorkspacePath,
			Title:       r.Title,
			Score:       1,
			Content:     r.Content,
			Snippet:     BuildSnippet("", "", r.Content, parsed.Raw),
			ContentHash: r.ContentHash,
			CreatedAt:   r.CreatedAt,
			MatchKind:   MatchExact,
		})
	}
	return hits, nil
}

func hitFromDoc(id string, score float64, fields map[string]interface{}, kind MatchKind) Hit {
	msgIdx, _ := strconv.Atoi(fmt.Sprint(fields["msg_idx"]))
	createdAt, _ := time.Parse(time.RFC3339, fmt.Sprint(fields["created_at"]))
	return Hit{
		SourcePath:  fmt.Sprint(fields["source_path"]),
		LineNumber:  msgIdx,
		Agent:       fmt.Sprint(fields["agent"]),
		Workspace:   fmt.Sprint(fields["workspace"]),
		Title:       fmt.Sprint(fields["title"]),
		Score:       score,
		Content:     fmt.Sprint(fields["content"]),
		ContentHash: fmt.Sprint(fields["content_hash"]),
		CreatedAt:   createdAt,
		MatchKind:   kind,
	}
}

// buildBleveQuery composites each term's retrieval path — exact/prefix
// via the *_prefix fields, suffix/substring via a RegexpQuery against
// content — and conjuncts in agent/workspace/time filters.
func buildBleveQuery(parsed ParsedQuery, filters Filters) query.Query {
	var termQueries []query.Query
	for _, t := range parsed.Terms {
		switch t.Kind {
		case TermExact:
			mq := bleve.NewMatchQuery(t.Text)
			mq.SetField("content_prefix")
			termQueries = append(termQueries, mq)
		case TermPrefix:
			pq := bleve.NewPrefixQuery(t.Text)
			pq.SetField("content_prefix")
			termQueries = append(termQueries, pq)
		default: // Suffix, Substring, RegexInfix
			rq := bleve.NewRegexpQuery(t.ToRegexp())
			rq.SetField("content")
			termQueries = append(termQueries, rq)
		}
	}
	if len(termQueries) == 0 {
		termQueries = append(termQueries, bleve.NewMatchAllQuery())
	}

	conj := bleve.NewConjunctionQuery(termQueries...)
	var outer []query.Query
	outer = append(outer, conj)

	if filters.Agent != "" {
		aq := bleve.NewMatchQuery(filters.Agent)
		aq.SetField("agent")
		outer = append(outer, aq)
	}
	if filters.Workspace != "" {
		wq := bleve.NewMatchQuery(filters.Workspace)
		wq.SetField("workspace")
		outer = append(outer, wq)
	}
	if !filters.CreatedFrom.IsZero() || !filters.CreatedTo.IsZero() {
		from := filters.CreatedFrom
		to := filters.CreatedTo
		dq := bleve.NewDateRangeQuery(from, to)
		dq.SetField("created_at")
		outer = append(outer, dq)
	}

	if len(outer) == 1 {
		return outer[0]
	}
	return bleve.NewConjunctionQuery(outer...)
}

func toCachedHits(hits []Hit) []cachedHit {
	out := make([]cachedHit, len(hits))
	for i, h := range hits {
		out[i] = newCachedHit(h)
	}
	return out
}

type cursorState struct {
	Offset          int    `json:"offset"`
	IndexSchemaHash string `json:"index_schema_hash"`
}

func encodeCursor(c cursorState) string {
	b, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(b)
}

// ErrCursorInvalidated is returned when a cursor's index_schema_hash no
// longer matches the live index.
var ErrCursorInvalidated = fmt.Errorf("cursor invalidated: index schema changed")

func decodeCursor(s string) (cursorState, bool) {
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return cursorState{}, false
	}
	var c cursorState
	if err := json.Unmarshal(b, &c); err != nil {
		return cursorState{}, false
	}
	return c, true
}
