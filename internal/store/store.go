// Package store is the durable relational store: one on-disk SQLite
// database holding every agent, workspace, conversation, message, and
// snippet ever ingested, plus the FTS5 consistency-fallback mirror and
// the idempotency-run ledger.
//
// Opening splits the connection pool the way the teacher's OpenDatabase
// never had to (it only ever read): one single-connection writer *sql.DB
// so SQLite never sees concurrent writers, and one multi-connection
// reader pool for everything else.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/convoindex/convoindex/internal/model"
)

// ErrSchemaTooNew is returned when the on-disk schema_version is higher
// than this binary's highest known migration — a downgrade is refused
// rather than silently truncating unknown columns.
type ErrSchemaTooNew struct {
	OnDisk int
	Known  int
}

func (e ErrSchemaTooNew) Error() string {
	return fmt.Sprintf("database schema version %d is newer than this binary supports (%d)", e.OnDisk, e.Known)
}

// Store is the write/read-split handle every consumer (orchestrator,
// query engine, export) shares.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// Open opens (creating if absent) the store at path, applies pending
// migrations, and refuses to start against a newer-than-known schema.
func Open(ctx context.Context, path string) (*Store, error) {
	writer, err := openConn(path, 1)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	onDisk, err := SchemaVersion(ctx, writer)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	highest := Migrations[len(Migrations)-1].Version
	if onDisk > highest {
		writer.Close()
		return nil, ErrSchemaTooNew{OnDisk: onDisk, Known: highest}
	}

	if err := ApplyMigrations(ctx, writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	reader, err := openConn(path, 4)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader pool: %w", err)
	}

	return &Store{writer: writer, reader: reader, path: path}, nil
}

func openConn(path string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// Close closes both the writer and reader pools.
func (s *Store) Close() error {
	werr := s.writer.Close()
	rerr := s.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Reader exposes the read-only connection pool for query engine use.
func (s *Store) Reader() *sql.DB { return s.reader }

// EnsureAgent inserts an agent row on first sighting and returns its ID;
// a re-seen slug is a no-op returning the existing ID.
func (s *Store) EnsureAgent(ctx context.Context, slug, displayName string, firstSeenAt time.Time) (int64, error) {
	_, err := s.writer.ExecContext(ctx,
		`INSERT INTO agents (slug, display_name, first_seen_at) VALUES (?, ?, ?)
		 ON CONFLICT(slug) DO NOTHING`, slug, displayName, firstSeenAt)
	if err != nil {
		return 0, fmt.Errorf("ensure agent %s: %w", slug, err)
	}
	var id int64
	err = s.writer.QueryRowContext(ctx, `SELECT id FROM agents WHERE slug = ?`, slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read back agent %s: %w", slug, err)
	}
	return id, nil
}

// EnsureWorkspace resolves a workspace path/label to a stable ID,
// creating the row if absent. An empty path resolves to
// model.UnknownWorkspaceID without touching the database.
func (s *Store) EnsureWorkspace(ctx context.Context, path, label string) (int64, error) {
	if path == "" {
		return model.UnknownWorkspaceID, nil
	}
	_, err := s.writer.ExecContext(ctx,
		`INSERT INTO workspaces (path, label) VALUES (?, ?)
		 ON CONFLICT(path) DO NOTHING`, path, label)
	if err != nil {
		return 0, fmt.Errorf("ensure workspace %s: %w", path, err)
	}
	var id int64
	err = s.writer.QueryRowContext(ctx, `SELECT id FROM workspaces WHERE path = ?`, path).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read back workspace %s: %w", path, err)
	}
	return id, nil
}

// UpsertConversation inserts or updates a conversation keyed on
// (agent_id, external_id), per spec.md §4.2's upsert discipline. Returns
// the row's stable ID.
func (s *Store) UpsertConversation(ctx context.Context, tx *sql.Tx, c *model.Conversation) (int64, error) {
	metaJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal conversation metadata: %w", err)
	}
	exec := s.execer(tx)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO conversations (agent_id, workspace_id, external_id, title, created_at, updated_at, source_path, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id, external_id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			title        = excluded.title,
			updated_at   = excluded.updated_at,
			source_path  = excluded.source_path,
			metadata_json = excluded.metadata_json
	`, c.AgentID, c.WorkspaceID, c.ExternalID, c.Title, c.CreatedAt, c.UpdatedAt, c.SourcePath, string(metaJSON))
	if err != nil {
		return 0, fmt.Errorf("upsert conversation %d/%s: %w", c.AgentID, c.ExternalID, err)
	}

	var id int64
	err = s.queryRower(tx).QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE agent_id = ? AND external_id = ?`, c.AgentID, c.ExternalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read back conversation %d/%s: %w", c.AgentID, c.ExternalID, err)
	}
	return id, nil
}

// UpsertMessage inserts or refreshes a message keyed on
// (conversation_id, msg_idx), skipping the write entirely when
// content_hash is unchanged (spec.md §4.2's tie-break). Returns the row
// ID and whether a write actually occurred.
func (s *Store) UpsertMessage(ctx context.Context, tx *sql.Tx, m *model.Message) (id int64, wrote bool, err error) {
	exec := s.execer(tx)
	var existingHash string
	err = s.queryRower(tx).QueryRowContext(ctx,
		`SELECT content_hash FROM messages WHERE conversation_id = ? AND msg_idx = ?`,
		m.ConversationID, m.MsgIdx).Scan(&existingHash)
	switch {
	case err == sql.ErrNoRows:
		res, execErr := exec.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, msg_idx, role, content, created_at, content_hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ConversationID, m.MsgIdx, string(m.Role), m.Content, m.CreatedAt, m.ContentHash)
		if execErr != nil {
			return 0, false, fmt.Errorf("insert message %d/%d: %w", m.ConversationID, m.MsgIdx, execErr)
		}
		newID, idErr := res.LastInsertId()
		if idErr != nil {
			return 0, false, fmt.Errorf("read back inserted message id: %w", idErr)
		}
		return newID, true, nil
	case err != nil:
		return 0, false, fmt.Errorf("check existing message %d/%d: %w", m.ConversationID, m.MsgIdx, err)
	case existingHash == m.ContentHash:
		var existingID int64
		if err := s.queryRower(tx).QueryRowContext(ctx,
			`SELECT id FROM messages WHERE conversation_id = ? AND msg_idx = ?`,
			m.ConversationID, m.MsgIdx).Scan(&existingID); err != nil {
			return 0, false, fmt.Errorf("read back unchanged message id: %w", err)
		}
		return existingID, false, nil
	default:
		if _, execErr := exec.ExecContext(ctx, `
			UPDATE messages SET role = ?, content = ?, created_at = ?, content_hash = ?
			WHERE conversation_id = ? AND msg_idx = ?
		`, string(m.Role), m.Content, m.CreatedAt, m.ContentHash, m.ConversationID, m.MsgIdx); execErr != nil {
			return 0, false, fmt.Errorf("update message %d/%d: %w", m.ConversationID, m.MsgIdx, execErr)
		}
		var updatedID int64
		if err := s.queryRower(tx).QueryRowContext(ctx,
			`SELECT id FROM messages WHERE conversation_id = ? AND msg_idx = ?`,
			m.ConversationID, m.MsgIdx).Scan(&updatedID); err != nil {
			return 0, false, fmt.Errorf("read back updated message id: %w", err)
		}
		return updatedID, true, nil
	}
}

// BeginWrite starts one write transaction, the unit of work a
// connector's scan pass commits atomically per spec.md §4.2.
func (s *Store) BeginWrite(ctx context.Context) (*sql.Tx, error) {
	return s.writer.BeginTx(ctx, nil)
}

// MessageCount reports the total row count in messages, used by the
// query engine's consistency check against the ftsindex doc count.
func (s *Store) MessageCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// FTSMirrorRow is one result row from the relational consistency
// fallback, carrying just enough to build a query.Hit without a second
// join (the caller already has agent/workspace names cached).
type FTSMirrorRow struct {
	MessageID      int64
	ConversationID int64
	MsgIdx         int
	Role           string
	Content        string
	CreatedAt      time.Time
	ContentHash    string
	AgentSlug      string
	WorkspacePath  string
	Title          string
	SourcePath     string
}

// SearchFTSMirror queries the messages_fts external-content FTS5 table
// directly — the consistency fallback path used when ftsindex is
// missing, empty, or has drifted from the relational row count by more
// than the configured threshold.
func (s *Store) SearchFTSMirror(ctx context.Context, matchExpr string, agentFilter, workspaceFilter string, limit int) ([]FTSMirrorRow, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.msg_idx, m.role, m.content, m.created_at, m.content_hash,
		       a.slug, w.path, c.title, c.source_path
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN conversations c ON c.id = m.conversation_id
		JOIN agents a ON a.id = c.agent_id
		JOIN workspaces w ON w.id = c.workspace_id
		WHERE messages_fts MATCH ?
		  AND (? = '' OR a.slug = ?)
		  AND (? = '' OR w.path = ?)
		ORDER BY rank
		LIMIT ?
	`, matchExpr, agentFilter, agentFilter, workspaceFilter, workspaceFilter, limit)
	if err != nil {
		return nil, fmt.Errorf("search ftsindex mirror: %w", err)
	}
	defer rows.Close()

	var out []FTSMirrorRow
	for rows.Next() {
		var r FTSMirrorRow
		if err := rows.Scan(&r.MessageID, &r.ConversationID, &r.MsgIdx, &r.Role, &r.Content, &r.CreatedAt,
			&r.ContentHash, &r.AgentSlug, &r.WorkspacePath, &r.Title, &r.SourcePath); err != nil {
			return nil, fmt.Errorf("scan ftsindex mirror row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FullRebuild deletes every content row in dependency order and runs
// VACUUM, the relational half of a `--full` reindex; the caller is
// responsible for pairing this with ftsindex.Rebuild().
func (s *Store) FullRebuild(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin full rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM snippets`,
		`DELETE FROM messages`,
		`DELETE FROM conversations`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("full rebuild %q: %w", stmt, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit full rebuild: %w", err)
	}
	if _, err := s.writer.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum after full rebuild: %w", err)
	}
	return nil
}

// IdempotencyRun is one row of the idempotency ledger: a run key, the
// parameter fingerprint it was recorded under, and the summary to replay
// verbatim on a matching re-issue.
type IdempotencyRun struct {
	Key         string
	Fingerprint string
	StartedAt   time.Time
	ExpiresAt   time.Time
	SummaryJSON string
}

// GetIdempotencyRun looks up a non-expired ledger row by key. A missing
// or expired row returns sql.ErrNoRows, letting the caller distinguish
// "never run" from "run, now stale" without a separate expiry check.
func (s *Store) GetIdempotencyRun(ctx context.Context, key string) (IdempotencyRun, error) {
	var r IdempotencyRun
	r.Key = key
	err := s.reader.QueryRowContext(ctx,
		`SELECT fingerprint, started_at, expires_at, summary_json FROM idempotency_runs
		 WHERE key = ? AND expires_at > ?`, key, time.Now()).
		Scan(&r.Fingerprint, &r.StartedAt, &r.ExpiresAt, &r.SummaryJSON)
	return r, err
}

// PutIdempotencyRun records (or overwrites) a run's ledger entry with a
// 24h TTL from startedAt.
func (s *Store) PutIdempotencyRun(ctx context.Context, key, fingerprint string, startedAt time.Time, summaryJSON string) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO idempotency_runs (key, fingerprint, started_at, expires_at, summary_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			started_at  = excluded.started_at,
			expires_at  = excluded.expires_at,
			summary_json = excluded.summary_json
	`, key, fingerprint, startedAt, startedAt.Add(24*time.Hour), summaryJSON)
	if err != nil {
		return fmt.Errorf("put idempotency run %s: %w", key, err)
	}
	return nil
}

// PruneExpiredIdempotencyRuns deletes ledger rows past their TTL, called
// opportunistically at the start of each full run.
func (s *Store) PruneExpiredIdempotencyRuns(ctx context.Context) error {
	_, err := s.writer.ExecContext(ctx, `DELETE FROM idempotency_runs WHERE expires_at <= ?`, time.Now())
	return err
}

// ConversationSummary is one row of a list/timeline projection: enough
// to render a table line without loading every message.
type ConversationSummary struct {
	ID            int64
	AgentSlug     string
	WorkspacePath string
	ExternalID    string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	MessageCount  int
}

// ListFilter narrows ListConversations by agent slug, workspace path,
// and/or a half-open [Since, Until) update-time range. A zero field
// means unfiltered on that dimension.
type ListFilter struct {
	Agent     string
	Workspace string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// ListConversations returns conversations matching filter, most recently
// updated first, joined against agents/workspaces for display and
// against messages for a per-conversation count. Used by `list`,
// `timeline`, and the MCP `list` tool.
func (s *Store) ListConversations(ctx context.Context, filter ListFilter) ([]ConversationSummary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.reader.QueryContext(ctx, `
		SELECT c.id, a.slug, w.path, c.external_id, c.title, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		JOIN agents a ON a.id = c.agent_id
		JOIN workspaces w ON w.id = c.workspace_id
		WHERE (? = '' OR a.slug = ?)
		  AND (? = '' OR w.path = ?)
		  AND (? IS NULL OR c.updated_at >= ?)
		  AND (? IS NULL OR c.updated_at < ?)
		ORDER BY c.updated_at DESC
		LIMIT ?
	`, filter.Agent, filter.Agent, filter.Workspace, filter.Workspace,
		nullableTime(filter.Since), nullableTime(filter.Since),
		nullableTime(filter.Until), nullableTime(filter.Until), limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var c ConversationSummary
		if err := rows.Scan(&c.ID, &c.AgentSlug, &c.WorkspacePath, &c.ExternalID, &c.Title,
			&c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// nullableTime maps a zero time.Time to nil so ListFilter's optional
// range bounds compile down to "IS NULL" rather than matching a literal
// zero-value timestamp.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// ErrConversationNotFound is returned by GetConversation when id names
// no row.
var ErrConversationNotFound = fmt.Errorf("conversation not found")

// GetConversation loads one conversation by ID, along with its agent
// slug and workspace path for display, used by `show`/`expand`/`export`
// and the MCP `show` tool.
func (s *Store) GetConversation(ctx context.Context, id int64) (model.Conversation, string, string, error) {
	var c model.Conversation
	var agentSlug, workspacePath, metaJSON string
	err := s.reader.QueryRowContext(ctx, `
		SELECT c.id, c.agent_id, c.workspace_id, c.external_id, c.title, c.created_at, c.updated_at,
		       c.source_path, c.metadata_json, a.slug, w.path
		FROM conversations c
		JOIN agents a ON a.id = c.agent_id
		JOIN workspaces w ON w.id = c.workspace_id
		WHERE c.id = ?
	`, id).Scan(&c.ID, &c.AgentID, &c.WorkspaceID, &c.ExternalID, &c.Title, &c.CreatedAt, &c.UpdatedAt,
		&c.SourcePath, &metaJSON, &agentSlug, &workspacePath)
	if err == sql.ErrNoRows {
		return model.Conversation{}, "", "", ErrConversationNotFound
	}
	if err != nil {
		return model.Conversation{}, "", "", fmt.Errorf("get conversation %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
		return model.Conversation{}, "", "", fmt.Errorf("decode conversation %d metadata: %w", id, err)
	}
	return c, agentSlug, workspacePath, nil
}

// GetMessages loads every message of a conversation, ordered by MsgIdx.
func (s *Store) GetMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT id, conversation_id, msg_idx, role, content, created_at, content_hash
		FROM messages
		WHERE conversation_id = ?
		ORDER BY msg_idx ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get messages for conversation %d: %w", conversationID, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.MsgIdx, &role, &m.Content, &m.CreatedAt, &m.ContentHash); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return s.writer
}

func (s *Store) queryRower(tx *sql.Tx) queryRower {
	if tx != nil {
		return tx
	}
	return s.writer
}
