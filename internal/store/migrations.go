package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one forward-only schema step. There is no rollback path:
// spec.md's store is append-only by design, and a schema downgrade is
// never a supported operation.
type Migration struct {
	Version int
	Up      string
}

// Migrations lists every schema step in order. Adding a column or table
// is a pure append: write a new Migration, never edit an old one.
var Migrations = []Migration{
	{Version: 1, Up: migrationV1},
	{Version: 2, Up: migrationV2},
	{Version: 3, Up: migrationV3},
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agents (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	slug          TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	first_seen_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS workspaces (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	path  TEXT NOT NULL UNIQUE,
	label TEXT NOT NULL DEFAULT ''
);

INSERT OR IGNORE INTO workspaces (id, path, label) VALUES (0, '', 'unknown');

CREATE TABLE IF NOT EXISTS conversations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id      INTEGER NOT NULL REFERENCES agents(id),
	workspace_id  INTEGER NOT NULL REFERENCES workspaces(id),
	external_id   TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	source_path   TEXT NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '{}',
	UNIQUE (agent_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_agent ON conversations(agent_id);
CREATE INDEX IF NOT EXISTS idx_conversations_workspace ON conversations(workspace_id);
CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL REFERENCES conversations(id),
	msg_idx         INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	content_hash    TEXT NOT NULL,
	UNIQUE (conversation_id, msg_idx)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_content_hash ON messages(content_hash);

CREATE TABLE IF NOT EXISTS snippets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES messages(id),
	language   TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snippets_message ON snippets(message_id);

CREATE TABLE IF NOT EXISTS idempotency_runs (
	key        TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL,
	summary_json TEXT NOT NULL DEFAULT '{}'
);
`

// migrationV2 adds the FTS5 external-content mirror of messages.content,
// kept in step by triggers and used only as a
// consistency fallback when internal/ftsindex is missing, empty, or
// stale — the primary query path never touches this table.
const migrationV2 = `
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	content='messages',
	content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS messages_fts_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_fts_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_fts_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
	INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// migrationV3 adds the parameter fingerprint the idempotency ledger
// compares a replayed key's run against, added after migrationV1 shipped
// without it rather than editing that migration in place.
const migrationV3 = `
ALTER TABLE idempotency_runs ADD COLUMN fingerprint TEXT NOT NULL DEFAULT '';
`

// ApplyMigrations runs every migration newer than the database's recorded
// schema_version, each inside its own transaction, in ascending order.
// Grounded on gocontext-mcp's ApplyMigrations, simplified from semver
// strings to plain monotonic integers since this schema has no need for
// major/minor/patch distinctions.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("bootstrap schema_version: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// SchemaVersion reports the highest applied migration version, used by
// healthcheck.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}
