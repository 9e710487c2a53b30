package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/convoindex/convoindex/internal/paths"
)

// OpenCode keeps its session history in a project-local embedded SQLite
// database (.opencode/opencode.db, or legacy .opencode/storage.db) whose
// table layout has shifted across releases. Rather than hardcode one
// schema, this introspects the sessions/messages tables column-by-column
// at scan time and adapts to whichever columns exist, the same defensive
// pattern the Cursor agent-storage reader uses against its own evolving
// blobs table.
type OpenCode struct {
	searchRoots []string
}

func NewOpenCode() *OpenCode {
	cwd, err := os.Getwd()
	var roots []string
	if err == nil {
		roots = append(roots, cwd)
	}
	if home, herr := paths.Home(); herr == nil {
		roots = append(roots, filepath.Join(home, ".local", "share", "opencode"))
		roots = append(roots, filepath.Join(home, ".config", "opencode"))
	}
	return &OpenCode{searchRoots: roots}
}

func (o *OpenCode) Slug() string        { return "opencode" }
func (o *OpenCode) DisplayName() string { return "OpenCode" }

func (o *OpenCode) dbCandidates() []string {
	var out []string
	for _, root := range o.searchRoots {
		for _, rel := range []string{
			filepath.Join(".opencode", "opencode.db"),
			filepath.Join(".opencode", "storage.db"),
			"opencode.db",
		} {
			p := filepath.Join(root, rel)
			if paths.Exists(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

func (o *OpenCode) Detect(ctx context.Context) (DetectionResult, error) {
	dbs := o.dbCandidates()
	if len(dbs) == 0 {
		return DetectionResult{}, nil
	}
	return DetectionResult{Present: true, Roots: dbs}, nil
}

func (o *OpenCode) Scan(ctx context.Context, sc ScanContext) (<-chan Event, error) {
	out := make(chan Event, 32)
	go func() {
		defer close(out)
		for _, dbPath := range o.dbCandidates() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !pathPassesFilter(dbPath, sc.PathFilter) {
				continue
			}
			info, err := os.Stat(dbPath)
			if err != nil {
				continue
			}
			if !sc.SinceTS.IsZero() && !info.ModTime().After(sc.SinceTS) {
				continue
			}
			o.scanDB(dbPath, info.ModTime(), out)
		}
	}()
	return out, nil
}

func (o *OpenCode) scanDB(dbPath string, mtime time.Time, out chan<- Event) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro&immutable=1")
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: o.Slug(), Path: dbPath, Reason: "io_read", Err: err}}
		return
	}
	defer db.Close()

	sessions, err := queryTableAsRows(db, "sessions")
	if err != nil || len(sessions) == 0 {
		sessions, err = queryTableAsRows(db, "session")
	}
	if err != nil {
		out <- Event{Diagnostic: &Diagnostic{AgentSlug: o.Slug(), Path: dbPath, Reason: "parse", Err: err}}
		return
	}

	messagesByOwner := map[string][]map[string]string{}
	msgRows, err := queryTableAsRows(db, "messages")
	if err != nil || len(msgRows) == 0 {
		msgRows, _ = queryTableAsRows(db, "message")
	}
	for _, m := range msgRows {
		owner := firstNonEmpty(m, "session_id", "sessionId", "session", "thread_id")
		messagesByOwner[owner] = append(messagesByOwner[owner], m)
	}

	if len(sessions) == 0 && len(msgRows) > 0 {
		// No distinct sessions table: treat the whole file as one
		// conversation keyed by the db path itself.
		sessions = []map[string]string{{"id": externalIDFromPath(dbPath)}}
		messagesByOwner[externalIDFromPath(dbPath)] = msgRows
	}

	for _, s := range sessions {
		id := firstNonEmpty(s, "id", "session_id", "uuid")
		if id == "" {
			continue
		}
		msgs := messagesByOwner[id]
		if len(msgs) == 0 {
			continue
		}
		conv := &NormalizedConversation{
			AgentSlug:     o.Slug(),
			ExternalID:    id,
			Title:         firstNonEmpty(s, "title", "name"),
			SourcePath:    dbPath,
			WorkspaceHint: firstNonEmpty(s, "cwd", "directory", "project"),
			CreatedAt:     mtime,
			UpdatedAt:     mtime,
		}
		for _, m := range msgs {
			role := firstNonEmpty(m, "role", "type", "author")
			content := firstNonEmpty(m, "content", "text", "body")
			if content == "" {
				if raw := firstNonEmpty(m, "parts", "data"); raw != "" {
					content = flattenJSONContent(json.RawMessage(raw), "")
				}
			}
			if content == "" {
				continue
			}
			tsRaw := firstNonEmpty(m, "created_at", "createdAt", "timestamp", "time")
			ts := ParseTimestampString(tsRaw, mtime)
			conv.Messages = append(conv.Messages, NormalizedMessage{
				Role:      NormalizeRole(role),
				Content:   content,
				Timestamp: &ts,
			})
			if ts.After(conv.UpdatedAt) {
				conv.UpdatedAt = ts
			}
			if ts.Before(conv.CreatedAt) {
				conv.CreatedAt = ts
			}
		}
		if len(conv.Messages) == 0 {
			continue
		}
		if conv.Title == "" {
			conv.Title = firstUserMessagePrefix(conv.Messages)
		}
		out <- Event{Conversation: conv}
	}
}

// queryTableAsRows introspects table's columns via PRAGMA table_info and
// reads every row back as a string-keyed map, since OpenCode's schema
// has changed column names and types across releases.
func queryTableAsRows(db *sql.DB, table string) ([]map[string]string, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT name FROM sqlite_master WHERE type='table' AND name=?)`, table).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check table %s: %w", table, err)
	}
	if !exists {
		return nil, nil
	}

	colRows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer colRows.Close()

	var columns []string
	for colRows.Next() {
		var cid int
		var name, dtype string
		var notNull, pk int
		var dflt sql.NullString
		if err := colRows.Scan(&cid, &name, &dtype, &notNull, &dflt, &pk); err != nil {
			continue
		}
		columns = append(columns, name)
	}
	if len(columns) == 0 {
		return nil, nil
	}

	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		vals := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			continue
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = stringifyCell(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func stringifyCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func firstNonEmpty(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
