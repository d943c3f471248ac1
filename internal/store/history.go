// Package store persists conversation history so a dashboard session can be
// reopened where it left off. Only the transcript is stored: action previews
// and playbook progress are live state and are not resurrected from disk.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"luna/internal/logging"
)

// MessageRecord is one persisted transcript row. It is deliberately its own
// type rather than conversation.Message: the store keeps text, not live
// action state.
type MessageRecord struct {
	SessionID    string
	Seq          int
	Role         string
	Content      string
	RetryContent string
	CreatedAt    time.Time
}

// History is the sqlite-backed transcript store.
type History struct {
	db     *sql.DB
	dbPath string
}

// OpenHistory creates or opens the history database at dbPath, creating
// parent directories as needed.
func OpenHistory(dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	h := &History{db: db, dbPath: dbPath}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}

	logging.Get(logging.CategoryStore).Debugw("history store opened", "path", dbPath)
	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.dbPath
}

func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		retry_content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Append stores one transcript row. Appending the same (session, seq) twice
// is a no-op so observer redelivery cannot duplicate rows.
func (h *History) Append(ctx context.Context, rec MessageRecord) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (session_id, seq, role, content, retry_content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Seq, rec.Role, rec.Content, rec.RetryContent, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}
	return nil
}

// Messages returns the transcript for a session in append order.
func (h *History) Messages(ctx context.Context, sessionID string) ([]MessageRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT session_id, seq, role, content, retry_content, created_at
		FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: query messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Role, &rec.Content, &rec.RetryContent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sessions returns the distinct session ids with stored history, most
// recently active first.
func (h *History) Sessions(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT session_id FROM messages
		GROUP BY session_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: query sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan session id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Clear removes a session's transcript.
func (h *History) Clear(ctx context.Context, sessionID string) error {
	_, err := h.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("store: clear session: %w", err)
	}
	return nil
}
