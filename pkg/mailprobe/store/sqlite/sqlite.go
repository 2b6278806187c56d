package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mailprobe/mailprobe/pkg/mailprobe/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and the
// corpus schema initialized.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	received_at TEXT NOT NULL,
	seq INTEGER
);

CREATE TABLE IF NOT EXISTS message_tokens (
	message_id TEXT NOT NULL,
	pos INTEGER NOT NULL,
	token TEXT NOT NULL,
	PRIMARY KEY(message_id, pos),
	FOREIGN KEY(message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_label ON messages(label);
CREATE INDEX IF NOT EXISTS idx_messages_seq ON messages(seq);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertMessage inserts or updates a message. Tokens are stored with
// their position so order and multiplicity survive a round trip; the
// training math depends on both.
func (s *sqliteStore) UpsertMessage(ctx context.Context, m store.Message) error {
	if m.ID == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO messages (id, label, received_at, seq)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages))
ON CONFLICT(id) DO UPDATE SET
	label=excluded.label,
	received_at=excluded.received_at;
`

	if _, err := tx.ExecContext(
		ctx,
		stmt,
		m.ID,
		m.Label,
		m.ReceivedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}

	if err := replaceMessageTokens(ctx, tx, m.ID, m.Tokens); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceMessageTokens(ctx context.Context, tx *sql.Tx, messageID string, tokens []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM message_tokens WHERE message_id=?`, messageID); err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO message_tokens (message_id, pos, token) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for pos, tok := range tokens {
		if _, err := stmt.ExecContext(ctx, messageID, pos, tok); err != nil {
			return err
		}
	}
	return nil
}

// GetMessage retrieves a message by ID
func (s *sqliteStore) GetMessage(ctx context.Context, id string) (store.Message, bool, error) {
	var (
		m        store.Message
		received string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, label, received_at
FROM messages
WHERE id = ?;
`, id).Scan(&m.ID, &m.Label, &received)
	if err == sql.ErrNoRows {
		return store.Message{}, false, nil
	}
	if err != nil {
		return store.Message{}, false, err
	}

	if received != "" {
		if parsed, perr := time.Parse(time.RFC3339, received); perr == nil {
			m.ReceivedAt = parsed
		}
	}

	m.Tokens, err = s.loadTokens(ctx, id)
	if err != nil {
		return store.Message{}, false, err
	}
	return m, true, nil
}

// ListMessages retrieves messages with the given label in insertion
// order. An empty label matches every message.
func (s *sqliteStore) ListMessages(ctx context.Context, label string, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id FROM messages WHERE label = ? ORDER BY seq LIMIT ?;`
	args := []interface{}{label, limit}
	if label == "" {
		query = `SELECT id FROM messages ORDER BY seq LIMIT ?;`
		args = []interface{}{limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []store.Message
	for _, id := range ids {
		m, ok, err := s.GetMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, m)
		}
	}
	return results, nil
}

// DeleteMessage removes a message and its tokens. Unknown IDs are a no-op.
func (s *sqliteStore) DeleteMessage(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM message_tokens WHERE message_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CountByLabel returns the number of stored messages with the given label
func (s *sqliteStore) CountByLabel(ctx context.Context, label string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE label=?`, label).Scan(&count)
	return count, err
}

// TrainingSet returns all stored documents and labels in insertion order
func (s *sqliteStore) TrainingSet(ctx context.Context) ([][]string, []string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label FROM messages ORDER BY seq;`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type entry struct {
		id    string
		label string
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.label); err != nil {
			return nil, nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	docs := make([][]string, 0, len(entries))
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		tokens, err := s.loadTokens(ctx, e.id)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, tokens)
		labels = append(labels, e.label)
	}
	return docs, labels, nil
}

func (s *sqliteStore) loadTokens(ctx context.Context, messageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM message_tokens WHERE message_id=? ORDER BY pos;`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}
