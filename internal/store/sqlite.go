package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/astanafx/fxbot/internal/chat"
)

// SQLiteStore persists chat history in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a SQLite database at the given path,
// ensuring the parent directory exists, and creates the history schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			speaker TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE INDEX IF NOT EXISTS idx_chat_history_user_role ON chat_history(user_id, role);
	`)
	return err
}

func (s *SQLiteStore) GetHistory(ctx context.Context, userID int64, role string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT speaker, content FROM chat_history WHERE user_id = ? AND role = ? ORDER BY id ASC",
		userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var speaker, content string
		if err := rows.Scan(&speaker, &content); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		msgs = append(msgs, chat.Message{Speaker: chat.Speaker(speaker), Content: content})
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) Append(ctx context.Context, userID int64, role string, speaker chat.Speaker, content string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_history (user_id, role, speaker, content) VALUES (?, ?, ?, ?)",
		userID, role, string(speaker), content,
	)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

// ReplaceAll rewrites the stored history for (userID, role) inside one
// transaction so readers never observe a partially written history.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, userID int64, role string, msgs []chat.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chat_history WHERE user_id = ? AND role = ?", userID, role,
	); err != nil {
		return fmt.Errorf("delete old history: %w", err)
	}
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chat_history (user_id, role, speaker, content) VALUES (?, ?, ?, ?)",
			userID, role, string(m.Speaker), m.Content,
		); err != nil {
			return fmt.Errorf("insert replacement row: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Clear(ctx context.Context, userID int64, role string) error {
	var err error
	if role != "" {
		_, err = s.db.ExecContext(ctx,
			"DELETE FROM chat_history WHERE user_id = ? AND role = ?", userID, role)
	} else {
		_, err = s.db.ExecContext(ctx,
			"DELETE FROM chat_history WHERE user_id = ?", userID)
	}
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, userID int64, role string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_history WHERE user_id = ? AND role = ?",
		userID, role,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
