package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dvloznov/monomind/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// Schema is the SQL store's table layout.
const Schema = `
CREATE TABLE IF NOT EXISTS session_messages (
	session_id  TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	role        TEXT    NOT NULL,
	content     TEXT    NOT NULL,
	created_at  TEXT    NOT NULL,
	PRIMARY KEY (session_id, seq)
)`

// SQLStore keeps histories in a SQL database, one row per message.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite file at path.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	s, err := NewSQLStore(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps db and ensures the schema exists.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("NewSQLStore: create schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM session_messages
		WHERE session_id = ?
		ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("SQLStore.Load: query: %w", err)
	}
	defer rows.Close()

	history := []domain.Message{}
	for rows.Next() {
		var role, content, created string
		if err := rows.Scan(&role, &content, &created); err != nil {
			return nil, fmt.Errorf("SQLStore.Load: scan: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("SQLStore.Load: created_at %q: %w", created, err)
		}
		history = append(history, domain.Message{Role: domain.Role(role), Content: content, CreatedAt: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SQLStore.Load: rows: %w", err)
	}
	return history, nil
}

// Save implements Store. The session's rows are replaced atomically.
func (s *SQLStore) Save(ctx context.Context, sessionID string, history []domain.Message) (err error) {
	if err := checkSession(sessionID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SQLStore.Save: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("SQLStore.Save: delete: %w", err)
	}
	for i, m := range history {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_messages (session_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			sessionID, i, string(m.Role), m.Content, m.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("SQLStore.Save: insert: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("SQLStore.Save: commit: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
