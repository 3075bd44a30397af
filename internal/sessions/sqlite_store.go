package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps session records in a single SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS thinking_sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		problem TEXT NOT NULL,
		category TEXT NOT NULL,
		method_id TEXT NOT NULL,
		method_name TEXT NOT NULL,
		current_step INTEGER NOT NULL,
		total_steps INTEGER NOT NULL,
		answers_json TEXT NOT NULL,
		is_completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_thinking_sessions_user ON thinking_sessions(user_id, updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	answers, err := json.Marshal(st.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	query := `
	INSERT INTO thinking_sessions (session_id, user_id, problem, category, method_id, method_name,
		current_step, total_steps, answers_json, is_completed, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		current_step = excluded.current_step,
		answers_json = excluded.answers_json,
		is_completed = excluded.is_completed,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		st.SessionID, st.UserID, st.Problem, string(st.Category), st.MethodID, st.MethodName,
		st.CurrentStep, st.TotalSteps, string(answers), st.IsCompleted,
		st.CreatedAt.UTC().Format(time.RFC3339Nano), st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", st.SessionID, err)
	}
	return nil
}

const selectColumns = `SELECT session_id, user_id, problem, category, method_id, method_name,
	current_step, total_steps, answers_json, is_completed, created_at, updated_at
	FROM thinking_sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*State, error) {
	var (
		st                   State
		category             string
		answers              string
		createdAt, updatedAt string
	)
	err := row.Scan(&st.SessionID, &st.UserID, &st.Problem, &category, &st.MethodID, &st.MethodName,
		&st.CurrentStep, &st.TotalSteps, &answers, &st.IsCompleted, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	st.Category = catalog.Category(category)
	if err := json.Unmarshal([]byte(answers), &st.Answers); err != nil {
		return nil, fmt.Errorf("%w: %s: answers: %v", ErrCorrupt, st.SessionID, err)
	}
	if st.Answers == nil {
		st.Answers = []string{}
	}
	if st.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("%w: %s: created_at: %v", ErrCorrupt, st.SessionID, err)
	}
	if st.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("%w: %s: updated_at: %v", ErrCorrupt, st.SessionID, err)
	}
	if err := st.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, st.SessionID, err)
	}
	return &st, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*State, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE session_id = ?`, id)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return st, nil
}

func (s *SQLiteStore) List(ctx context.Context, userID string) ([]*State, error) {
	query := selectColumns
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*State
	for rows.Next() {
		st, err := scanState(rows)
		if errors.Is(err, ErrCorrupt) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	newestFirst(out)
	return out, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
