// Package store provides SQLite-backed persistence for submitted sessions.
// It is the moderator machine's local copy of every result, independent of
// any network sinks.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/brandtiboy/prototype-test/internal/models"
)

// Store provides access to the local results database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations. Sessions are append-only: rows
// are inserted once at submission and never updated.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		project_name TEXT NOT NULL,
		tester_name TEXT,
		tester_email TEXT,
		submitted_at DATETIME NOT NULL,
		session_duration_ms INTEGER NOT NULL,
		session_duration_fmt TEXT NOT NULL,
		overall_rating INTEGER NOT NULL,
		overall_comment TEXT,
		completed_tasks INTEGER NOT NULL,
		total_tasks INTEGER NOT NULL,
		tasks TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_name);
	CREATE INDEX IF NOT EXISTS idx_sessions_submitted_at ON sessions(submitted_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SessionSummary is the list view of a stored session.
type SessionSummary struct {
	SessionID          string    `json:"session_id"`
	ProjectName        string    `json:"project_name"`
	TesterName         string    `json:"tester_name"`
	SubmittedAt        time.Time `json:"submitted_at"`
	SessionDurationFmt string    `json:"session_duration_fmt"`
	OverallRating      int       `json:"overall_rating"`
	CompletedTasks     int       `json:"completed_tasks"`
	TotalTasks         int       `json:"total_tasks"`
}

// SaveSession inserts one submitted session.
func (s *Store) SaveSession(sub *models.SessionSubmission) error {
	tasksJSON, err := json.Marshal(sub.TaskResults)
	if err != nil {
		return fmt.Errorf("marshal task results: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, session_id, project_name, tester_name, tester_email,
			submitted_at, session_duration_ms, session_duration_fmt, overall_rating,
			overall_comment, completed_tasks, total_tasks, tasks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sub.SessionID, sub.ProjectName, sub.TesterName, sub.TesterEmail,
		sub.SubmittedAt, sub.SessionDurationMs, sub.SessionDurationFmt, sub.OverallRating,
		sub.OverallComment, sub.CompletedTasks, sub.TotalTasks, string(tasksJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ListSessions returns summaries of stored sessions, newest first, optionally
// filtered by project name.
func (s *Store) ListSessions(project string) ([]SessionSummary, error) {
	query := `SELECT session_id, project_name, tester_name, submitted_at,
		session_duration_fmt, overall_rating, completed_tasks, total_tasks FROM sessions`
	var args []interface{}

	if project != "" {
		query += ` WHERE project_name = ?`
		args = append(args, project)
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var testerName sql.NullString
		if err := rows.Scan(&sum.SessionID, &sum.ProjectName, &testerName, &sum.SubmittedAt,
			&sum.SessionDurationFmt, &sum.OverallRating, &sum.CompletedTasks, &sum.TotalTasks); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if testerName.Valid {
			sum.TesterName = testerName.String
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetSession retrieves a full submission by session ID. Returns nil when the
// session is not stored.
func (s *Store) GetSession(sessionID string) (*models.SessionSubmission, error) {
	sub := &models.SessionSubmission{}
	var testerName, testerEmail, comment sql.NullString
	var tasksJSON string

	err := s.db.QueryRow(
		`SELECT session_id, project_name, tester_name, tester_email, submitted_at,
			session_duration_ms, session_duration_fmt, overall_rating, overall_comment,
			completed_tasks, total_tasks, tasks
		 FROM sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&sub.SessionID, &sub.ProjectName, &testerName, &testerEmail, &sub.SubmittedAt,
		&sub.SessionDurationMs, &sub.SessionDurationFmt, &sub.OverallRating, &comment,
		&sub.CompletedTasks, &sub.TotalTasks, &tasksJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if testerName.Valid {
		sub.TesterName = testerName.String
	}
	if testerEmail.Valid {
		sub.TesterEmail = testerEmail.String
	}
	if comment.Valid {
		sub.OverallComment = comment.String
	}
	if err := json.Unmarshal([]byte(tasksJSON), &sub.TaskResults); err != nil {
		return nil, fmt.Errorf("unmarshal task results: %w", err)
	}
	return sub, nil
}
