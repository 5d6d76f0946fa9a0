package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Attempt outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeParseError   = "parse_error"
	OutcomeServiceError = "service_error"
)

// Attempt is one completion request made while generating a scene.
type Attempt struct {
	SessionID    string
	SceneNum     int
	Attempt      int
	Model        string
	SystemPrompt string
	UserPrompt   string
	Response     string
	Outcome      string
	Error        string
	Duration     time.Duration
}

type CompletionLog struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	SceneNum  int       `json:"scene_num"`
	Attempt   int       `json:"attempt"`
	UserInput string    `json:"user_input"`
	Response  string    `json:"response"`
	Outcome   string    `json:"outcome"`
	Metadata  string    `json:"metadata"`
	Rating    *int      `json:"rating,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

type CompletionMetadata struct {
	Model        string        `json:"model"`
	SystemPrompt string        `json:"system_prompt"`
	ResponseTime time.Duration `json:"response_time_ms"`
	Error        *string       `json:"error,omitempty"`
}

// CompletionLogger persists attempts to SQLite for later review and rating.
type CompletionLogger struct {
	db *sql.DB
}

func NewCompletionLogger(path string) (*CompletionLogger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := &CompletionLogger{db: db}
	if err := logger.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return logger, nil
}

func (cl *CompletionLogger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL,
		scene_num INTEGER NOT NULL,
		attempt INTEGER NOT NULL,
		user_input TEXT NOT NULL,
		response TEXT NOT NULL,
		outcome TEXT NOT NULL,
		metadata TEXT NOT NULL,
		rating INTEGER,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_completions_timestamp ON completions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_completions_session ON completions(session_id, scene_num);
	`

	_, err := cl.db.Exec(schema)
	return err
}

// RecordAttempt stores a single completion attempt.
func (cl *CompletionLogger) RecordAttempt(ctx context.Context, a Attempt) error {
	metadata := CompletionMetadata{
		Model:        a.Model,
		SystemPrompt: a.SystemPrompt,
		ResponseTime: a.Duration,
	}
	if a.Error != "" {
		metadata.Error = &a.Error
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = cl.db.ExecContext(ctx, `
		INSERT INTO completions (session_id, scene_num, attempt, user_input, response, outcome, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.SessionID, a.SceneNum, a.Attempt, a.UserPrompt, a.Response, a.Outcome, string(metadataJSON))
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

func (cl *CompletionLogger) GetRecentCompletions(ctx context.Context, limit int) ([]CompletionLog, error) {
	rows, err := cl.db.QueryContext(ctx, `
		SELECT id, timestamp, session_id, scene_num, attempt, user_input, response, outcome, metadata, rating, notes
		FROM completions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []CompletionLog
	for rows.Next() {
		var c CompletionLog
		err := rows.Scan(&c.ID, &c.Timestamp, &c.SessionID, &c.SceneNum, &c.Attempt,
			&c.UserInput, &c.Response, &c.Outcome, &c.Metadata, &c.Rating, &c.Notes)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}

	return completions, rows.Err()
}

func (cl *CompletionLogger) RateCompletion(ctx context.Context, id int, rating int, notes string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	res, err := cl.db.ExecContext(ctx, `
		UPDATE completions
		SET rating = ?, notes = ?
		WHERE id = ?
	`, rating, notesPtr, id)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("completion %d not found", id)
	}
	return nil
}

func (cl *CompletionLogger) Close() error {
	return cl.db.Close()
}
