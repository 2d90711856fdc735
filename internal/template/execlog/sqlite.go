package execlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS execution_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	template_id     TEXT NOT NULL,
	execution_id    TEXT NOT NULL,
	duration_ms     INTEGER NOT NULL,
	credits_charged INTEGER NOT NULL DEFAULT 0,
	success         INTEGER NOT NULL,
	error_code      TEXT,
	error_message   TEXT,
	recorded_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS execution_log_template ON execution_log (template_id, id);`

// SQLiteRecorder appends entries to the execution_log table
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder creates the execution_log table in db. The database is
// usually shared with the template store.
func NewSQLiteRecorder(db *sql.DB) (*SQLiteRecorder, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create execution log schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (s *SQLiteRecorder) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	success := 0
	if e.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_log (template_id, execution_id, duration_ms, credits_charged, success, error_code, error_message, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TemplateID, e.ExecutionID, e.Duration.Milliseconds(), e.CreditsCharged, success,
		nullable(e.ErrorCode), nullable(e.ErrorMessage), e.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record execution of %q: %w", e.TemplateID, err)
	}
	return nil
}

// Recent returns the newest entries of a template, newest first
func (s *SQLiteRecorder) Recent(ctx context.Context, templateID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT template_id, execution_id, duration_ms, credits_charged, success, error_code, error_message, recorded_at
		FROM execution_log WHERE template_id = ? ORDER BY id DESC LIMIT ?`, templateID, limit)
	if err != nil {
		return nil, fmt.Errorf("query execution log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e              Entry
			durationMS     int64
			success        int
			code, message  sql.NullString
			recordedAtText string
		)
		if err := rows.Scan(&e.TemplateID, &e.ExecutionID, &durationMS, &e.CreditsCharged, &success,
			&code, &message, &recordedAtText); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Success = success != 0
		e.ErrorCode = code.String
		e.ErrorMessage = message.String
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAtText)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Usage summarizes a template's recorded executions
type Usage struct {
	Runs      int
	Successes int
	Credits   int
}

func (s *SQLiteRecorder) Usage(ctx context.Context, templateID string) (Usage, error) {
	var u Usage
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(SUM(credits_charged), 0)
		FROM execution_log WHERE template_id = ?`, templateID,
	).Scan(&u.Runs, &u.Successes, &u.Credits)
	if err != nil {
		return Usage{}, fmt.Errorf("query usage of %q: %w", templateID, err)
	}
	return u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
