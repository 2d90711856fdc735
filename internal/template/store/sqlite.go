package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

const templatesSchema = `
CREATE TABLE IF NOT EXISTS templates (
	template_id      TEXT PRIMARY KEY,
	uuid             TEXT NOT NULL,
	name             TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	trusted          INTEGER NOT NULL DEFAULT 0,
	language         TEXT NOT NULL,
	source           TEXT NOT NULL,
	allowed_domains  TEXT,
	allowed_keywords TEXT,
	variables        TEXT,
	credits_per_run  INTEGER NOT NULL DEFAULT 1,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);`

// SQLiteStore keeps templates in SQLite. The same database may also hold
// the execution log.
type SQLiteStore struct {
	db   *sql.DB
	owns bool
}

// OpenSQLite opens (or creates) a SQLite database at path with WAL enabled.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// NewSQLiteStore opens path and creates the templates table
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLiteStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owns = true
	return s, nil
}

// NewSQLiteStoreFromDB uses an already open database. Close leaves it open.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(templatesSchema); err != nil {
		return nil, fmt.Errorf("create templates schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying database for sharing
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Get(ctx context.Context, templateID string) (*types.Template, error) {
	var (
		t                          types.Template
		trusted                    int
		domains, keywords, vars    sql.NullString
		createdAt, updatedAt       string
		status, language, uuidText string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT template_id, uuid, name, status, trusted, language, source,
		       allowed_domains, allowed_keywords, variables, credits_per_run, created_at, updated_at
		FROM templates WHERE template_id = ?`, templateID,
	).Scan(&t.TemplateID, &uuidText, &t.Name, &status, &trusted, &language, &t.Code.Source,
		&domains, &keywords, &vars, &t.CreditsPerRun, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound(templateID)
	}
	if err != nil {
		return nil, fmt.Errorf("get template %q: %w", templateID, err)
	}

	t.UUID = uuidText
	t.Status = types.TemplateStatus(status)
	t.Trusted = trusted != 0
	t.Code.Language = types.Language(language)
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("template %q created_at: %w", templateID, err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("template %q updated_at: %w", templateID, err)
	}

	if err := decodeColumn(domains, &t.AllowedDomains); err != nil {
		return nil, fmt.Errorf("template %q allowed_domains: %w", templateID, err)
	}
	if err := decodeColumn(keywords, &t.AllowedKeywords); err != nil {
		return nil, fmt.Errorf("template %q allowed_keywords: %w", templateID, err)
	}
	if err := decodeColumn(vars, &t.Variables); err != nil {
		return nil, fmt.Errorf("template %q variables: %w", templateID, err)
	}
	return &t, nil
}

// Put inserts or replaces a template. A missing UpdatedAt is set to now so
// replacing a template always moves its version marker.
func (s *SQLiteStore) Put(ctx context.Context, tpl *types.Template) error {
	t := clone(tpl)
	normalize(t)
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	domains, err := encodeColumn(t.AllowedDomains)
	if err != nil {
		return err
	}
	keywords, err := encodeColumn(t.AllowedKeywords)
	if err != nil {
		return err
	}
	vars, err := encodeColumn(t.Variables)
	if err != nil {
		return err
	}

	trusted := 0
	if t.Trusted {
		trusted = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (template_id, uuid, name, status, trusted, language, source,
			allowed_domains, allowed_keywords, variables, credits_per_run, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(template_id) DO UPDATE SET
			uuid = excluded.uuid,
			name = excluded.name,
			status = excluded.status,
			trusted = excluded.trusted,
			language = excluded.language,
			source = excluded.source,
			allowed_domains = excluded.allowed_domains,
			allowed_keywords = excluded.allowed_keywords,
			variables = excluded.variables,
			credits_per_run = excluded.credits_per_run,
			updated_at = excluded.updated_at`,
		t.TemplateID, t.UUID, t.Name, string(t.Status), trusted, string(t.Code.Language), t.Code.Source,
		domains, keywords, vars, t.CreditsPerRun,
		t.CreatedAt.UTC().Format(time.RFC3339Nano), t.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put template %q: %w", t.TemplateID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, templateID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE template_id = ?", templateID); err != nil {
		return fmt.Errorf("delete template %q: %w", templateID, err)
	}
	return nil
}

// List returns all template ids in order
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT template_id FROM templates ORDER BY template_id")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan template id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database if the store opened it
func (s *SQLiteStore) Close() error {
	if !s.owns {
		return nil
	}
	return s.db.Close()
}

func encodeColumn(v interface{}) (sql.NullString, error) {
	switch x := v.(type) {
	case *types.Restriction:
		if x == nil {
			return sql.NullString{}, nil
		}
	case []types.Variable:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	}
	s, err := sonic.MarshalString(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode column: %w", err)
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func decodeColumn(col sql.NullString, dst interface{}) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return sonic.UnmarshalString(col.String, dst)
}
