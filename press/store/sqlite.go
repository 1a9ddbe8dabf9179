/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"chainguard.dev/agentpress/press"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the durable store implementation.
type SQLite struct {
	db *sql.DB
}

var _ Interface = (*SQLite)(nil)

// Open opens (or creates) the agent press database in dataDir and applies
// pending migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*SQLite, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "agentpress.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" under concurrent webhook
	// handling; the busy timeout covers the remaining contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

// migrate applies embedded migration files that haven't run yet.
func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for i, name := range names {
		version := i + 1
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}
		raw, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(raw)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLite) GetMapping(ctx context.Context, entityType EntityType, entityID string) (*Mapping, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_type, entity_id, github_type, github_number, github_url, branch, created_at
		FROM mappings WHERE entity_type = ? AND entity_id = ?`, entityType, entityID)
	return scanMapping(row)
}

func (s *SQLite) PutMapping(ctx context.Context, m Mapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mappings (entity_type, entity_id, github_type, github_number, github_url, branch, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			github_type = excluded.github_type,
			github_number = excluded.github_number,
			github_url = excluded.github_url,
			branch = excluded.branch`,
		m.EntityType, m.EntityID, m.GitHubType, m.Number, m.URL, m.Branch, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting mapping: %w", err)
	}
	return nil
}

func (s *SQLite) MappingByNumber(ctx context.Context, githubType GitHubType, number int) (*Mapping, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_type, entity_id, github_type, github_number, github_url, branch, created_at
		FROM mappings WHERE github_type = ? AND github_number = ?`, githubType, number)
	return scanMapping(row)
}

func (s *SQLite) ListMappings(ctx context.Context) ([]Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, entity_id, github_type, github_number, github_url, branch, created_at
		FROM mappings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	var out []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *SQLite) SweepMappings(ctx context.Context, policy RetentionPolicy) (int, error) {
	evicted := 0

	if policy.MaxAge > 0 {
		cutoff := timeNow().Add(-policy.MaxAge).UTC()
		res, err := s.db.ExecContext(ctx, "DELETE FROM mappings WHERE created_at < ?", cutoff)
		if err != nil {
			return evicted, fmt.Errorf("sweeping by age: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			evicted += int(n)
		}
	}

	if policy.MaxCount > 0 {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM mappings WHERE (entity_type, entity_id) NOT IN (
				SELECT entity_type, entity_id FROM mappings
				ORDER BY created_at DESC LIMIT ?
			)`, policy.MaxCount)
		if err != nil {
			return evicted, fmt.Errorf("sweeping by count: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			evicted += int(n)
		}
	}

	return evicted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (*Mapping, error) {
	var m Mapping
	var created time.Time
	err := row.Scan(&m.EntityType, &m.EntityID, &m.GitHubType, &m.Number, &m.URL, &m.Branch, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning mapping: %w", err)
	}
	m.CreatedAt = created
	return &m, nil
}

func (s *SQLite) GetContent(ctx context.Context, id string) (*press.Content, error) {
	var c press.Content
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, slug, village, collection_type, body, status, created_at, updated_at
		FROM content WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Slug, &c.Village, &c.CollectionType, &body, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching content: %w", err)
	}
	c.Body = body
	return &c, nil
}

func (s *SQLite) PutContent(ctx context.Context, c *press.Content) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content (id, title, slug, village, collection_type, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			slug = excluded.slug,
			village = excluded.village,
			collection_type = excluded.collection_type,
			body = excluded.body,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		c.ID, c.Title, c.Slug, c.Village, c.CollectionType, []byte(c.Body), c.Status, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting content: %w", err)
	}
	return nil
}

func (s *SQLite) ListContent(ctx context.Context) ([]*press.Content, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, slug, village, collection_type, body, status, created_at, updated_at
		FROM content ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()

	var out []*press.Content
	for rows.Next() {
		var c press.Content
		var body []byte
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Village, &c.CollectionType, &body, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning content: %w", err)
		}
		c.Body = body
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLite) GetTask(ctx context.Context, id string) (*press.Task, error) {
	var t press.Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at FROM tasks WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching task: %w", err)
	}
	return &t, nil
}

func (s *SQLite) PutTask(ctx context.Context, t *press.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		t.ID, t.Title, t.Description, t.Status, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting task: %w", err)
	}
	return nil
}

func (s *SQLite) GetTicket(ctx context.Context, id string) (*press.Ticket, error) {
	var t press.Ticket
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question, answer, answered_by, status, created_at, updated_at FROM tickets WHERE id = ?`, id).
		Scan(&t.ID, &t.Question, &t.Answer, &t.AnsweredBy, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching ticket: %w", err)
	}
	return &t, nil
}

func (s *SQLite) PutTicket(ctx context.Context, t *press.Ticket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, question, answer, answered_by, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			answered_by = excluded.answered_by,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		t.ID, t.Question, t.Answer, t.AnsweredBy, t.Status, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting ticket: %w", err)
	}
	return nil
}
