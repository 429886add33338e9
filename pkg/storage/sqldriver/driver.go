// Package sqldriver implements storage.Driver over database/sql. It is
// dialect agnostic and embedded by the sqlite and postgres drivers.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/storage"
)

// Dialect captures the few differences between the supported databases.
type Dialect struct {
	Name string

	// TimestampType is the column type for created_at.
	TimestampType string

	// Numbered placeholders ($1, $2) instead of "?".
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite", TimestampType: "TIMESTAMP"}
	Postgres = Dialect{Name: "postgres", TimestampType: "TIMESTAMPTZ", Numbered: true}
)

// SQLDriver provides audit log operations on a *sql.DB.
type SQLDriver struct {
	DB      *sql.DB
	Dialect Dialect
}

// Migrate creates the audit table and its index when missing.
func (d *SQLDriver) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS answer_records (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL,
			answer TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT '',
			similarity DOUBLE PRECISION NOT NULL DEFAULT 0,
			faithfulness DOUBLE PRECISION NOT NULL DEFAULT 0,
			sources TEXT NOT NULL DEFAULT '[]',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at %s NOT NULL
		)`, d.Dialect.TimestampType),
		`CREATE INDEX IF NOT EXISTS answer_records_created_at ON answer_records (created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Put stores a record.
func (d *SQLDriver) Put(ctx context.Context, rec *storage.AnswerRecord) error {
	if rec == nil {
		return storage.ErrNilRecord
	}

	sources := rec.Sources
	if sources == nil {
		sources = []history.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, d.rebind(`SELECT 1 FROM answer_records WHERE id = ?`), rec.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", storage.ErrDuplicateRecord, rec.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check existence: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, d.rebind(`
		INSERT INTO answer_records
			(id, session_id, query, answer, outcome, similarity, faithfulness, sources, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.SessionID, rec.Query, rec.Answer, rec.Outcome,
		rec.Similarity, rec.Faithfulness, string(sourcesJSON), rec.DurationMs, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (d *SQLDriver) Get(ctx context.Context, id string) (*storage.AnswerRecord, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(selectColumns+` WHERE id = ?`), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (d *SQLDriver) List(ctx context.Context, limit int) ([]*storage.AnswerRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	rows, err := d.DB.QueryContext(ctx, d.rebind(selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*storage.AnswerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (d *SQLDriver) Close() error {
	return d.DB.Close()
}

const selectColumns = `SELECT id, session_id, query, answer, outcome, similarity, faithfulness, sources, duration_ms, created_at FROM answer_records`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*storage.AnswerRecord, error) {
	var (
		rec     storage.AnswerRecord
		sources string
	)
	err := s.Scan(
		&rec.ID, &rec.SessionID, &rec.Query, &rec.Answer, &rec.Outcome,
		&rec.Similarity, &rec.Faithfulness, &sources, &rec.DurationMs, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// rebind rewrites "?" placeholders for dialects with numbered parameters.
func (d *SQLDriver) rebind(query string) string {
	if !d.Dialect.Numbered {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ storage.Driver = (*SQLDriver)(nil)
