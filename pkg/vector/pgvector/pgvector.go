// Package pgvector provides a PostgreSQL vector driver using the pgvector
// extension.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/papercomputeco/vakki/pkg/vector"
)

// DefaultTableName is the default table holding judgment chunks.
const DefaultTableName = "judgments"

// Driver implements vector.Driver on a pgvector table.
type Driver struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is a postgres connection string.
	DSN string

	// TableName defaults to DefaultTableName.
	TableName string

	// Dimensions sizes the embedding column when the table is created.
	Dimensions uint
}

// NewDriver opens the database and creates the extension and table if needed.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("pgx", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	name := c.TableName
	if name == "" {
		name = DefaultTableName
	}

	d := &Driver{
		db:     db,
		table:  pgx.Identifier{name}.Sanitize(),
		logger: logger,
	}

	if err := d.migrate(ctx, c.Dimensions); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("pgvector vector driver initialized",
		"table", name,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *Driver) migrate(ctx context.Context, dimensions uint) error {
	if _, err := d.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}

	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			doc_id TEXT PRIMARY KEY,
			content TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			page TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)`, d.table, dimensions)
	if _, err := d.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	return nil
}

// Add upserts documents.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`
		INSERT INTO %s (doc_id, content, source, page, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doc_id) DO UPDATE SET
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			page = EXCLUDED.page,
			embedding = EXCLUDED.embedding`, d.table)

	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, upsert,
			doc.ID, doc.Content, doc.Source, doc.Page, pgvector.NewVector(doc.Embedding),
		); err != nil {
			return fmt.Errorf("upserting document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to pgvector", "count", len(docs))
	return nil
}

// Query ranks by cosine distance; the score is cosine similarity.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	query := fmt.Sprintf(`
		SELECT doc_id, content, source, page, embedding, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, d.table)

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r     vector.QueryResult
			emb   pgvector.Vector
			score float64
		)
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &r.Page, &emb, &score); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Embedding = emb.Slice()
		r.Score = float32(score)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried pgvector", "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT doc_id, content, source, page, embedding
		FROM %s
		WHERE doc_id = ANY($1)`, d.table)

	rows, err := d.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			doc vector.Document
			emb pgvector.Vector
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Source, &doc.Page, &emb); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Embedding = emb.Slice()
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE doc_id = ANY($1)`, d.table)
	if _, err := d.db.ExecContext(ctx, query, ids); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	d.logger.Debug("deleted documents from pgvector", "count", len(ids))
	return nil
}

// Close releases the connection pool.
func (d *Driver) Close() error {
	return d.db.Close()
}
