// Package storage defines the audit log of answered queries.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/vakki/pkg/history"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// AnswerRecord is one answered query as written to the audit log.
type AnswerRecord struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"session_id"`
	Query        string           `json:"query"`
	Answer       string           `json:"answer"`
	Outcome      string           `json:"outcome"`
	Similarity   float64          `json:"similarity"`
	Faithfulness float64          `json:"faithfulness"`
	Sources      []history.Source `json:"sources"`
	DurationMs   int64            `json:"duration_ms"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Driver persists answer records. The audit log is append-only: records are
// never updated after Put.
type Driver interface {
	// Put stores a record. Storing an ID twice is an error.
	Put(ctx context.Context, rec *AnswerRecord) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*AnswerRecord, error)

	// List returns up to limit records, newest first. A limit <= 0 uses
	// DefaultListLimit.
	List(ctx context.Context, limit int) ([]*AnswerRecord, error)

	// Close closes the store and releases any resources.
	Close() error
}
