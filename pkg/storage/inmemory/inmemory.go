// Package inmemory provides a map backed audit store for tests and for
// running without a database.
package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/papercomputeco/vakki/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	mu sync.RWMutex

	records map[string]*storage.AnswerRecord

	// order holds record IDs in insertion order
	order []string
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*storage.AnswerRecord),
	}
}

// Put stores a copy of rec.
func (d *Driver) Put(_ context.Context, rec *storage.AnswerRecord) error {
	if rec == nil {
		return storage.ErrNilRecord
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateRecord, rec.ID)
	}

	cp := *rec
	cp.Sources = slices.Clone(rec.Sources)
	d.records[rec.ID] = &cp
	d.order = append(d.order, rec.ID)
	return nil
}

// Get retrieves a record by ID.
func (d *Driver) Get(_ context.Context, id string) (*storage.AnswerRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	cp := *rec
	return &cp, nil
}

// List returns up to limit records, newest first.
func (d *Driver) List(_ context.Context, limit int) ([]*storage.AnswerRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*storage.AnswerRecord, 0, min(limit, len(d.order)))
	for i := len(d.order) - 1; i >= 0 && len(result) < limit; i-- {
		cp := *d.records[d.order[i]]
		result = append(result, &cp)
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}
