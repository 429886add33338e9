package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/vakki/pkg/retrieval"
)

// MockIndex is a test retrieval index returning fixed chunks.
type MockIndex struct {
	Chunks []retrieval.Chunk

	// Err is returned by Search when set.
	Err error

	mu      sync.Mutex
	queries []string
}

func NewMockIndex(chunks ...retrieval.Chunk) *MockIndex {
	return &MockIndex{Chunks: chunks}
}

func (m *MockIndex) Search(ctx context.Context, query string, _ int) ([]retrieval.Chunk, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Chunks, nil
}

// Queries returns every query passed to Search.
func (m *MockIndex) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}
