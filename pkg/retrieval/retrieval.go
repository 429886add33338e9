// Package retrieval provides the nearest-neighbour lookup the answer pipeline
// reads its context from. It embeds the query text, queries a vector.Driver,
// and normalizes each hit into a Chunk.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/vakki/pkg/embeddings"
	"github.com/papercomputeco/vakki/pkg/vector"
)

const (
	// DefaultK is the number of chunks returned when a search passes k <= 0.
	DefaultK = 5

	UnknownSource = "unknown"
	UnknownPage   = "N/A"
)

// Chunk is one retrieved unit of judgment text.
type Chunk struct {
	// Content is single-line: newlines in the stored text are replaced by spaces.
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    string `json:"page"`
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// NormalizeContent trims content and turns every line break (\r\n, \r or
// \n) into a single space.
func NormalizeContent(content string) string {
	return lineBreaks.Replace(strings.TrimSpace(content))
}

// NewChunk builds a Chunk from stored text and metadata, applying the
// "unknown" and "N/A" defaults.
func NewChunk(content, source, page string) Chunk {
	content = NormalizeContent(content)

	if strings.TrimSpace(source) == "" {
		source = UnknownSource
	}
	if strings.TrimSpace(page) == "" {
		page = UnknownPage
	}

	return Chunk{
		Content: content,
		Source:  source,
		Page:    page,
	}
}

// Index returns chunks ranked by descending relevance. An empty result is
// not an error. Implementations must be safe for concurrent use.
type Index interface {
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

// VectorIndex is an Index over an embedder and a vector driver.
type VectorIndex struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	defaultK int
	logger   *slog.Logger
}

// NewVectorIndex creates a VectorIndex. defaultK <= 0 uses DefaultK.
func NewVectorIndex(embedder embeddings.Embedder, driver vector.Driver, defaultK int, logger *slog.Logger) (*VectorIndex, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if driver == nil {
		return nil, errors.New("vector driver is required")
	}
	if defaultK <= 0 {
		defaultK = DefaultK
	}

	return &VectorIndex{
		embedder: embedder,
		driver:   driver,
		defaultK: defaultK,
		logger:   logger,
	}, nil
}

// Search embeds query and returns its k nearest chunks.
func (i *VectorIndex) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		k = i.defaultK
	}

	i.logger.Debug("search request",
		"query", query,
		"k", k,
	)

	queryEmbedding, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := i.driver.Query(ctx, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, NewChunk(r.Content, r.Source, r.Page))
	}

	return chunks, nil
}

var _ Index = (*VectorIndex)(nil)
