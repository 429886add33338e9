// Package embeddings turns text into vectors for retrieval and scoring.
package embeddings

import "context"

// Embedder provides text embedding capabilities. Implementations are shared
// across sessions and must be safe for concurrent use.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedMany embeds a batch; the i-th vector belongs to texts[i].
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
