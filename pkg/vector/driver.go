// Package vector provides interfaces and implementations for the vector
// stores holding embedded judgment chunks.
package vector

import "context"

// Document represents a stored judgment chunk with its embedding and metadata.
type Document struct {
	// ID is a unique identifier for the chunk.
	ID string

	// Content is the chunk text.
	Content string

	// Source names the document the chunk was cut from (file name or URL).
	Source string

	// Page is the page label inside Source. Stored as text since indexers
	// write both numeric and roman page labels.
	Page string

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// most similar first.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
