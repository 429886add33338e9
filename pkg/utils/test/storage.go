package testutils

import (
	"time"

	"github.com/papercomputeco/vakki/pkg/history"
	"github.com/papercomputeco/vakki/pkg/storage"
)

// NewAnswerRecord builds an audit record with one source.
func NewAnswerRecord(id, query string, createdAt time.Time) *storage.AnswerRecord {
	return &storage.AnswerRecord{
		ID:           id,
		SessionID:    "session-1",
		Query:        query,
		Answer:       "Theft is punishable under Section 379.",
		Outcome:      "answered",
		Similarity:   0.82,
		Faithfulness: 0.77,
		Sources: []history.Source{
			{Source: "ipc.pdf", Page: "12", Excerpt: "Section 379. Punishment for theft"},
		},
		DurationMs: 1200,
		CreatedAt:  createdAt,
	}
}
