package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/vakki/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeAnswerRecorded is emitted after an answer is written to the audit log.
	EventTypeAnswerRecorded = "vakki.answer.recorded"
)

// AnswerRecordedEvent is a transport-neutral event payload for an audited answer.
type AnswerRecordedEvent struct {
	SchemaVersion int                  `json:"schema_version"`
	EventType     string               `json:"event_type"`
	EventID       string               `json:"event_id"`
	EmittedAt     time.Time            `json:"emitted_at"`
	Source        EventSource          `json:"source"`
	Record        storage.AnswerRecord `json:"record"`
}

// EventSource identifies where the answer originated.
type EventSource struct {
	Service   string `json:"service"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

// NewAnswerRecordedEvent wraps rec in a v1 event stamped with a fresh id.
func NewAnswerRecordedEvent(rec storage.AnswerRecord, model string, now time.Time) *AnswerRecordedEvent {
	return &AnswerRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeAnswerRecorded,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source: EventSource{
			Service:   "vakki",
			SessionID: rec.SessionID,
			Model:     model,
		},
		Record: rec,
	}
}
