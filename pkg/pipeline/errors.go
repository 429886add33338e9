package pipeline

import (
	"errors"
	"fmt"
)

// ErrRetrievalFailed is matched by every error Answer returns. The failing
// stage and the original cause are available through *StageError.
var ErrRetrievalFailed = errors.New("retrieval failed")

// Stage names one external call made while answering.
type Stage string

const (
	StageRetrieve Stage = "retrieve"
	StageGenerate Stage = "generate"
	StageEmbed    Stage = "embed"
)

// StageError records which stage of Answer failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s stage: %v", ErrRetrievalFailed, e.Stage, e.Err)
}

// Unwrap exposes both ErrRetrievalFailed and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{ErrRetrievalFailed, e.Err}
}
