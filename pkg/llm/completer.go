package llm

import (
	"context"
	"errors"
)

// Completer runs one system + user exchange and returns the assistant text.
// Implementations are shared across sessions and must be safe for
// concurrent use.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generator produces an answer to query grounded in contextBlock.
// An empty answer is valid and means "no answer".
type Generator interface {
	Generate(ctx context.Context, query, contextBlock string) (string, error)
}

// AnswerSystemer renders the answer system instruction around a context block.
type AnswerSystemer interface {
	AnswerSystem(contextBlock string) string
}

// AnswerGenerator is a Generator that sends the rendered answer prompt as the
// system message and the raw query as the user message.
type AnswerGenerator struct {
	completer Completer
	prompts   AnswerSystemer
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(completer Completer, prompts AnswerSystemer) (*AnswerGenerator, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if prompts == nil {
		return nil, errors.New("prompts are required")
	}
	return &AnswerGenerator{completer: completer, prompts: prompts}, nil
}

// Generate implements Generator.
func (g *AnswerGenerator) Generate(ctx context.Context, query, contextBlock string) (string, error) {
	return g.completer.Complete(ctx, g.prompts.AnswerSystem(contextBlock), query)
}

var _ Generator = (*AnswerGenerator)(nil)
