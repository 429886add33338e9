// Package tools holds the single-turn text transformations offered beside
// question answering: summarizing an answer and drafting a legal document.
// Both are stateless and share the answer pipeline's completer.
package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/papercomputeco/vakki/pkg/llm"
	"github.com/papercomputeco/vakki/pkg/prompt"
)

// ErrEmptyInput is returned when the text or instruction is blank.
var ErrEmptyInput = errors.New("input cannot be empty")

// Prompter supplies system instructions by name.
type Prompter interface {
	Get(n prompt.Name) string
}

// Tools runs the summarize and draft transformations.
type Tools struct {
	completer llm.Completer
	prompts   Prompter
}

// New creates Tools.
func New(completer llm.Completer, prompts Prompter) *Tools {
	return &Tools{completer: completer, prompts: prompts}
}

// Summarize condenses text.
func (t *Tools) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	return t.completer.Complete(ctx, t.prompts.Get(prompt.Summarize), "Summarize this:\n"+text)
}

// Draft prepares a formal legal document from an instruction.
func (t *Tools) Draft(ctx context.Context, instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", ErrEmptyInput
	}
	return t.completer.Complete(ctx, t.prompts.Get(prompt.Draft), "Draft the following legal document:\n\n"+instruction)
}
