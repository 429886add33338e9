package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/vakki/pkg/llm"
)

// Settings are the generation parameters applied to every request a
// Completer sends.
type Settings struct {
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Completer adapts a Provider to llm.Completer.
type Completer struct {
	provider Provider
	settings Settings
}

// NewCompleter creates a Completer.
func NewCompleter(p Provider, s Settings) *Completer {
	return &Completer{provider: p, settings: s}
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.provider.Chat(ctx, &llm.ChatRequest{
		Model:       c.settings.Model,
		System:      system,
		Messages:    []llm.Message{llm.NewTextMessage(llm.RoleUser, user)},
		MaxTokens:   c.settings.MaxTokens,
		Temperature: c.settings.Temperature,
		TopP:        c.settings.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat: %w", c.provider.Name(), err)
	}

	return strings.TrimSpace(resp.Message.GetText()), nil
}

var _ llm.Completer = (*Completer)(nil)
