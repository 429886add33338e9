// Package provider implements outbound chat completion clients for the
// language model vendors vakki can answer with.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/papercomputeco/vakki/pkg/llm"
)

// Provider sends chat requests to one LLM API.
type Provider interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai", "ollama")
	Name() string

	// Chat sends a non-streaming chat completion request.
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Config holds the connection settings shared by all providers.
type Config struct {
	// APIKey is required by hosted providers and ignored by ollama.
	APIKey string

	// BaseURL overrides the provider's default API root.
	BaseURL string

	// HTTPClient is used for requests. Defaults to a client with a 5 minute timeout.
	HTTPClient *http.Client
}

// DefaultHTTPClient returns the client used when Config.HTTPClient is nil.
// Per-call deadlines come from the request context; this is a backstop.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}
