package llm

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	Model string `json:"model"`

	// System is sent the way each provider expects it: as a leading message
	// for OpenAI and Ollama, as the top-level field for Anthropic.
	System string `json:"system,omitempty"`

	Messages []Message `json:"messages"`

	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}
