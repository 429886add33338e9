package provider

import "strings"

// Detect maps a model name to the provider that serves it. Names that match
// no hosted vendor are assumed to be local ollama models.
func Detect(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))

	switch {
	case strings.HasPrefix(m, "claude-"):
		return Anthropic
	case strings.HasPrefix(m, "gpt-"),
		strings.HasPrefix(m, "chatgpt-"),
		strings.HasPrefix(m, "o1"),
		strings.HasPrefix(m, "o3"),
		strings.HasPrefix(m, "o4"),
		strings.HasPrefix(m, "text-embedding-"):
		return OpenAI
	default:
		return Ollama
	}
}
