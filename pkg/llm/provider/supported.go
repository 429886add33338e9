package provider

import (
	"fmt"
	"os"

	"github.com/papercomputeco/vakki/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/vakki/pkg/llm/provider/ollama"
	"github.com/papercomputeco/vakki/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"

	// Groq serves an OpenAI compatible API.
	Groq = "groq"

	// Auto picks a provider from the model name.
	Auto = "auto"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama, Groq, Auto}
}

// APIKeyEnv returns the environment variable holding the provider's API key,
// or "" for providers that do not need one.
func APIKeyEnv(providerType string) string {
	switch providerType {
	case Anthropic:
		return "ANTHROPIC_API_KEY"
	case OpenAI:
		return "OPENAI_API_KEY"
	case Groq:
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// New creates a new Provider instance for the given provider type.
// model is only consulted when providerType is Auto. An empty APIKey is
// filled from the provider's environment variable.
// Returns an error if the provider type is not recognized.
func New(providerType, model string, c Config) (Provider, error) {
	if providerType == Auto || providerType == "" {
		providerType = Detect(model)
	}

	if c.APIKey == "" {
		if env := APIKeyEnv(providerType); env != "" {
			c.APIKey = os.Getenv(env)
		}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = DefaultHTTPClient()
	}

	switch providerType {
	case Anthropic:
		p, err := anthropic.New(anthropic.Config{APIKey: c.APIKey, BaseURL: c.BaseURL, HTTPClient: c.HTTPClient})
		if err != nil {
			return nil, err
		}
		return p, nil
	case OpenAI, Groq:
		if providerType == Groq && c.BaseURL == "" {
			c.BaseURL = groqBaseURL
		}
		p, err := openai.New(openai.Config{Name: providerType, APIKey: c.APIKey, BaseURL: c.BaseURL, HTTPClient: c.HTTPClient})
		if err != nil {
			return nil, err
		}
		return p, nil
	case Ollama:
		p, err := ollama.New(ollama.Config{BaseURL: c.BaseURL, HTTPClient: c.HTTPClient})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
