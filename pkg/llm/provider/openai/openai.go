// Package openai sends chat completions to OpenAI or any API that speaks
// the same protocol.
package openai

import (
	"context"
	"errors"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/vakki/pkg/llm"
)

// Config configures the client.
type Config struct {
	// Name reported by the provider. Defaults to "openai".
	Name string

	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type provider struct {
	name   string
	client *goopenai.Client
}

// New creates an OpenAI chat provider.
func New(c Config) (*provider, error) {
	if c.APIKey == "" {
		return nil, errors.New("openai provider needs an API key")
	}

	cfg := goopenai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.HTTPClient != nil {
		cfg.HTTPClient = c.HTTPClient
	}

	name := c.Name
	if name == "" {
		name = "openai"
	}

	return &provider{
		name:   name,
		client: goopenai.NewClientWithConfig(cfg),
	}, nil
}

// Name
func (p *provider) Name() string {
	return p.name
}

func (p *provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, toRequest(req))
	if err != nil {
		return nil, err
	}
	return fromResponse(resp)
}

func toRequest(req *llm.ChatRequest) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.GetText(),
		})
	}

	out := goopenai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stop:     req.Stop,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		out.TopP = float32(*req.TopP)
	}

	return out
}

func fromResponse(resp goopenai.ChatCompletionResponse) (*llm.ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errEmpty
	}

	choice := resp.Choices[0]
	return &llm.ChatResponse{
		Model:      resp.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

var errEmpty = errors.New("openai returned no choices")
