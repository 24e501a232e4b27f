package providers

import (
	"context"
	"strings"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/shared/llmutils"
)

// OllamaClient talks to an Ollama server's non-streaming chat endpoint.
type OllamaClient struct {
	endpoint string
	model    string
	poster   jsonPoster
}

var _ schema.ModelClient = (*OllamaClient)(nil)

type ollamaRequest struct {
	Model    string               `json:"model"`
	Messages []schema.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type ollamaResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

// NewOllamaClient builds a client posting to baseEndpoint+chatCompletion.
func NewOllamaClient(baseEndpoint, chatCompletion, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		endpoint: strings.TrimRight(baseEndpoint, "/") + chatCompletion,
		model:    stripProviderPrefix(model),
		poster:   newJSONPoster(NameOllama, timeout, nil),
	}
}

func (c *OllamaClient) Model() string { return c.model }

func (c *OllamaClient) Complete(ctx context.Context, messages []schema.ChatMessage) (string, error) {
	var resp ollamaResponse
	err := c.poster.post(ctx, c.endpoint, ollamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &schema.UpstreamError{Provider: NameOllama, Body: resp.Error}
	}
	return strings.TrimSpace(llmutils.StripThink(resp.Message.Content)), nil
}
