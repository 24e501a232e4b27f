package providers

import (
	"context"
	"strings"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/shared/llmutils"
)

// OpenAIClient calls any OpenAI-compatible chat completions endpoint
// (OpenAI, DeepSeek, Groq, vLLM, LM Studio, ...).
type OpenAIClient struct {
	endpoint string
	model    string
	poster   jsonPoster
}

var _ schema.ModelClient = (*OpenAIClient)(nil)

type openAIRequest struct {
	Model    string               `json:"model"`
	Messages []schema.ChatMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAIClient(apiKey, baseEndpoint, chatCompletion, model string, timeout time.Duration, extraHeaders map[string]string) *OpenAIClient {
	headers := make(map[string]string, len(extraHeaders)+1)
	for k, v := range extraHeaders {
		headers[k] = v
	}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &OpenAIClient{
		endpoint: strings.TrimRight(baseEndpoint, "/") + chatCompletion,
		model:    stripProviderPrefix(model),
		poster:   newJSONPoster(NameOpenAI, timeout, headers),
	}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, messages []schema.ChatMessage) (string, error) {
	var resp openAIResponse
	if err := c.poster.post(ctx, c.endpoint, openAIRequest{Model: c.model, Messages: messages}, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &schema.UpstreamError{Provider: NameOpenAI, Body: "response has no choices"}
	}
	return strings.TrimSpace(llmutils.StripThink(resp.Choices[0].Message.Content)), nil
}
