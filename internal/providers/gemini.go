package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/crystaldolphin/friday/internal/schema"
)

// GeminiClient calls the Gemini API through the genai SDK. System messages
// are folded into the request's system instruction; assistant turns map to
// the "model" role.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

var _ schema.ModelClient = (*GeminiClient)(nil)

// NewGeminiClient creates the SDK client. An empty apiKey lets genai read
// GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &schema.UpstreamError{Provider: NameGemini, Err: err}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GeminiClient{client: client, model: stripProviderPrefix(model), timeout: timeout}, nil
}

func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) Complete(ctx context.Context, messages []schema.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	system, contents := toGenaiContents(messages)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", geminiError(err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func toGenaiContents(messages []schema.ChatMessage) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case schema.RoleSystem:
			system = append(system, m.Content)
		case schema.RoleAssistant:
			contents = append(contents, &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
				Role:  genai.RoleModel,
			})
		default:
			contents = append(contents, &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
				Role:  genai.RoleUser,
			})
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &schema.UpstreamError{Provider: NameGemini, StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &schema.UpstreamError{Provider: NameGemini, StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message, Err: err}
	}
	return upstreamError(NameGemini, err)
}
