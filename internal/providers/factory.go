package providers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
)

// Params are the raw values needed to construct any schema.ModelClient.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	ProviderName   string // registry name; empty means infer from Model
	APIKey         string
	BaseEndpoint   string
	ChatCompletion string
	Model          string
	Timeout        time.Duration
	ExtraHeaders   map[string]string
}

// Resolve fills unset fields from the provider's registry defaults and
// returns the matching spec.
func Resolve(p Params) (Params, *ProviderSpec, error) {
	spec := FindByName(p.ProviderName)
	if spec == nil && p.ProviderName == "" {
		spec = FindByModel(p.Model)
		if spec == nil {
			spec = FindByName(NameOllama)
		}
	}
	if spec == nil {
		return p, nil, fmt.Errorf("providers: unknown provider %q", p.ProviderName)
	}

	p.ProviderName = spec.Name
	if p.BaseEndpoint == "" {
		p.BaseEndpoint = spec.DefaultBaseEndpoint
	}
	if p.ChatCompletion == "" {
		p.ChatCompletion = spec.DefaultChatCompletion
	}
	if p.Model == "" {
		p.Model = spec.DefaultModel
	}
	if p.APIKey == "" && spec.EnvKey != "" {
		p.APIKey = os.Getenv(spec.EnvKey)
	}
	return p, spec, nil
}

// New creates the schema.ModelClient named by p.ProviderName.
func New(ctx context.Context, p Params) (schema.ModelClient, error) {
	p, spec, err := Resolve(p)
	if err != nil {
		return nil, err
	}

	switch spec.Name {
	case NameGemini:
		c, err := NewGeminiClient(ctx, p.APIKey, p.Model, p.Timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case NameOpenAI:
		return NewOpenAIClient(p.APIKey, p.BaseEndpoint, p.ChatCompletion, p.Model, p.Timeout, p.ExtraHeaders), nil
	default:
		return NewOllamaClient(p.BaseEndpoint, p.ChatCompletion, p.Model, p.Timeout), nil
	}
}
