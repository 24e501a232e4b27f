package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/crystaldolphin/friday/internal/memory"
	"github.com/crystaldolphin/friday/internal/providers"
)

// ProviderParams converts the provider section into constructor parameters.
// Registry defaults are not applied here; providers.Resolve does that.
func (c *Config) ProviderParams() providers.Params {
	p := c.Provider
	timeout := time.Duration(p.TimeoutSeconds) * time.Second
	return providers.Params{
		ProviderName:   p.Name,
		APIKey:         p.APIKey,
		BaseEndpoint:   p.BaseEndpoint,
		ChatCompletion: p.ChatCompletion,
		Model:          p.Model,
		Timeout:        timeout,
		ExtraHeaders:   p.ExtraHeaders,
	}
}

// MatchProvider resolves the provider entry and effective parameters for
// the configured model.
//
// Priority order:
//  1. Explicit provider name
//  2. Provider prefix in the model string (e.g. "gemini/gemini-2.5-flash")
//  3. Keyword match in the model name (registry order)
//  4. Fallback: ollama
func (c *Config) MatchProvider() (providers.Params, *providers.ProviderSpec, error) {
	return providers.Resolve(c.ProviderParams())
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	backend := c.Memory.Backend
	if backend != "" && !slices.Contains(memory.Backends, backend) {
		return fmt.Errorf("config: unknown memory backend %q (want one of %v)", backend, memory.Backends)
	}
	if memory.NeedsPersistence(backend) {
		switch c.Storage.Driver {
		case "", DriverSQLite, DriverMongo:
		default:
			return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
		}
	}
	params, spec, err := c.MatchProvider()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if spec.NeedsAPIKey && params.APIKey == "" {
		return fmt.Errorf("config: provider %s needs an API key (set provider.apiKey or %s)", spec.Name, spec.EnvKey)
	}
	if c.Memory.MaxContextMessages <= 0 || c.Memory.MaxTokensPerMessage <= 0 {
		return fmt.Errorf("config: memory limits must be positive (maxContextMessages=%d, maxTokensPerMessage=%d)",
			c.Memory.MaxContextMessages, c.Memory.MaxTokensPerMessage)
	}
	return nil
}
