package providers

import "strings"

// ProviderSpec is the metadata record for one model backend.
type ProviderSpec struct {
	Name        string   // config value, e.g. "ollama"
	DisplayName string   // shown in `friday status`
	Keywords    []string // model-name keywords used when no provider is configured
	EnvKey      string   // env var consulted when the config has no API key

	DefaultBaseEndpoint   string
	DefaultChatCompletion string
	DefaultModel          string

	NeedsAPIKey bool
}

// Label returns the display name, defaulting to Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// PROVIDERS is the registry. Order is match priority for FindByModel.
var PROVIDERS = []ProviderSpec{
	{
		Name:                  NameOllama,
		DisplayName:           "Ollama",
		Keywords:              []string{"llama", "qwen", "mistral", "phi", "codellama"},
		DefaultBaseEndpoint:   "http://localhost:11434",
		DefaultChatCompletion: "/api/chat",
		DefaultModel:          "llama3.2",
	},
	{
		Name:        NameGemini,
		DisplayName: "Gemini",
		Keywords:    []string{"gemini"},
		EnvKey:      "GEMINI_API_KEY",
		// genai picks its own endpoint; base is informational.
		DefaultBaseEndpoint: "https://generativelanguage.googleapis.com",
		DefaultModel:        "gemini-2.5-flash",
		NeedsAPIKey:         true,
	},
	{
		Name:                  NameOpenAI,
		DisplayName:           "OpenAI-compatible",
		Keywords:              []string{"gpt", "o1", "o3", "deepseek"},
		EnvKey:                "OPENAI_API_KEY",
		DefaultBaseEndpoint:   "https://api.openai.com/v1",
		DefaultChatCompletion: "/chat/completions",
		DefaultModel:          "gpt-4o-mini",
		NeedsAPIKey:           true,
	},
}

// FindByName returns the spec whose Name equals name (case-insensitive).
func FindByName(name string) *ProviderSpec {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// FindByModel matches a provider by model-name keyword. An explicit
// "provider/model" prefix wins over keywords.
func FindByModel(model string) *ProviderSpec {
	lower := strings.ToLower(model)
	if prefix, _, ok := strings.Cut(lower, "/"); ok {
		if s := FindByName(prefix); s != nil {
			return s
		}
	}
	for i := range PROVIDERS {
		for _, kw := range PROVIDERS[i].Keywords {
			if strings.Contains(lower, kw) {
				return &PROVIDERS[i]
			}
		}
	}
	return nil
}

// stripProviderPrefix removes a leading "<provider>/" that names a
// registered provider, so "ollama/llama3" reaches the API as "llama3".
func stripProviderPrefix(model string) string {
	prefix, rest, ok := strings.Cut(model, "/")
	if ok && FindByName(prefix) != nil {
		return rest
	}
	return model
}
