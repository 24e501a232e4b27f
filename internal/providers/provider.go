// Package providers implements schema.ModelClient for the supported model
// backends: Ollama and OpenAI-compatible endpoints over plain HTTP, and
// Gemini through the genai SDK.
package providers

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/crystaldolphin/friday/internal/schema"
)

const (
	NameOllama = "ollama"
	NameOpenAI = "openai"
	NameGemini = "gemini"
)

// upstreamError converts a transport failure into an *schema.UpstreamError,
// marking timeouts so callers can tell them apart.
func upstreamError(provider string, err error) error {
	if isTimeout(err) {
		err = errors.Join(schema.ErrTimeout, err)
	}
	return &schema.UpstreamError{Provider: provider, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// friendlyHTTPError shortens an error body for display.
func friendlyHTTPError(code int, body []byte) string {
	if code == 429 {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
