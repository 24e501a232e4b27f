package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
)

const defaultTimeout = 120 * time.Second

// jsonPoster sends JSON requests for one provider and maps every failure to
// an *schema.UpstreamError.
type jsonPoster struct {
	provider   string
	headers    map[string]string
	httpClient *http.Client
}

func newJSONPoster(provider string, timeout time.Duration, headers map[string]string) jsonPoster {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return jsonPoster{
		provider:   provider,
		headers:    headers,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p jsonPoster) post(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", p.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", p.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return upstreamError(p.provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return upstreamError(p.provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &schema.UpstreamError{
			Provider:   p.provider,
			StatusCode: resp.StatusCode,
			Body:       friendlyHTTPError(resp.StatusCode, raw),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &schema.UpstreamError{
			Provider: p.provider,
			Body:     friendlyHTTPError(resp.StatusCode, raw),
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}
