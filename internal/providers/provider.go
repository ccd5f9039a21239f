// Package providers adapts upstream chat-completion APIs to schema.LLMProvider.
//
// Two wire formats are supported: the OpenAI-compatible chat completions API
// (OpenAI, OpenRouter, DeepSeek, Groq, vLLM, ...) and the Anthropic Messages
// API. The format is fixed when the provider is constructed.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recipebox/recipebox/internal/schema"
)

const (
	defaultMaxTokens = 4096
	defaultTimeout   = 120 * time.Second
)

// httpClient holds the connection settings shared by both wire formats.
type httpClient struct {
	name         string
	apiKey       string
	apiBase      string
	model        string
	maxTokens    int
	temperature  float64
	extraHeaders map[string]string
	client       *http.Client
}

func (c *httpClient) Name() string  { return c.name }
func (c *httpClient) Model() string { return c.model }

// post sends body as JSON to apiBase+path and returns the raw response body.
// Failures map to TransportError, APIError, or (for an unreadable body)
// TransportError.
func (c *httpClient) post(ctx context.Context, path string, body map[string]any, headers map[string]string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: c.name, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: c.name, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Provider: c.name, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// isEmptyAssistant reports an assistant turn with neither text nor tool
// calls. Both APIs reject such a message, so converters leave it out.
func isEmptyAssistant(m schema.Message) bool {
	return len(m.ToolCalls) == 0 && (m.Text == nil || *m.Text == "")
}
