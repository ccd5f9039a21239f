package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/recipebox/recipebox/internal/schema"
)

// capturedRequest records what a fake upstream received.
type capturedRequest struct {
	Path    string
	Headers http.Header
	Body    map[string]any
}

// newFakeUpstream serves reply with status to every request and captures the
// last request body.
func newFakeUpstream(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		captured.Path = r.URL.Path
		captured.Headers = r.Header.Clone()
		captured.Body = map[string]any{}
		_ = json.Unmarshal(data, &captured.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestProvider(t *testing.T, name, base string) schema.LLMProvider {
	t.Helper()
	p, err := New(Params{
		ProviderName: name,
		APIKey:       "test-key",
		APIBase:      base,
		Model:        "test-model",
		Timeout:      2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func sampleTools() []schema.ToolDefinition {
	return []schema.ToolDefinition{{
		Name:        "get_recipe",
		Description: "Fetch one recipe",
		InputSchema: schema.Object{
			"type":       "object",
			"properties": map[string]any{"recipe_id": map[string]any{"type": "string"}},
			"required":   []any{"recipe_id"},
		},
	}}
}
