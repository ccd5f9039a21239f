package providers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/recipebox/recipebox/internal/schema"
)

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	ProviderName string // registry name, e.g. "openrouter", "anthropic"
	Format       Format // optional; overrides the registry format
	APIKey       string
	APIBase      string
	Model        string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	ExtraHeaders map[string]string
}

// New creates the provider variant for p's wire format.
func New(p Params) (schema.LLMProvider, error) {
	spec := FindByName(p.ProviderName)

	format := p.Format
	if format == "" && spec != nil {
		format = spec.Format
	}
	if format == "" {
		return nil, fmt.Errorf("unknown provider %q (known: %s)", p.ProviderName, strings.Join(Names(), ", "))
	}

	base := p.APIBase
	if base == "" && spec != nil {
		base = spec.DefaultAPIBase
	}
	if base == "" {
		return nil, fmt.Errorf("provider %q: apiBase is required", p.ProviderName)
	}
	if p.Model == "" {
		return nil, fmt.Errorf("provider %q: model is required", p.ProviderName)
	}

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	name := p.ProviderName
	if name == "" {
		name = string(format)
	}

	hc := httpClient{
		name:         name,
		apiKey:       p.APIKey,
		apiBase:      strings.TrimRight(base, "/"),
		model:        p.Model,
		maxTokens:    maxTokens,
		temperature:  p.Temperature,
		extraHeaders: p.ExtraHeaders,
		client:       &http.Client{Timeout: timeout},
	}

	switch format {
	case FormatAnthropic:
		return &AnthropicProvider{httpClient: hc}, nil
	case FormatOpenAI:
		return &OpenAIProvider{httpClient: hc}, nil
	}
	return nil, fmt.Errorf("provider %q: unsupported format %q", p.ProviderName, format)
}
