package providers

import "strings"

// Format is the upstream chat-completion wire format.
type Format string

const (
	FormatOpenAI    Format = "openai"
	FormatAnthropic Format = "anthropic"
)

// ProviderSpec is the metadata record for one LLM provider.
type ProviderSpec struct {
	Name           string // config name, e.g. "openrouter"
	DisplayName    string // shown in `recipebox status`
	Format         Format
	DefaultAPIBase string
	EnvKey         string // conventional env var for the API key
	IsLocal        bool   // no API key required
}

// Label returns the display name, defaulting to Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// PROVIDERS is the registry. Order is display order.
var PROVIDERS = []ProviderSpec{
	{
		Name:           "anthropic",
		DisplayName:    "Anthropic",
		Format:         FormatAnthropic,
		DefaultAPIBase: "https://api.anthropic.com/v1",
		EnvKey:         "ANTHROPIC_API_KEY",
	},
	{
		Name:           "openai",
		DisplayName:    "OpenAI",
		Format:         FormatOpenAI,
		DefaultAPIBase: "https://api.openai.com/v1",
		EnvKey:         "OPENAI_API_KEY",
	},
	{
		Name:           "openrouter",
		DisplayName:    "OpenRouter",
		Format:         FormatOpenAI,
		DefaultAPIBase: "https://openrouter.ai/api/v1",
		EnvKey:         "OPENROUTER_API_KEY",
	},
	{
		Name:           "deepseek",
		DisplayName:    "DeepSeek",
		Format:         FormatOpenAI,
		DefaultAPIBase: "https://api.deepseek.com/v1",
		EnvKey:         "DEEPSEEK_API_KEY",
	},
	{
		Name:           "groq",
		DisplayName:    "Groq",
		Format:         FormatOpenAI,
		DefaultAPIBase: "https://api.groq.com/openai/v1",
		EnvKey:         "GROQ_API_KEY",
	},
	{
		Name:           "vllm",
		DisplayName:    "vLLM/Local",
		Format:         FormatOpenAI,
		DefaultAPIBase: "http://localhost:8000/v1",
		IsLocal:        true,
	},
	{
		Name:        "custom",
		DisplayName: "Custom",
		Format:      FormatOpenAI,
	},
}

// FindByName returns the ProviderSpec whose Name equals name (case-insensitive).
func FindByName(name string) *ProviderSpec {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// Names lists registry names in order.
func Names() []string {
	out := make([]string, len(PROVIDERS))
	for i, s := range PROVIDERS {
		out[i] = s.Name
	}
	return out
}
