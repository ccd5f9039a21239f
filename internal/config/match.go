package config

import (
	"os"
	"strings"

	"github.com/recipebox/recipebox/internal/providers"
)

// ProviderName resolves which registry entry serves the configured model.
//
// Priority order:
//  1. Explicit provider.name
//  2. Provider prefix in the model string (e.g. "deepseek/deepseek-chat" → deepseek)
//  3. First registry provider whose conventional API key variable is set
//  4. "anthropic"
func (c *Config) ProviderName() string {
	if c.Provider.Name != "" {
		return c.Provider.Name
	}

	prefix, _, found := strings.Cut(strings.ToLower(c.Provider.Model), "/")
	if found {
		prefix = strings.ReplaceAll(prefix, "-", "_")
		if providers.FindByName(prefix) != nil {
			return prefix
		}
	}

	for _, spec := range providers.PROVIDERS {
		if spec.EnvKey != "" && os.Getenv(spec.EnvKey) != "" {
			return spec.Name
		}
	}
	return "anthropic"
}

// ProviderSpec returns the registry entry for ProviderName, or nil.
func (c *Config) ProviderSpec() *providers.ProviderSpec {
	return providers.FindByName(c.ProviderName())
}

// ProviderParams extracts the values providers.New needs. A provider prefix
// that selected the provider is stripped from the model name.
func (c *Config) ProviderParams() providers.Params {
	name := c.ProviderName()
	model := c.Provider.Model
	if c.Provider.Name == "" {
		if prefix, rest, found := strings.Cut(model, "/"); found && strings.ReplaceAll(strings.ToLower(prefix), "-", "_") == name {
			model = rest
		}
	}
	return providers.Params{
		ProviderName: name,
		Format:       providers.Format(c.Provider.Format),
		APIKey:       c.Provider.APIKey,
		APIBase:      c.Provider.APIBase,
		Model:        model,
		MaxTokens:    c.Provider.MaxTokens,
		Temperature:  c.Provider.Temperature,
		Timeout:      c.Provider.Timeout(),
		ExtraHeaders: c.Provider.ExtraHeaders,
	}
}
