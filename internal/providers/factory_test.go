package providers

import "testing"

func TestNew_SelectsFormat(t *testing.T) {
	cases := map[string]string{
		"anthropic":  "*providers.AnthropicProvider",
		"openai":     "*providers.OpenAIProvider",
		"openrouter": "*providers.OpenAIProvider",
		"deepseek":   "*providers.OpenAIProvider",
	}
	for name, want := range cases {
		p, err := New(Params{ProviderName: name, Model: "m"})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := typeName(p); got != want {
			t.Errorf("%s: got %s, want %s", name, got, want)
		}
	}
}

func TestNew_FormatOverride(t *testing.T) {
	p, err := New(Params{ProviderName: "custom", Format: FormatAnthropic, APIBase: "http://proxy.local/v1", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*AnthropicProvider); !ok {
		t.Errorf("format override ignored: %T", p)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Params{ProviderName: "nope", Model: "m"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(Params{ProviderName: "custom", Model: "m"}); err == nil {
		t.Error("expected error for custom provider without apiBase")
	}
	if _, err := New(Params{ProviderName: "openai"}); err == nil {
		t.Error("expected error for missing model")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *AnthropicProvider:
		return "*providers.AnthropicProvider"
	case *OpenAIProvider:
		return "*providers.OpenAIProvider"
	}
	return "unknown"
}
