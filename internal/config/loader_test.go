package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearEnv blanks every variable Load consults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvModel, EnvHTTPAPIKey, "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY", "DEEPSEEK_API_KEY", "GROQ_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoad_NonExistent(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Provider.Model != def.Provider.Model {
		t.Errorf("expected default model %q, got %q", def.Provider.Model, cfg.Provider.Model)
	}
	if cfg.Session.TTLHours != 12 || cfg.Session.Capacity != 200 {
		t.Errorf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Agent.MaxToolRounds != 10 {
		t.Errorf("expected maxToolRounds 10, got %d", cfg.Agent.MaxToolRounds)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"provider": map[string]any{
			"name":      "openai",
			"model":     "gpt-4o",
			"maxTokens": 2048,
		},
		"toolServers": map[string]any{
			"recipes": map[string]any{
				"command": "recipe-tools",
				"args":    []string{"--db", "recipes.db"},
				"env":     map[string]string{"RECIPE_USER": "1"},
			},
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.Name != "openai" || cfg.Provider.Model != "gpt-4o" {
		t.Errorf("unexpected provider: %+v", cfg.Provider)
	}
	if cfg.Provider.MaxTokens != 2048 {
		t.Errorf("expected maxTokens 2048, got %d", cfg.Provider.MaxTokens)
	}
	ts, ok := cfg.ToolServers["recipes"]
	if !ok || ts.Command != "recipe-tools" || len(ts.Args) != 2 || ts.Env["RECIPE_USER"] != "1" {
		t.Errorf("unexpected tool server: %+v", cfg.ToolServers)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
provider:
  name: deepseek
  model: deepseek-chat
session:
  ttlHours: 1
toolServers:
  web:
    command: recipebox
    args: [webfetch-server]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Name != "deepseek" || cfg.Session.TTLHours != 1 {
		t.Errorf("YAML not applied: %+v %+v", cfg.Provider, cfg.Session)
	}
	if cfg.Session.Capacity != 200 {
		t.Errorf("unset YAML fields should keep defaults, capacity = %d", cfg.Session.Capacity)
	}
	if cfg.ToolServers["web"].Args[0] != "webfetch-server" {
		t.Errorf("tool servers = %+v", cfg.ToolServers)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error for invalid JSON (falls back to default), got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Provider.Model != def.Provider.Model {
		t.Errorf("expected default model %q, got %q", def.Provider.Model, cfg.Provider.Model)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "sk-env")
	t.Setenv(EnvModel, "claude-haiku")
	t.Setenv(EnvHTTPAPIKey, "http-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "sk-env" || cfg.Provider.Model != "claude-haiku" || cfg.Server.APIKey != "http-secret" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Provider, cfg.Server)
	}
}

func TestLoad_ProviderEnvKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "sk-ant" {
		t.Errorf("expected key from ANTHROPIC_API_KEY, got %q", cfg.Provider.APIKey)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{"config.json", "config.yml"} {
		path := filepath.Join(t.TempDir(), name)

		original := DefaultConfig()
		original.Provider.Model = "gpt-4o-mini"
		original.Provider.MaxTokens = 1234
		original.ToolServers["web"] = ToolServerConfig{Command: "recipebox", Args: []string{"webfetch-server"}}

		if err := Save(&original, path); err != nil {
			t.Fatalf("%s: Save failed: %v", name, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		if loaded.Provider.Model != original.Provider.Model || loaded.Provider.MaxTokens != 1234 {
			t.Errorf("%s: provider mismatch: %+v", name, loaded.Provider)
		}
		if loaded.ToolServers["web"].Command != "recipebox" {
			t.Errorf("%s: tool servers mismatch: %+v", name, loaded.ToolServers)
		}
	}
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %04o", perm)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "config.json")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"provider": map[string]any{"model": "custom/model"},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := DefaultConfig()
	if cfg.Provider.Model != "custom/model" {
		t.Errorf("expected model %q, got %q", "custom/model", cfg.Provider.Model)
	}
	if cfg.Provider.Temperature != def.Provider.Temperature {
		t.Errorf("expected default temperature %v, got %v", def.Provider.Temperature, cfg.Provider.Temperature)
	}
	if cfg.WebFetch.MaxChars != def.WebFetch.MaxChars {
		t.Errorf("expected default maxChars %d, got %d", def.WebFetch.MaxChars, cfg.WebFetch.MaxChars)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.Name = "nope"
	cfg.Provider.Format = "grpc"
	cfg.Session.Capacity = 0
	cfg.Server.Port = 70000
	cfg.Telegram.Enabled = true
	cfg.ToolServers["broken"] = ToolServerConfig{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"Provider.Name", "Provider.Format", "Session.Capacity", "Server.Port", "Telegram.Token", "ToolServers[broken].Command"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %s:\n%s", want, msg)
		}
	}
}
