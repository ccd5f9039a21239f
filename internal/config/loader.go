package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables applied on top of the file.
const (
	EnvAPIKey     = "RECIPEBOX_API_KEY"
	EnvModel      = "RECIPEBOX_MODEL"
	EnvHTTPAPIKey = "RECIPEBOX_HTTP_API_KEY"
)

// ConfigPath returns the default configuration file path: ~/.recipebox/config.json.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// DataDir returns the recipebox data directory: ~/.recipebox.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recipebox"
	}
	return filepath.Join(home, ".recipebox")
}

// Load reads and parses the config file at path, then applies environment
// overrides. If path is empty, ConfigPath() is used. A missing file yields
// the defaults; on parse failure it logs a warning and uses the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Debug("Config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := decode(path, data, &cfg); err != nil {
			slog.Warn("Failed to parse config, using defaults", "path", path, "err", err)
			cfg = DefaultConfig()
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

// Save writes cfg to path as indented JSON, or YAML for .yaml/.yml paths.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// applyEnv overlays environment variables. The provider's conventional key
// variable (e.g. ANTHROPIC_API_KEY) fills an empty apiKey.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv(EnvHTTPAPIKey); v != "" {
		c.Server.APIKey = v
	}
	if c.Provider.APIKey == "" {
		if spec := c.ProviderSpec(); spec != nil && spec.EnvKey != "" {
			c.Provider.APIKey = os.Getenv(spec.EnvKey)
		}
	}
	if c.ToolServers == nil {
		c.ToolServers = map[string]ToolServerConfig{}
	}
}
