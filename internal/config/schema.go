// Package config defines the configuration schema for recipebox.
//
// The file is JSON with camelCase keys, or YAML with the same keys when the
// path ends in .yaml or .yml.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	Name           string            `json:"name" yaml:"name" validate:"omitempty,provider"`
	Format         string            `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=openai anthropic"`
	APIKey         string            `json:"apiKey" yaml:"apiKey"`
	APIBase        string            `json:"apiBase,omitempty" yaml:"apiBase,omitempty" validate:"omitempty,url"`
	Model          string            `json:"model" yaml:"model" validate:"required"`
	MaxTokens      int               `json:"maxTokens" yaml:"maxTokens" validate:"gt=0"`
	Temperature    float64           `json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSeconds int               `json:"timeoutSeconds" yaml:"timeoutSeconds" validate:"gt=0"`
	ExtraHeaders   map[string]string `json:"extraHeaders,omitempty" yaml:"extraHeaders,omitempty"`
}

func defaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Name:           "anthropic",
		Model:          "claude-sonnet-4-5",
		MaxTokens:      4096,
		Temperature:    0.7,
		TimeoutSeconds: 120,
	}
}

// Timeout returns the request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	SystemPrompt  string `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
	MaxToolRounds int    `json:"maxToolRounds" yaml:"maxToolRounds" validate:"gt=0"`
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{MaxToolRounds: 10}
}

// SessionConfig bounds the in-memory conversation store.
type SessionConfig struct {
	TTLHours      int    `json:"ttlHours" yaml:"ttlHours" validate:"gt=0"`
	Capacity      int    `json:"capacity" yaml:"capacity" validate:"gt=0"`
	SweepSchedule string `json:"sweepSchedule" yaml:"sweepSchedule"`
	ArchiveDir    string `json:"archiveDir,omitempty" yaml:"archiveDir,omitempty"`
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{TTLHours: 12, Capacity: 200, SweepSchedule: "@every 10m"}
}

// TTL returns the idle lifetime of a session.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// ArchivePath returns the expanded archive directory, or "" when archiving
// is off.
func (s SessionConfig) ArchivePath() string {
	return expandHome(s.ArchiveDir)
}

// ToolServerConfig describes one stdio tool server.
type ToolServerConfig struct {
	Command                string            `json:"command" yaml:"command" validate:"required"`
	Args                   []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env                    map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	ResponseTimeoutSeconds int               `json:"responseTimeoutSeconds,omitempty" yaml:"responseTimeoutSeconds,omitempty" validate:"gte=0"`
}

// ResponseTimeout returns the per-call response timeout; zero means the
// bridge default.
func (t ToolServerConfig) ResponseTimeout() time.Duration {
	return time.Duration(t.ResponseTimeoutSeconds) * time.Second
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host        string   `json:"host" yaml:"host"`
	Port        int      `json:"port" yaml:"port" validate:"min=1,max=65535"`
	APIKey      string   `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	CORSOrigins []string `json:"corsOrigins,omitempty" yaml:"corsOrigins,omitempty"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{Host: "127.0.0.1", Port: 8080}
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Token          string   `json:"token" yaml:"token" validate:"required_if=Enabled true"`
	AllowFrom      []string `json:"allowFrom" yaml:"allowFrom"`
	Proxy          string   `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
	ReplyToMessage bool     `json:"replyToMessage" yaml:"replyToMessage"`
}

func defaultTelegramConfig() TelegramConfig {
	return TelegramConfig{AllowFrom: []string{}}
}

// WebFetchConfig configures the built-in web retrieval tool server.
type WebFetchConfig struct {
	MaxChars       int    `json:"maxChars" yaml:"maxChars" validate:"gt=0"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds" validate:"gt=0"`
	UserAgent      string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
}

func defaultWebFetchConfig() WebFetchConfig {
	return WebFetchConfig{MaxChars: 20000, TimeoutSeconds: 20}
}

// Timeout returns the fetch timeout.
func (w WebFetchConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// ---- Root config -----------------------------------------------------------

// Config is the root configuration object, loaded from ~/.recipebox/config.json.
type Config struct {
	Provider    ProviderConfig              `json:"provider" yaml:"provider"`
	Agent       AgentConfig                 `json:"agent" yaml:"agent"`
	Session     SessionConfig               `json:"session" yaml:"session"`
	ToolServers map[string]ToolServerConfig `json:"toolServers" yaml:"toolServers" validate:"dive"`
	Server      ServerConfig                `json:"server" yaml:"server"`
	Telegram    TelegramConfig              `json:"telegram" yaml:"telegram"`
	WebFetch    WebFetchConfig              `json:"webfetch" yaml:"webfetch"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Provider:    defaultProviderConfig(),
		Agent:       defaultAgentConfig(),
		Session:     defaultSessionConfig(),
		ToolServers: map[string]ToolServerConfig{},
		Server:      defaultServerConfig(),
		Telegram:    defaultTelegramConfig(),
		WebFetch:    defaultWebFetchConfig(),
	}
}

// expandHome resolves a leading "~/".
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
