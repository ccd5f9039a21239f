package mcp

import "time"

// DefaultResponseTimeout bounds how long a call waits for its response line.
const DefaultResponseTimeout = 60 * time.Second

// ServerConfig holds the launch parameters for a single stdio tool server.
type ServerConfig struct {
	Command string
	Args    []string
	Env     map[string]string

	// ResponseTimeout is how long a call waits for the response line before
	// failing with ErrNotResponding. Zero means DefaultResponseTimeout.
	ResponseTimeout time.Duration
}

func (c ServerConfig) responseTimeout() time.Duration {
	if c.ResponseTimeout > 0 {
		return c.ResponseTimeout
	}
	return DefaultResponseTimeout
}
