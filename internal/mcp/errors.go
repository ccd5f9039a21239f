package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned when a call is made before Start succeeded.
	ErrNotStarted = errors.New("tool server not started")

	// ErrNotResponding is returned when no response line arrived within the
	// configured response timeout. The process may still be alive.
	ErrNotResponding = errors.New("tool server not responding")

	// ErrUnknownTool is returned by Manager when no server exposes the tool.
	ErrUnknownTool = errors.New("unknown tool")
)

// ProcessExitedError reports that the subprocess went away: a write to its
// stdin failed or its stdout reached EOF.
type ProcessExitedError struct {
	Server string
	Err    error
}

func (e *ProcessExitedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tool server %q exited", e.Server)
	}
	return fmt.Sprintf("tool server %q exited: %v", e.Server, e.Err)
}

func (e *ProcessExitedError) Unwrap() error { return e.Err }

// ProtocolError reports a response line that is not a usable JSON-RPC response.
type ProtocolError struct {
	Server string
	Line   string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("tool server %q: malformed response %q: %v", e.Server, e.Line, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Server  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("tool server %q: rpc error %d: %s", e.Server, e.Code, e.Message)
}

// ToolError is a tools/call result flagged with isError by the server. The
// message is the tool's own text output.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}
