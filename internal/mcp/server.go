package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/recipebox/recipebox/internal/schema"
)

// ToolHandler executes one tool invocation. A returned error is reported to
// the client as an isError result, not as a JSON-RPC error.
type ToolHandler func(ctx context.Context, args schema.Object) (string, error)

type serverTool struct {
	def     schema.ToolDefinition
	handler ToolHandler
}

// Server is a minimal line-delimited JSON-RPC tool server. Requests are
// handled one at a time in arrival order.
type Server struct {
	name    string
	version string

	mu    sync.RWMutex
	tools []serverTool
	index map[string]int
}

// NewServer returns a server that identifies itself as name/version.
func NewServer(name, version string) *Server {
	return &Server{name: name, version: version, index: map[string]int{}}
}

// AddTool registers a tool. Registering a name twice replaces the handler.
func (s *Server) AddTool(def schema.ToolDefinition, handler ToolHandler) {
	if def.InputSchema == nil {
		def.InputSchema = schema.EmptyInputSchema()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[def.Name]; ok {
		s.tools[i] = serverTool{def: def, handler: handler}
		return
	}
	s.index[def.Name] = len(s.tools)
	s.tools = append(s.tools, serverTool{def: def, handler: handler})
}

// Serve reads requests from r and writes responses to w until r reaches EOF
// or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

// handleLine returns nil for notifications.
func (s *Server) handleLine(ctx context.Context, line []byte) *outgoing {
	var req incoming
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(json.RawMessage("null"), codeParseError, "parse error: "+err.Error())
	}
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"
	if req.Method == "" {
		if isNotification {
			return errorResponse(json.RawMessage("null"), codeInvalidRequest, "missing method")
		}
		return errorResponse(req.ID, codeInvalidRequest, "missing method")
	}
	if isNotification {
		slog.Debug("Notification received", "method", req.Method)
		return nil
	}

	result, rpcErr := s.dispatch(ctx, req.Method, req.Params)
	if rpcErr != nil {
		return &outgoing{JSONRPC: jsonrpcVersion, ID: req.ID, Error: rpcErr}
	}
	return &outgoing{JSONRPC: jsonrpcVersion, ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, *errorObject) {
	switch method {
	case "initialize":
		return map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.name, "version": s.version},
		}, nil

	case "ping":
		return map[string]any{}, nil

	case "tools/list":
		s.mu.RLock()
		defer s.mu.RUnlock()
		tools := make([]wireTool, 0, len(s.tools))
		for _, t := range s.tools {
			tools = append(tools, wireTool{
				Name:        t.def.Name,
				Description: t.def.Description,
				InputSchema: t.def.InputSchema,
			})
		}
		return toolsListResult{Tools: tools}, nil

	case "tools/call":
		var p struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.Name == "" {
			return nil, &errorObject{Code: codeInvalidParams, Message: "tools/call requires a tool name"}
		}
		s.mu.RLock()
		i, ok := s.index[p.Name]
		var tool serverTool
		if ok {
			tool = s.tools[i]
		}
		s.mu.RUnlock()
		if !ok {
			return nil, &errorObject{Code: codeInvalidParams, Message: "unknown tool: " + p.Name}
		}
		return s.runTool(ctx, tool, schema.ParseObject(p.Arguments)), nil
	}

	return nil, &errorObject{Code: codeMethodNotFound, Message: "method not found: " + method}
}

func (s *Server) runTool(ctx context.Context, tool serverTool, args schema.Object) (result toolsCallResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "tool", tool.def.Name, "panic", r)
			result = toolsCallResult{
				Content: []contentBlock{{Type: "text", Text: fmt.Sprintf("internal error: %v", r)}},
				IsError: true,
			}
		}
	}()

	text, err := tool.handler(ctx, args)
	if err != nil {
		return toolsCallResult{Content: []contentBlock{{Type: "text", Text: err.Error()}}, IsError: true}
	}
	return toolsCallResult{Content: []contentBlock{{Type: "text", Text: text}}}
}

func errorResponse(id json.RawMessage, code int, msg string) *outgoing {
	return &outgoing{JSONRPC: jsonrpcVersion, ID: id, Error: &errorObject{Code: code, Message: msg}}
}
