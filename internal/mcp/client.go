package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/recipebox/recipebox/internal/schema"
	"github.com/recipebox/recipebox/internal/shared/llmutils"
)

// Client owns one stdio tool server process and speaks line-delimited
// JSON-RPC 2.0 to it. One request is in flight at a time: mu is held across
// the write and the read of each exchange.
type Client struct {
	name string
	cfg  ServerConfig

	mu      sync.Mutex
	current atomic.Pointer[process]

	catalogMu sync.RWMutex
	tools     []schema.ToolDefinition
}

// process is one spawned instance. Request ids restart at 1 for every instance.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	quit   chan struct{}
	nextID int64

	// Set by readLoop before done is closed.
	exitErr error
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// NewClient returns a stopped client for the named server.
func NewClient(name string, cfg ServerConfig) *Client {
	return &Client{name: name, cfg: cfg}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.name }

// Running reports whether a subprocess is up.
func (c *Client) Running() bool {
	p := c.current.Load()
	return p != nil && !p.exited()
}

// Tools returns the catalog fetched during the last successful Start.
func (c *Client) Tools() []schema.ToolDefinition {
	c.catalogMu.RLock()
	defer c.catalogMu.RUnlock()
	out := make([]schema.ToolDefinition, len(c.tools))
	copy(out, c.tools)
	return out
}

// Start spawns the subprocess, performs the initialize handshake and caches
// the tool catalog. It is a no-op while the process is running; a process
// that exited is replaced.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p := c.current.Load(); p != nil {
		if !p.exited() {
			return nil
		}
		slog.Warn("Tool server exited, restarting", "server", c.name, "err", p.exitErr)
		p.stdin.Close() //nolint:errcheck
		c.current.Store(nil)
	}

	p, err := c.spawn()
	if err != nil {
		return err
	}
	c.current.Store(p)

	tools, err := c.handshake(ctx, p)
	if err != nil {
		c.killLocked(p)
		return fmt.Errorf("tool server %q: handshake: %w", c.name, err)
	}

	c.catalogMu.Lock()
	c.tools = tools
	c.catalogMu.Unlock()

	slog.Info("Tool server started", "server", c.name, "pid", p.cmd.Process.Pid, "tools", len(tools))
	return nil
}

// Stop kills the subprocess. Termination failures are logged, never returned.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p := c.current.Load(); p != nil {
		c.killLocked(p)
		slog.Info("Tool server stopped", "server", c.name)
	}
}

// Call sends one request and returns its result. A response without a result
// field yields JSON null.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.current.Load()
	if p == nil {
		return nil, fmt.Errorf("tool server %q: %w", c.name, ErrNotStarted)
	}
	return c.callLocked(ctx, p, method, params)
}

// Notify sends a notification. No id is allocated and nothing is read back.
func (c *Client) Notify(method string, params any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.current.Load()
	if p == nil {
		return fmt.Errorf("tool server %q: %w", c.name, ErrNotStarted)
	}
	return c.writeLocked(p, request{JSONRPC: jsonrpcVersion, Method: method, Params: params})
}

// ExecuteTool invokes tools/call and returns the first text block of the
// result. A result without a text block is returned as indented JSON. A
// result flagged isError is returned as a *ToolError.
func (c *Client) ExecuteTool(ctx context.Context, call schema.ToolCall) (string, error) {
	args := call.Arguments
	if args == nil {
		args = schema.Object{}
	}
	raw, err := c.Call(ctx, "tools/call", map[string]any{
		"name":      call.Name,
		"arguments": args,
	})
	if err != nil {
		return "", err
	}

	var result toolsCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return prettyJSON(raw), nil
	}
	text, found := "", false
	for _, block := range result.Content {
		if block.Type == "text" {
			text, found = block.Text, true
			break
		}
	}
	if !found {
		text = prettyJSON(raw)
	}
	if result.IsError {
		return "", &ToolError{Tool: call.Name, Message: text}
	}
	return text, nil
}

// ---------------------------------------------------------------------------
// Process lifecycle
// ---------------------------------------------------------------------------

func (c *Client) spawn() (*process, error) {
	if c.cfg.Command == "" {
		return nil, fmt.Errorf("tool server %q: no command configured", c.name)
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range c.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = &stderrLogger{server: c.name}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tool server %q: start: %w", c.name, err)
	}

	p := &process{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
	}
	go p.readLoop(stdout)
	return p, nil
}

// readLoop forwards non-blank stdout lines until EOF, then reaps the process.
func (p *process) readLoop(stdout io.Reader) {
	r := bufio.NewReaderSize(stdout, 64*1024)
	var readErr error
	for {
		line, err := r.ReadString('\n')
		if s := strings.TrimSpace(line); s != "" {
			select {
			case p.lines <- s:
			case <-p.quit:
			}
		}
		if err != nil {
			readErr = err
			break
		}
	}

	waitErr := p.cmd.Wait()
	switch {
	case waitErr != nil:
		p.exitErr = waitErr
	case errors.Is(readErr, io.EOF):
		p.exitErr = io.EOF
	default:
		p.exitErr = readErr
	}
	close(p.done)
}

func (c *Client) handshake(ctx context.Context, p *process) ([]schema.ToolDefinition, error) {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "recipebox", "version": "1.0"},
	}
	if _, err := c.callLocked(ctx, p, "initialize", params); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := c.writeLocked(p, request{JSONRPC: jsonrpcVersion, Method: "notifications/initialized"}); err != nil {
		return nil, err
	}

	var tools []schema.ToolDefinition
	cursor := ""
	for {
		var params any
		if cursor != "" {
			params = map[string]any{"cursor": cursor}
		}
		raw, err := c.callLocked(ctx, p, "tools/list", params)
		if err != nil {
			return nil, fmt.Errorf("tools/list: %w", err)
		}
		var page toolsListResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("tools/list: decode: %w", err)
		}
		for _, t := range page.Tools {
			if t.Name == "" {
				continue
			}
			inputSchema := schema.Object(t.InputSchema)
			if inputSchema == nil {
				inputSchema = schema.EmptyInputSchema()
			}
			tools = append(tools, schema.ToolDefinition{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: inputSchema,
			})
			slog.Debug("Tool registered", "server", c.name, "tool", t.Name)
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			return tools, nil
		}
		cursor = page.NextCursor
	}
}

// killLocked terminates p and waits briefly for it to be reaped.
func (c *Client) killLocked(p *process) {
	close(p.quit)
	p.stdin.Close() //nolint:errcheck
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		slog.Warn("Tool server kill failed", "server", c.name, "err", err)
	}
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		slog.Warn("Tool server did not exit after kill", "server", c.name)
	}
	c.current.CompareAndSwap(p, nil)
}

// ---------------------------------------------------------------------------
// JSON-RPC plumbing
// ---------------------------------------------------------------------------

func (c *Client) writeLocked(p *process, req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", req.Method, err)
	}
	if _, err := fmt.Fprintf(p.stdin, "%s\n", data); err != nil {
		return &ProcessExitedError{Server: c.name, Err: err}
	}
	return nil
}

func (c *Client) callLocked(ctx context.Context, p *process, method string, params any) (json.RawMessage, error) {
	if p.exited() {
		return nil, &ProcessExitedError{Server: c.name, Err: p.exitErr}
	}

	p.nextID++
	id := p.nextID
	if err := c.writeLocked(p, request{JSONRPC: jsonrpcVersion, ID: &id, Method: method, Params: params}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.cfg.responseTimeout())
	defer timer.Stop()

	for {
		select {
		case line := <-p.lines:
			result, skip, err := c.decodeResponse(line, id)
			if skip {
				continue
			}
			return result, err
		case <-p.done:
			return nil, &ProcessExitedError{Server: c.name, Err: p.exitErr}
		case <-timer.C:
			return nil, fmt.Errorf("tool server %q: %s (id %d) after %s: %w",
				c.name, method, id, c.cfg.responseTimeout(), ErrNotResponding)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// decodeResponse parses one line as the response to request id. skip is set
// for server notifications and for late responses to abandoned requests.
func (c *Client) decodeResponse(line string, id int64) (result json.RawMessage, skip bool, err error) {
	var resp response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, false, &ProtocolError{Server: c.name, Line: llmutils.Truncate(line, 200), Err: err}
	}

	if len(resp.ID) == 0 || string(resp.ID) == "null" {
		if resp.Method != "" {
			slog.Debug("Tool server notification", "server", c.name, "method", resp.Method)
			return nil, true, nil
		}
		if resp.Error == nil {
			return nil, false, &ProtocolError{Server: c.name, Line: llmutils.Truncate(line, 200), Err: errors.New("response has no id")}
		}
	} else {
		var got int64
		if err := json.Unmarshal(resp.ID, &got); err != nil {
			return nil, false, &ProtocolError{Server: c.name, Line: llmutils.Truncate(line, 200), Err: fmt.Errorf("non-numeric id: %w", err)}
		}
		if got < id {
			slog.Warn("Discarding late tool server response", "server", c.name, "id", got, "want", id)
			return nil, true, nil
		}
		if got != id {
			return nil, false, &ProtocolError{Server: c.name, Line: llmutils.Truncate(line, 200), Err: fmt.Errorf("response id %d, want %d", got, id)}
		}
	}

	if resp.Error != nil {
		return nil, false, &RPCError{
			Server:  c.name,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		}
	}
	if len(resp.Result) == 0 {
		return json.RawMessage("null"), false, nil
	}
	return resp.Result, false, nil
}

func prettyJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// stderrLogger forwards a tool server's stderr to the debug log.
type stderrLogger struct {
	server string
}

func (w *stderrLogger) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		if line != "" {
			slog.Debug("Tool server stderr", "server", w.server, "line", line)
		}
	}
	return len(b), nil
}
