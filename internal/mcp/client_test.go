package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/recipebox/recipebox/internal/schema"
)

func TestClient_CallBeforeStart(t *testing.T) {
	c := NewClient("idle", ServerConfig{Command: "true"})

	_, err := c.Call(context.Background(), "tools/list", nil)
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if err := c.Notify("notifications/initialized", nil); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted from Notify, got %v", err)
	}
	if _, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "x"}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted from ExecuteTool, got %v", err)
	}
	if c.Running() {
		t.Error("client should not report running")
	}
}

func TestClient_StartFetchesCatalog(t *testing.T) {
	c := startHelper(t, "raw")

	if !c.Running() {
		t.Fatal("expected running")
	}
	tools := c.Tools()
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].Name != "get_recipe" || tools[0].Description != "Fetch one recipe" {
		t.Errorf("unexpected tool: %+v", tools[0])
	}
	if req, _ := tools[0].InputSchema["required"].([]any); len(req) != 1 || req[0] != "recipe_id" {
		t.Errorf("input schema not preserved: %v", tools[0].InputSchema)
	}
	if tools[1].InputSchema["type"] != "object" {
		t.Errorf("missing input schema should default to an empty object schema: %v", tools[1].InputSchema)
	}
}

func TestClient_StartIsIdempotent(t *testing.T) {
	cfg, logPath := helperConfig(t, "raw")
	c := NewClient("raw", cfg)
	t.Cleanup(c.Stop)

	for i := 0; i < 2; i++ {
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start #%d: %v", i+1, err)
		}
	}
	if n := countSpawns(t, logPath); n != 1 {
		t.Errorf("expected 1 spawned process, got %d", n)
	}
}

func TestClient_RequestIDsStartAtOneAndIncrease(t *testing.T) {
	c := startHelper(t, "raw")

	// initialize and tools/list used ids 1 and 2.
	want := int64(3)
	for i := 0; i < 3; i++ {
		raw, err := c.Call(context.Background(), "debug/id", nil)
		if err != nil {
			t.Fatal(err)
		}
		var got struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatal(err)
		}
		if got.ID != want {
			t.Errorf("call %d: id = %d, want %d", i, got.ID, want)
		}
		want++
	}
}

func TestClient_ExecuteToolRoundTrip(t *testing.T) {
	c := startHelper(t, "raw")

	out, err := c.ExecuteTool(context.Background(), schema.ToolCall{
		ID:        "1",
		Name:      "get_recipe",
		Arguments: schema.Object{"recipe_id": "abc"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "abc" {
		t.Errorf("got %q, want %q", out, "abc")
	}
}

func TestClient_SkipsServerNotifications(t *testing.T) {
	c := startHelper(t, "raw")

	out, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "list_recipes"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "1. Soup\n2. Bread" {
		t.Errorf("got %q", out)
	}
}

func TestClient_NonTextResultFallsBackToJSON(t *testing.T) {
	c := startHelper(t, "raw")

	out, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "image"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"mimeType": "image/png"`) || !strings.Contains(out, "\n") {
		t.Errorf("expected indented raw result, got %q", out)
	}
}

func TestClient_ToolErrorResult(t *testing.T) {
	c := startHelper(t, "raw")

	_, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "denied"})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Message != "not allowed" {
		t.Fatalf("expected ToolError, got %v", err)
	}
}

func TestClient_ToolErrorWithoutText(t *testing.T) {
	c := startHelper(t, "raw")

	_, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "denied_image"})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if !strings.Contains(toolErr.Message, `"isError": true`) {
		t.Errorf("message should carry the raw result, got %q", toolErr.Message)
	}
}

func TestClient_RPCError(t *testing.T) {
	c := startHelper(t, "raw")

	_, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "fail"})
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32000 || rpcErr.Message != "recipe store unavailable" {
		t.Errorf("unexpected RPCError: %+v", rpcErr)
	}

	// The exchange stays in sync after an error.
	if _, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "get_recipe", Arguments: schema.Object{"recipe_id": "x"}}); err != nil {
		t.Errorf("call after RPC error failed: %v", err)
	}
}

func TestClient_MissingResultIsNull(t *testing.T) {
	c := startHelper(t, "raw")

	raw, err := c.Call(context.Background(), "debug/noresult", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "null" {
		t.Errorf("got %s, want null", raw)
	}
}

func TestClient_MalformedLine(t *testing.T) {
	c := startHelper(t, "raw")

	_, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "garbage"})
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestClient_NotResponding(t *testing.T) {
	c := startHelper(t, "raw")

	_, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "slow"})
	if !errors.Is(err, ErrNotResponding) {
		t.Fatalf("expected ErrNotResponding, got %v", err)
	}
	if !c.Running() {
		t.Error("a slow server is still running")
	}

	// The late reply to the abandoned request is discarded.
	out, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "get_recipe", Arguments: schema.Object{"recipe_id": "abc"}})
	if err != nil {
		t.Fatal(err)
	}
	if out != "abc" {
		t.Errorf("got %q, want abc", out)
	}
}

func TestClient_ProcessCrashDuringCall(t *testing.T) {
	c := startHelper(t, "raw")

	_, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "crash"})
	var exitErr *ProcessExitedError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ProcessExitedError, got %v", err)
	}
	if c.Running() {
		t.Error("crashed server should not report running")
	}

	_, err = c.Call(context.Background(), "tools/list", nil)
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ProcessExitedError on later call, got %v", err)
	}
}

func TestClient_ProcessKilledBetweenStartAndCall(t *testing.T) {
	c := startHelper(t, "raw")

	if err := c.current.Load().cmd.Process.Kill(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !c.Running() })

	_, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "get_recipe"})
	var exitErr *ProcessExitedError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ProcessExitedError, got %v", err)
	}
}

func TestClient_RestartAfterExit(t *testing.T) {
	cfg, logPath := helperConfig(t, "raw")
	c := NewClient("raw", cfg)
	t.Cleanup(c.Stop)

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, _ = c.ExecuteTool(context.Background(), schema.ToolCall{Name: "crash"})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if n := countSpawns(t, logPath); n != 2 {
		t.Errorf("expected 2 spawns, got %d", n)
	}

	// Ids restart with the new instance.
	raw, err := c.Call(context.Background(), "debug/id", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"id":3}` {
		t.Errorf("got %s", raw)
	}
}

func TestClient_StopIsTolerant(t *testing.T) {
	c := startHelper(t, "raw")

	c.Stop()
	c.Stop()
	if c.Running() {
		t.Error("expected stopped")
	}
	if _, err := c.Call(context.Background(), "debug/id", nil); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted after Stop, got %v", err)
	}
}

func TestClient_StartFailsForMissingBinary(t *testing.T) {
	c := NewClient("missing", ServerConfig{Command: "/nonexistent/recipebox-tool"})
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Running() {
		t.Error("expected not running")
	}
}

func TestClient_AgainstServer(t *testing.T) {
	c := startHelper(t, "server")

	tools := c.Tools()
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("unexpected catalog: %+v", tools)
	}
	out, err := c.ExecuteTool(context.Background(), schema.ToolCall{Name: "echo", Arguments: schema.Object{"text": "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if out != "echo: hi" {
		t.Errorf("got %q", out)
	}
}

func countSpawns(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read spawn log: %v", err)
	}
	return len(strings.Fields(string(data)))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
