package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/recipebox/recipebox/internal/schema"
)

// Manager owns one Client per configured tool server and presents them to the
// agent as a single schema.ToolExecutor.
type Manager struct {
	clients []*Client // sorted by name

	mu      sync.RWMutex
	catalog []schema.ToolDefinition
	routes  map[string]*Client
}

var _ schema.ToolExecutor = (*Manager)(nil)

// ServerStatus is a snapshot of one tool server for status reporting.
type ServerStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Tools   int    `json:"tools"`
}

// NewManager returns a Manager for the given servers. Nothing is spawned
// until Start.
func NewManager(servers map[string]ServerConfig) *Manager {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &Manager{routes: map[string]*Client{}}
	for _, name := range names {
		m.clients = append(m.clients, NewClient(name, servers[name]))
	}
	return m
}

// Start brings up every server concurrently and rebuilds the merged catalog
// from those that are running. A failing server is logged and left out; the
// first failure is returned.
func (m *Manager) Start(ctx context.Context) error {
	var g errgroup.Group
	for _, c := range m.clients {
		c := c
		g.Go(func() error {
			if err := c.Start(ctx); err != nil {
				slog.Error("Tool server start failed", "server", c.Name(), "err", err)
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	m.rebuildCatalog()
	return err
}

// Stop stops every server.
func (m *Manager) Stop() {
	for _, c := range m.clients {
		c.Stop()
	}
}

// Tools returns the merged catalog presented to the model.
func (m *Manager) Tools() []schema.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schema.ToolDefinition, len(m.catalog))
	copy(out, m.catalog)
	return out
}

// ExecuteTool routes call to the server that advertised the tool.
func (m *Manager) ExecuteTool(ctx context.Context, call schema.ToolCall) (string, error) {
	m.mu.RLock()
	c, ok := m.routes[call.Name]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	return c.ExecuteTool(ctx, call)
}

// Status reports every configured server in name order.
func (m *Manager) Status() []ServerStatus {
	out := make([]ServerStatus, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, ServerStatus{Name: c.Name(), Running: c.Running(), Tools: len(c.Tools())})
	}
	return out
}

// rebuildCatalog merges running servers' tools in server-name order. The first
// server to advertise a name owns it.
func (m *Manager) rebuildCatalog() {
	var catalog []schema.ToolDefinition
	routes := map[string]*Client{}

	for _, c := range m.clients {
		if !c.Running() {
			continue
		}
		for _, def := range c.Tools() {
			if owner, dup := routes[def.Name]; dup {
				slog.Warn("Duplicate tool name ignored", "tool", def.Name, "server", c.Name(), "owner", owner.Name())
				continue
			}
			routes[def.Name] = c
			catalog = append(catalog, def)
		}
	}

	m.mu.Lock()
	m.catalog = catalog
	m.routes = routes
	m.mu.Unlock()

	slog.Info("Tool catalog ready", "servers", len(m.clients), "tools", len(catalog))
}
