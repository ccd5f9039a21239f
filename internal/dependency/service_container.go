// Package dependency wires recipebox services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"net"
	"strconv"

	"go.uber.org/dig"

	"github.com/recipebox/recipebox/internal/agent"
	"github.com/recipebox/recipebox/internal/channels"
	"github.com/recipebox/recipebox/internal/chat"
	"github.com/recipebox/recipebox/internal/config"
	"github.com/recipebox/recipebox/internal/httpapi"
	"github.com/recipebox/recipebox/internal/mcp"
	"github.com/recipebox/recipebox/internal/providers"
	"github.com/recipebox/recipebox/internal/schema"
	"github.com/recipebox/recipebox/internal/session"
)

// ServiceContainer holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type ServiceContainer struct {
	provider schema.LLMProvider
	tools    *mcp.Manager
	store    *session.Store
	archiver *session.FileArchiver
	janitor  *session.Janitor
	agent    *agent.Agent
	chat     *chat.Service
	http     *httpapi.Server
	telegram *channels.Telegram
}

func (c *ServiceContainer) Provider() schema.LLMProvider    { return c.provider }
func (c *ServiceContainer) ToolManager() *mcp.Manager       { return c.tools }
func (c *ServiceContainer) Sessions() *session.Store        { return c.store }
func (c *ServiceContainer) Archiver() *session.FileArchiver { return c.archiver }
func (c *ServiceContainer) Janitor() *session.Janitor       { return c.janitor }
func (c *ServiceContainer) Agent() *agent.Agent             { return c.agent }
func (c *ServiceContainer) Chat() *chat.Service             { return c.chat }
func (c *ServiceContainer) HTTPServer() *httpapi.Server     { return c.http }
func (c *ServiceContainer) Telegram() *channels.Telegram    { return c.telegram }

// New builds and wires all services from cfg. Nothing is started.
func New(cfg *config.Config) (*ServiceContainer, error) {
	d := dig.New()

	for _, ctor := range []any{
		func() *config.Config { return cfg },
		newProvider,
		newToolManager,
		newArchiver,
		newSessionStore,
		newJanitor,
		newAgent,
		newChatService,
		newHTTPServer,
		newTelegram,
	} {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *ServiceContainer
	err := d.Invoke(func(
		provider schema.LLMProvider,
		tools *mcp.Manager,
		store *session.Store,
		archiver *session.FileArchiver,
		janitor *session.Janitor,
		a *agent.Agent,
		svc *chat.Service,
		srv *httpapi.Server,
		tg *channels.Telegram,
	) {
		result = &ServiceContainer{
			provider: provider,
			tools:    tools,
			store:    store,
			archiver: archiver,
			janitor:  janitor,
			agent:    a,
			chat:     svc,
			http:     srv,
			telegram: tg,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	p := cfg.ProviderParams()
	spec := providers.FindByName(p.ProviderName)
	keyless := spec != nil && (spec.IsLocal || spec.Name == "custom")
	if p.APIKey == "" && !keyless {
		return nil, fmt.Errorf("no API key configured for provider %q: edit %s or set %s",
			p.ProviderName, config.ConfigPath(), config.EnvAPIKey)
	}
	return providers.New(p)
}

func newToolManager(cfg *config.Config) *mcp.Manager {
	servers := make(map[string]mcp.ServerConfig, len(cfg.ToolServers))
	for name, ts := range cfg.ToolServers {
		servers[name] = mcp.ServerConfig{
			Command:         ts.Command,
			Args:            ts.Args,
			Env:             ts.Env,
			ResponseTimeout: ts.ResponseTimeout(),
		}
	}
	return mcp.NewManager(servers)
}

// newArchiver returns nil when archiving is disabled.
func newArchiver(cfg *config.Config) (*session.FileArchiver, error) {
	dir := cfg.Session.ArchivePath()
	if dir == "" {
		return nil, nil
	}
	return session.NewFileArchiver(dir)
}

func newSessionStore(cfg *config.Config, archiver *session.FileArchiver) *session.Store {
	opts := []session.Option{
		session.WithTTL(cfg.Session.TTL()),
		session.WithCapacity(cfg.Session.Capacity),
	}
	if archiver != nil {
		opts = append(opts, session.WithArchiver(archiver))
	}
	return session.NewStore(opts...)
}

func newJanitor(cfg *config.Config, store *session.Store) *session.Janitor {
	return session.NewJanitor(store, cfg.Session.SweepSchedule)
}

func newAgent(cfg *config.Config, p schema.LLMProvider, tools *mcp.Manager) *agent.Agent {
	return agent.New(p, tools, agent.Settings{
		SystemPrompt:  cfg.Agent.SystemPrompt,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
	})
}

func newChatService(a *agent.Agent, store *session.Store) *chat.Service {
	return chat.NewService(a, store)
}

func newHTTPServer(cfg *config.Config, svc *chat.Service, tools *mcp.Manager) *httpapi.Server {
	return httpapi.New(svc, tools, httpapi.Options{
		Addr:        net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		APIKey:      cfg.Server.APIKey,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
}

// newTelegram returns nil when the channel is disabled.
func newTelegram(cfg *config.Config, svc *chat.Service) (*channels.Telegram, error) {
	if !cfg.Telegram.Enabled {
		return nil, nil
	}
	return channels.NewTelegram(cfg.Telegram, svc)
}
