// Package httpapi exposes the chat service over HTTP and websocket.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/recipebox/recipebox/internal/chat"
	"github.com/recipebox/recipebox/internal/mcp"
	"github.com/recipebox/recipebox/internal/schema"
)

const shutdownTimeout = 5 * time.Second

// Chat is the subset of chat.Service the API needs.
type Chat interface {
	Send(ctx context.Context, conversationID string, blocks []schema.ContentBlock, onProgress func(string)) (chat.Reply, error)
	Reset(conversationID string) bool
	History(conversationID string) ([]schema.Message, bool)
}

// ToolStatus reports tool server health for /healthz. *mcp.Manager
// implements it.
type ToolStatus interface {
	Status() []mcp.ServerStatus
}

// Options configures the listener and access control.
type Options struct {
	Addr        string
	APIKey      string   // empty disables authentication
	CORSOrigins []string // empty allows every origin
}

// Server is the HTTP front end.
type Server struct {
	chat   Chat
	tools  ToolStatus
	opts   Options
	engine *gin.Engine
}

// New builds the router. tools may be nil.
func New(c Chat, tools ToolStatus, opts Options) *Server {
	s := &Server{chat: c, tools: tools, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/healthz", s.health)

	api := r.Group("/api", apiKeyAuth(opts.APIKey))
	api.POST("/chat", s.postChat)
	api.GET("/chat/ws", s.chatSocket)
	api.GET("/chat/:id", s.getHistory)
	api.DELETE("/chat/:id", s.deleteChat)

	s.engine = r
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("HTTP API listening", "addr", s.opts.Addr, "auth", s.opts.APIKey != "")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown incomplete", "err", err)
		}
		slog.Info("HTTP API stopped")
		return nil
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-API-Key")
	return cfg
}

func (s *Server) health(c *gin.Context) {
	tools := []mcp.ServerStatus{}
	if s.tools != nil {
		tools = s.tools.Status()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tools": tools})
}
