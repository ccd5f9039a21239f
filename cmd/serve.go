package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recipebox/recipebox/internal/dependency"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and enabled chat channels",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := container.Agent()
	if err := a.Start(ctx); err != nil {
		// Servers that started still serve their tools.
		slog.Warn("Some tool servers failed to start", "err", err)
	}
	defer a.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.HTTPServer().Run(gctx) })
	g.Go(func() error { return container.Janitor().Run(gctx) })
	if tg := container.Telegram(); tg != nil {
		g.Go(func() error { return tg.Run(gctx) })
	}

	fmt.Printf("%s recipebox serving on %s:%d (model %s). Press Ctrl+C to stop.\n",
		logo, cfg.Server.Host, cfg.Server.Port, container.Provider().Model())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
