package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recipebox/recipebox/internal/config"
	"github.com/recipebox/recipebox/internal/webfetch"
)

var webfetchCmd = &cobra.Command{
	Use:   "webfetch-server",
	Short: "Serve the web fetch tools over stdio (configure as a tool server)",
	RunE:  runWebfetch,
}

func runWebfetch(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := webfetch.NewFetcher(webfetch.Options{
		MaxChars:  cfg.WebFetch.MaxChars,
		Timeout:   cfg.WebFetch.Timeout(),
		UserAgent: cfg.WebFetch.UserAgent,
	})
	slog.Debug("Webfetch server starting")
	return webfetch.NewServer(f, version).Serve(ctx, os.Stdin, os.Stdout)
}
