package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hanviet/hvsearch/internal/mcp"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		transport string
		warmup    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve translate and index_status over MCP",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Stdout carries JSON-RPC messages only; logs go to stderr and the log file.
The index and the models are loaded on the first request unless --warmup
is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g, transport, warmup)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport (default: server.transport)")
	cmd.Flags().BoolVar(&warmup, "warmup", false, "Load the index and models before accepting requests")

	return cmd
}

func runServe(ctx context.Context, g *globalOptions, transport string, warmup bool) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	logger := slog.Default()
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	if warmup {
		if err := engine.Warmup(ctx); err != nil {
			// The engine retries on the first request.
			logger.Warn("warmup_failed", slog.String("error", err.Error()))
		}
	}

	server, err := mcp.NewServer(engine, logger)
	if err != nil {
		return err
	}
	return server.Serve(ctx, transport)
}
