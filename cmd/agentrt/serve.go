package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentrt/internal/budget"
	"github.com/haasonsaas/agentrt/internal/config"
	"github.com/haasonsaas/agentrt/internal/httpapi"
	"github.com/haasonsaas/agentrt/internal/sessions"
)

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentrt HTTP server",
		Long: `Start the agentrt HTTP server with the Agent Loop, Event Bus, and
Swarm Orchestrator all wired from the given configuration file.

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  agentrt serve --config agentrt.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	slog.Info("starting agentrt", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("agentrt: loading config: %w", err)
	}
	slog.Info("configuration loaded",
		"http_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"llm_provider", cfg.LLM.DefaultProvider,
	)

	rt, err := buildRuntime(cfg, slog.Default())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reaper, err := sessions.NewReaper(rt.sessions, "@every 1m", time.Duration(cfg.Session.IdleSessionTTLMS)*time.Millisecond, rt.logger)
	if err != nil {
		return fmt.Errorf("agentrt: building session reaper: %w", err)
	}
	go reaper.Run(ctx)

	rollover, err := budget.NewRolloverTicker(rt.ledger, "@daily", rt.logger)
	if err != nil {
		return fmt.Errorf("agentrt: building budget rollover ticker: %w", err)
	}
	go rollover.Run(ctx)

	server := httpapi.NewServer(httpapi.Config{
		RequireAuth:  cfg.Auth.RequireAuth,
		SharedSecret: cfg.Auth.SharedSecret,
	}, rt.logger)
	server.Sessions = rt.sessions
	server.Loop = rt.loop
	server.Classifier = rt.classifier
	server.NoiseFilter = rt.noiseFilter
	server.Tools = rt.toolRegistry
	server.Dispatcher = rt.dispatcher
	server.Orchestrator = rt.orchestrator
	server.Hub = rt.hub
	server.Metrics = rt.metrics
	server.Tracer = rt.tracer

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := server.Serve(addr); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, draining in-flight requests")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	slog.Info("agentrt stopped gracefully")
	return nil
}
