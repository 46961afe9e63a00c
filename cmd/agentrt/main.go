// Package main provides the agentrt CLI entry point.
//
// agentrt runs the Signal Classifier, Noise Filter, Session Registry,
// Agent Loop, Event Bus, and Swarm Orchestrator behind both an HTTP API
// and a set of one-shot CLI commands for local use.
//
// # Basic usage
//
// Start the server:
//
//	agentrt serve --config agentrt.yaml
//
// Classify a message without running it through the loop:
//
//	agentrt classify "what's the status of the deploy"
//
// List the registered tools:
//
//	agentrt tools list
//
// Launch a swarm:
//
//	agentrt swarm launch "research and summarise X" --pattern parallel
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentrt",
		Short: "agentrt - signal-filtered multi-session agent runtime",
		Long: `agentrt classifies inbound messages, filters noise, runs a bounded
agent loop per session, fans events out over an event bus, and
coordinates multi-agent swarms for decomposable tasks.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildClassifyCmd(),
		buildToolsCmd(),
		buildSwarmCmd(),
	)

	return rootCmd
}
