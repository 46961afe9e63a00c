package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentrt/internal/config"
	"github.com/haasonsaas/agentrt/pkg/models"
)

func buildSwarmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swarm",
		Short: "Launch and inspect multi-agent swarms",
	}
	cmd.AddCommand(buildSwarmLaunchCmd())
	return cmd
}

func buildSwarmLaunchCmd() *cobra.Command {
	var (
		configPath string
		pattern    string
		maxAgents  int
		timeoutMS  int
	)
	cmd := &cobra.Command{
		Use:   "launch <task>",
		Short: "Launch a swarm and block until it reaches a terminal state",
		Long: `Launch decomposes task across up to max-agents workers coordinated by
--pattern (parallel, pipeline, debate, or review), then blocks printing
the swarm's status until it completes, fails, is cancelled, or times
out.`,
		Args: cobra.MinimumNArgs(1),
		Example: `  agentrt swarm launch "research competitor pricing" --pattern parallel --max-agents 3
  agentrt swarm launch "draft then critique a release announcement" --pattern debate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwarmLaunch(configPath, strings.Join(args, " "), pattern, maxAgents, timeoutMS)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&pattern, "pattern", "parallel", "Coordination pattern: parallel, pipeline, debate, review")
	cmd.Flags().IntVar(&maxAgents, "max-agents", 0, "Maximum worker agents (0 = use configured default)")
	cmd.Flags().IntVar(&timeoutMS, "timeout-ms", 0, "Swarm deadline in milliseconds (0 = use configured default)")
	return cmd
}

func runSwarmLaunch(configPath, task, pattern string, maxAgents, timeoutMS int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("agentrt: loading config: %w", err)
	}
	rt, err := buildRuntime(cfg, nil)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var timeout time.Duration
	if timeoutMS > 0 {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}

	swarmID, err := rt.orchestrator.Launch(ctx, task, models.SwarmPattern(pattern), maxAgents, timeout)
	if err != nil {
		return fmt.Errorf("agentrt: launching swarm: %w", err)
	}
	fmt.Fprintf(os.Stderr, "launched swarm %s, pattern=%s\n", swarmID, pattern)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		snap, err := rt.orchestrator.Get(swarmID)
		if err != nil {
			return fmt.Errorf("agentrt: fetching swarm status: %w", err)
		}
		if !isTerminalStatus(snap.Status) {
			continue
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return err
		}
		if snap.Status != models.SwarmCompleted {
			os.Exit(1)
		}
		return nil
	}
	return nil
}

func isTerminalStatus(status models.SwarmStatus) bool {
	switch status {
	case models.SwarmCompleted, models.SwarmFailed, models.SwarmCancelled, models.SwarmTimeout:
		return true
	default:
		return false
	}
}
