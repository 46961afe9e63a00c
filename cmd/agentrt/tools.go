package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentrt/internal/config"
	"github.com/haasonsaas/agentrt/internal/tools"
	"github.com/haasonsaas/agentrt/pkg/models"
)

func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and invoke registered tools",
	}
	cmd.AddCommand(buildToolsListCmd(), buildToolsExecCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered tool and its JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsList(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML configuration file")
	return cmd
}

func runToolsList(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("agentrt: loading config: %w", err)
	}
	rt, err := buildRuntime(cfg, nil)
	if err != nil {
		return err
	}

	snapshot := rt.toolRegistry.Snapshot()
	descriptors := make([]models.ToolDescriptor, 0, len(snapshot))
	for _, t := range snapshot {
		descriptors = append(descriptors, models.ToolDescriptor{Name: t.Name, Description: t.Description, Schema: t.Schema})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(descriptors)
}

func buildToolsExecCmd() *cobra.Command {
	var (
		configPath string
		argsJSON   string
	)
	cmd := &cobra.Command{
		Use:   "exec <tool-name>",
		Short: "Execute a registered tool directly, bypassing the Agent Loop",
		Args:  cobra.ExactArgs(1),
		Example: `  agentrt tools exec file_read --args '{"path":"README.md"}'
  agentrt tools exec shell_execute --args '{"command":"ls -la"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsExec(configPath, args[0], argsJSON)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&argsJSON, "args", "{}", "JSON arguments for the tool")
	return cmd
}

func runToolsExec(configPath, toolName, argsJSON string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("agentrt: loading config: %w", err)
	}
	rt, err := buildRuntime(cfg, nil)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.Tools.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = tools.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := rt.dispatcher.Dispatch(ctx, toolName, json.RawMessage(argsJSON))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if result.IsError {
		os.Exit(1)
	}
	return nil
}
