package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentrt/internal/classifier"
	"github.com/haasonsaas/agentrt/internal/config"
)

func buildClassifyCmd() *cobra.Command {
	var (
		configPath string
		channel    string
	)

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a message and print its Signal",
		Long: `Run the Signal Classifier over the given text and print the resulting
Signal as JSON. The Noise Filter's verdict is reported on stderr when the
message would be filtered; the Agent Loop is not run.`,
		Args: cobra.MinimumNArgs(1),
		Example: `  agentrt classify "what's the status of the deploy"
  agentrt classify --channel slack "can you restart the worker"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(configPath, channel, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&channel, "channel", "cli", "Channel name the message arrived on")
	return cmd
}

func runClassify(configPath, channel, text string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("agentrt: loading config: %w", err)
	}

	cls := classifier.New()
	signal := cls.Classify(text, channel, time.Now())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(signal); err != nil {
		return err
	}

	noiseFilter := classifier.NewNoiseFilter(classifier.FilterConfig{Threshold: cfg.Noise.Threshold})
	decision := noiseFilter.Apply(context.Background(), signal)
	if !decision.Pass {
		fmt.Fprintln(os.Stderr, "would be filtered as noise")
	}
	return nil
}
