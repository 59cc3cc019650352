package main

import (
	"fmt"

	"github.com/ShayCichocki/arbor/internal/config"
	"github.com/ShayCichocki/arbor/internal/worker"
)

// createGateway builds the worker gateway selected by configuration.
// "cli" runs the claude CLI as a subprocess; "api" calls the Anthropic
// API directly (optionally via Bedrock).
func createGateway(cfg *config.Config) (worker.Gateway, error) {
	switch cfg.Worker.Mode {
	case "", "cli":
		if err := worker.CheckCLI(cfg.Worker.Binary); err != nil {
			return nil, fmt.Errorf("claude CLI not found in PATH\n\n" +
				"Arbor's cli worker mode requires the Claude Code CLI.\n\n" +
				"Install it with:\n" +
				"  npm install -g @anthropic-ai/claude-code\n\n" +
				"Or switch to direct API calls:\n" +
				"  arbor config worker.mode api")
		}
		gw := worker.NewCLIGateway(cfg.Worker.Model)
		if cfg.Worker.Binary != "" {
			gw.Binary = cfg.Worker.Binary
		}
		return gw, nil

	case "api":
		return worker.NewAPIGateway(worker.APIConfig{
			Model:      cfg.Worker.Model,
			APIKey:     cfg.Worker.APIKey,
			UseBedrock: cfg.Worker.UseBedrock,
			AWSRegion:  cfg.Worker.AWSRegion,
			AWSProfile: cfg.Worker.AWSProfile,
		})

	default:
		return nil, fmt.Errorf("unknown worker mode %q (expected cli or api)", cfg.Worker.Mode)
	}
}
