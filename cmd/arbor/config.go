package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/arbor/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify arbor configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/arbor/config.yaml
Project-specific overrides can be placed in .arbor.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Worker.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("budgets.max_nodes: %d\n", cfg.Budgets.MaxNodes)
	fmt.Printf("budgets.max_depth: %d\n", cfg.Budgets.MaxDepth)
	fmt.Printf("worker.mode: %s\n", cfg.Worker.Mode)
	fmt.Printf("worker.model: %s\n", cfg.Worker.Model)
	fmt.Printf("worker.binary: %s\n", cfg.Worker.Binary)
	fmt.Printf("worker.timeout: %s\n", cfg.Worker.Timeout)
	fmt.Printf("worker.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("worker.use_bedrock: %t\n", cfg.Worker.UseBedrock)
	fmt.Printf("worker.aws_region: %s\n", cfg.Worker.AWSRegion)
	fmt.Printf("worker.aws_profile: %s\n", cfg.Worker.AWSProfile)
	fmt.Printf("workspace.base_dir: %s\n", cfg.Workspace.BaseDir)
	fmt.Printf("workspace.snapshot: %t\n", cfg.Workspace.Snapshot)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "budgets.max_nodes":
		return strconv.Itoa(cfg.Budgets.MaxNodes), nil
	case "budgets.max_depth":
		return strconv.Itoa(cfg.Budgets.MaxDepth), nil
	case "worker.mode":
		return cfg.Worker.Mode, nil
	case "worker.model":
		return cfg.Worker.Model, nil
	case "worker.binary":
		return cfg.Worker.Binary, nil
	case "worker.timeout":
		return cfg.Worker.Timeout.String(), nil
	case "worker.api_key":
		if cfg.Worker.APIKey != "" {
			return "****", nil
		}
		return "(not set)", nil
	case "worker.use_bedrock":
		return strconv.FormatBool(cfg.Worker.UseBedrock), nil
	case "worker.aws_region":
		return cfg.Worker.AWSRegion, nil
	case "worker.aws_profile":
		return cfg.Worker.AWSProfile, nil
	case "workspace.base_dir":
		return cfg.Workspace.BaseDir, nil
	case "workspace.snapshot":
		return strconv.FormatBool(cfg.Workspace.Snapshot), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "budgets.max_nodes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("max_nodes must be a positive integer")
		}
		cfg.Budgets.MaxNodes = n
	case "budgets.max_depth":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("max_depth must be a non-negative integer")
		}
		cfg.Budgets.MaxDepth = n
	case "worker.mode":
		if value != "cli" && value != "api" {
			return fmt.Errorf("worker.mode must be cli or api")
		}
		cfg.Worker.Mode = value
	case "worker.model":
		cfg.Worker.Model = value
	case "worker.binary":
		cfg.Worker.Binary = value
	case "worker.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Worker.Timeout = d
	case "worker.api_key":
		cfg.Worker.APIKey = value
	case "worker.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("use_bedrock must be true or false")
		}
		cfg.Worker.UseBedrock = b
	case "worker.aws_region":
		cfg.Worker.AWSRegion = value
	case "worker.aws_profile":
		cfg.Worker.AWSProfile = value
	case "workspace.base_dir":
		cfg.Workspace.BaseDir = value
	case "workspace.snapshot":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("snapshot must be true or false")
		}
		cfg.Workspace.Snapshot = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
