// Package config handles configuration loading for arbor.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for arbor.
type Config struct {
	Budgets   BudgetsConfig   `mapstructure:"budgets"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
}

// BudgetsConfig holds the global tree budgets.
type BudgetsConfig struct {
	// MaxNodes caps the total nodes created across the whole tree.
	MaxNodes int `mapstructure:"max_nodes"`
	// MaxDepth caps recursion depth; the root is depth 0.
	MaxDepth int `mapstructure:"max_depth"`
}

// WorkerConfig holds settings for the external worker gateway.
type WorkerConfig struct {
	// Mode selects the gateway: "cli" (claude subprocess) or "api".
	Mode string `mapstructure:"mode"`
	// Model is the Claude model to use; empty uses the default.
	Model string `mapstructure:"model"`
	// Binary is the CLI executable name for cli mode.
	Binary string `mapstructure:"binary"`
	// Timeout is the per-call timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// APIKey is the Anthropic API key for api mode; ${VAR} references
	// are expanded.
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes api mode through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the AWS shared-config profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// WorkspaceConfig holds workspace placement settings.
type WorkspaceConfig struct {
	// BaseDir is where run workspaces are created.
	BaseDir string `mapstructure:"base_dir"`
	// Snapshot attaches a rendered tree snapshot to worker prompts.
	Snapshot bool `mapstructure:"snapshot"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
//  1. Environment variables (ARBOR_*, ANTHROPIC_API_KEY)
//  2. Project config (.arbor.yaml in current directory or a parent)
//  3. User config (~/.config/arbor/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ARBOR")
	v.AutomaticEnv()
	v.BindEnv("worker.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("worker.mode", "ARBOR_WORKER_MODE")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Worker.APIKey = os.ExpandEnv(cfg.Worker.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Worker.APIKey = os.ExpandEnv(cfg.Worker.APIKey)
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("budgets.max_nodes", cfg.Budgets.MaxNodes)
	v.Set("budgets.max_depth", cfg.Budgets.MaxDepth)
	v.Set("worker.mode", cfg.Worker.Mode)
	v.Set("worker.model", cfg.Worker.Model)
	v.Set("worker.binary", cfg.Worker.Binary)
	v.Set("worker.timeout", cfg.Worker.Timeout.String())
	v.Set("worker.api_key", cfg.Worker.APIKey)
	v.Set("worker.use_bedrock", cfg.Worker.UseBedrock)
	v.Set("worker.aws_region", cfg.Worker.AWSRegion)
	v.Set("worker.aws_profile", cfg.Worker.AWSProfile)
	v.Set("workspace.base_dir", cfg.Workspace.BaseDir)
	v.Set("workspace.snapshot", cfg.Workspace.Snapshot)

	return v.WriteConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("budgets.max_nodes", 5)
	v.SetDefault("budgets.max_depth", 3)

	v.SetDefault("worker.mode", "cli")
	v.SetDefault("worker.binary", "claude")
	v.SetDefault("worker.model", "")
	v.SetDefault("worker.timeout", "10m")

	v.SetDefault("workspace.base_dir", "tmp")
	v.SetDefault("workspace.snapshot", true)
}

// getUserConfigDir returns the XDG config directory for arbor.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "arbor")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "arbor")
	}
	return filepath.Join(home, ".config", "arbor")
}

// findProjectConfig searches for .arbor.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".arbor.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Budgets: BudgetsConfig{
			MaxNodes: 5,
			MaxDepth: 3,
		},
		Worker: WorkerConfig{
			Mode:    "cli",
			Binary:  "claude",
			Timeout: 10 * time.Minute,
		},
		Workspace: WorkspaceConfig{
			BaseDir:  "tmp",
			Snapshot: true,
		},
	}
}
