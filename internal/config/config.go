// Package config handles configuration loading for borgata. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for borgata.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Store        StoreConfig        `mapstructure:"store"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// OpenAIConfig holds settings for the analysis-only OpenAI-compatible
// provider. The provider is only registered when an API key is set.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	APIBase string `mapstructure:"api_base"`
	Model   string `mapstructure:"model"`
}

// OrchestratorConfig holds orchestration limits and behavior.
type OrchestratorConfig struct {
	// MaxAgentTurns caps total model turns per conversation across the
	// whole tree.
	MaxAgentTurns int `mapstructure:"max_agent_turns"`
	// MaxTokens is the per-turn completion cap.
	MaxTokens int `mapstructure:"max_tokens"`
	// RosterPath points to the static org YAML. Empty means the built-in
	// default roster.
	RosterPath string `mapstructure:"roster_path"`
	// SignalDir is where stop-signal files are watched. Empty means the
	// store directory.
	SignalDir string `mapstructure:"signal_dir"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means the XDG default.
	Path string `mapstructure:"path"`
}

// Load loads configuration with the following precedence (highest to
// lowest): environment variables, project config (.borgata.yaml in the
// current directory or a parent), user config
// (~/.config/borgata/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		pv := viper.New()
		pv.SetConfigFile(projectConfig)
		if err := pv.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = os.ExpandEnv(cfg.OpenAI.APIKey)

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

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = os.ExpandEnv(cfg.OpenAI.APIKey)

	return cfg, nil
}

// Default returns a Config with built-in default values.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxAgentTurns: 200,
			MaxTokens:     8192,
		},
	}
}

// UserConfigPath returns the path to the user config file.
func UserConfigPath() string {
	return filepath.Join(userConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.api_base", "")
	v.SetDefault("openai.model", "")

	v.SetDefault("orchestrator.max_agent_turns", 200)
	v.SetDefault("orchestrator.max_tokens", 8192)
	v.SetDefault("orchestrator.roster_path", "")
	v.SetDefault("orchestrator.signal_dir", "")

	v.SetDefault("store.path", "")
}

// userConfigDir returns the XDG config directory for borgata.
func userConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "borgata")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "borgata")
	}
	return filepath.Join(home, ".config", "borgata")
}

// findProjectConfig searches for .borgata.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".borgata.yaml")
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
