// =============================================================================
// Crewdeck configuration loader
// =============================================================================
// Unified configuration loading: defaults → YAML file → environment variables.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("crewdeck.yaml").
//	    WithEnvPrefix("CREWDECK").
//	    Load()
//
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	// Paths of the three definition tables.
	AgentsPath     string `yaml:"agents_path" env:"AGENTS_PATH"`
	TasksPath      string `yaml:"tasks_path" env:"TASKS_PATH"`
	AgentToolsPath string `yaml:"agent_tools_path" env:"AGENT_TOOLS_PATH"`

	// Database holds the durable-storage settings.
	Database DatabaseConfig `yaml:"database"`

	// Engine holds the agent-execution engine settings.
	Engine EngineConfig `yaml:"engine"`

	// Log holds logging settings.
	Log LogConfig `yaml:"log"`
}

// DatabaseConfig configures the embedded sqlite store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

// EngineConfig configures the external agent-execution engine.
type EngineConfig struct {
	Model  string `yaml:"model" env:"ENGINE_MODEL"`
	APIKey string `yaml:"api_key" env:"ENGINE_API_KEY"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		AgentsPath:     "config/agents.yaml",
		TasksPath:      "config/tasks.yaml",
		AgentToolsPath: "config/agent_tools.yaml",
		Database:       DatabaseConfig{DSN: "crewdeck.db"},
		Engine:         EngineConfig{Model: "gpt-4o-mini"},
		Log:            LogConfig{Level: "info"},
	}
}

// Loader loads configuration with defaults-first precedence.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a Loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "CREWDECK"}
}

// WithConfigPath sets the YAML config file path. An empty path skips the
// file layer entirely.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration. A missing config file is not an error;
// a malformed one is.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		switch {
		case os.IsNotExist(err):
			// Defaults apply.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", l.configPath, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", l.configPath, err)
			}
		}
	}

	l.applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides string fields from PREFIX_NAME variables.
func (l *Loader) applyEnv(cfg *Config) {
	set := func(name string, dst *string) {
		if v, ok := os.LookupEnv(l.envPrefix + "_" + name); ok {
			*dst = v
		}
	}
	set("AGENTS_PATH", &cfg.AgentsPath)
	set("TASKS_PATH", &cfg.TasksPath)
	set("AGENT_TOOLS_PATH", &cfg.AgentToolsPath)
	set("DATABASE_DSN", &cfg.Database.DSN)
	set("ENGINE_MODEL", &cfg.Engine.Model)
	set("ENGINE_API_KEY", &cfg.Engine.APIKey)
	set("LOG_LEVEL", &cfg.Log.Level)
}

// Validate checks the loaded configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug/info/warn/error", c.Log.Level)
	}
	return nil
}
