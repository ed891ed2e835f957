// Package config handles reading and writing .embody/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .embody/config.yaml.
type Config struct {
	Version     int               `yaml:"version"`
	SessionsDir string            `yaml:"sessions_dir"`
	Profile     string            `yaml:"profile"`
	ProfilesDir string            `yaml:"profiles_dir"`
	Agent       AgentConfig       `yaml:"agent"`
	Exploration ExplorationConfig `yaml:"exploration"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Pool        PoolConfig        `yaml:"pool"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// AgentConfig controls how the external agent CLI is invoked.
type AgentConfig struct {
	Command string `yaml:"command"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // seconds, wraps a whole phase operation
}

// ExplorationConfig holds the tunables of the exploration loop.
type ExplorationConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	MinConcepts         int     `yaml:"min_concepts"`
	MaxConcepts         int     `yaml:"max_concepts"`
	MinRefinements      int     `yaml:"min_refinements"`
	MaxRefinements      int     `yaml:"max_refinements"`
}

// ExtractionConfig bounds token extraction on untrusted repositories.
type ExtractionConfig struct {
	MaxFiles     int   `yaml:"max_files"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	MaxEntries   int   `yaml:"max_entries"` // directory entries visited per scan
}

// PoolConfig controls the agent handle pool.
type PoolConfig struct {
	TTL        int `yaml:"ttl"` // seconds
	MaxHandles int `yaml:"max_handles"`
}

// CleanupConfig controls session pruning.
type CleanupConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // prometheus textfile collector path, empty disables
}

const configDir = ".embody"
const configFile = "config.yaml"

// Environment variables that override file values.
const (
	EnvSessionsDir  = "EMBODY_SESSIONS_DIR"
	EnvProfile      = "EMBODY_PROFILE"
	EnvAgentCommand = "EMBODY_AGENT_COMMAND"
	EnvLogLevel     = "EMBODY_LOG_LEVEL"
)

// ReadConfig reads .embody/config.yaml from the given project directory.
// dir is the project root (not .embody/ itself).
// Fields absent from the file keep their DefaultConfig values.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Load reads the config for dir, falling back to defaults when no config
// file exists, then applies environment overrides and validates the result.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteConfig writes cfg to .embody/config.yaml in the given project directory.
// Creates the .embody/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ApplyEnv overrides selected fields from the environment. getenv is
// os.Getenv in production and a map lookup in tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvSessionsDir); v != "" {
		c.SessionsDir = v
	}
	if v := getenv(EnvProfile); v != "" {
		c.Profile = v
	}
	if v := getenv(EnvAgentCommand); v != "" {
		c.Agent.Command = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations the orchestrator cannot run with.
func (c *Config) Validate() error {
	e := c.Exploration
	if e.ConfidenceThreshold < 0 || e.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence_threshold %v outside [0,1]", e.ConfidenceThreshold)
	}
	if e.MinConcepts < 1 || e.MinConcepts > e.MaxConcepts {
		return fmt.Errorf("config: invalid concept range %d-%d", e.MinConcepts, e.MaxConcepts)
	}
	if e.MinRefinements < 1 || e.MinRefinements > e.MaxRefinements {
		return fmt.Errorf("config: invalid refinement range %d-%d", e.MinRefinements, e.MaxRefinements)
	}
	if c.Extraction.MaxFiles < 1 {
		return fmt.Errorf("config: extraction.max_files must be at least 1")
	}
	if c.SessionsDir == "" {
		return fmt.Errorf("config: sessions_dir is required")
	}
	return nil
}

// AgentTimeout returns the per-operation agent timeout.
func (c *Config) AgentTimeout() time.Duration {
	if c.Agent.Timeout <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Agent.Timeout) * time.Second
}

// PoolTTL returns how long an idle agent handle is kept.
func (c *Config) PoolTTL() time.Duration {
	if c.Pool.TTL <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Pool.TTL) * time.Second
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		SessionsDir: filepath.Join(configDir, "sessions"),
		Profile:     "default",
		ProfilesDir: filepath.Join(configDir, "profiles"),
		Agent: AgentConfig{
			Command: "claude",
			Model:   "opus",
			Timeout: 300,
		},
		Exploration: ExplorationConfig{
			ConfidenceThreshold: 0.85,
			MinConcepts:         3,
			MaxConcepts:         4,
			MinRefinements:      2,
			MaxRefinements:      3,
		},
		Extraction: ExtractionConfig{
			MaxFiles:     10,
			MaxFileBytes: 1 << 20,
			MaxEntries:   50000,
		},
		Pool: PoolConfig{
			TTL:        1800,
			MaxHandles: 64,
		},
		Cleanup: CleanupConfig{
			MaxAgeDays: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
