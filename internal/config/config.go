package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the on-disk configuration for commencement-agent.
//
// Secrets (AI provider API keys) never live here; they are managed through
// the separate secrets.json file next to this config.
type Config struct {
	// StorePath is the SQLite database holding exception requests.
	// If empty, <config dir>/requests.sqlite is used.
	StorePath string `json:"store_path,omitempty"`

	// OutputDir is where generated record documents are written.
	// If empty, <config dir>/documents is used.
	OutputDir string `json:"output_dir,omitempty"`

	// RosterPath is an optional YAML student roster. When empty, the
	// built-in fixture roster is used.
	RosterPath string `json:"roster_path,omitempty"`

	AI AIConfig `json:"ai"`

	// LogFormat is "json" or "text".
	LogFormat string `json:"log_format,omitempty"`
	// LogLevel is "debug|info|warn|error".
	LogLevel string `json:"log_level,omitempty"`
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch strings.TrimSpace(strings.ToLower(c.LogFormat)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	switch strings.TrimSpace(strings.ToLower(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("invalid ai config: %w", err)
	}
	return nil
}

// DefaultDir returns the default config directory:
//
//	~/.commencement-agent
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ".commencement-agent"
	}
	return filepath.Join(home, ".commencement-agent")
}

// DefaultConfigPath returns the default config path:
//
//	~/.commencement-agent/config.json
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.json")
}

// DefaultSecretsPath returns the default secrets path:
//
//	~/.commencement-agent/secrets.json
func DefaultSecretsPath() string {
	return filepath.Join(DefaultDir(), "secrets.json")
}

// EffectiveStorePath resolves StorePath relative to the config file location.
func (c *Config) EffectiveStorePath(configPath string) string {
	if c != nil && strings.TrimSpace(c.StorePath) != "" {
		return strings.TrimSpace(c.StorePath)
	}
	return filepath.Join(filepath.Dir(configPath), "requests.sqlite")
}

// EffectiveOutputDir resolves OutputDir relative to the config file location.
func (c *Config) EffectiveOutputDir(configPath string) string {
	if c != nil && strings.TrimSpace(c.OutputDir) != "" {
		return strings.TrimSpace(c.OutputDir)
	}
	return filepath.Join(filepath.Dir(configPath), "documents")
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Write atomically.
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
