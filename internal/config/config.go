// Package config loads the process-level YAML configuration: things an
// operator sets once per machine (data directory, log level, realtime
// endpoint overrides), as distinct from per-user settings in internal/store.
// Adapted from the teacher's internal/config/config.go, which follows the
// same DefaultConfig/Load/LoadWithFallback/Save shape for a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-level configuration.
type Config struct {
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`

	Realtime struct {
		Endpoint      string        `yaml:"endpoint"`
		Model         string        `yaml:"model"`
		CommitTimeout time.Duration `yaml:"commit_timeout"`
	} `yaml:"realtime"`

	Batch struct {
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
	} `yaml:"batch"`
}

// DefaultConfig returns a Config populated with the defaults the rest of the
// core falls back to when an operator has not overridden them.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Log.Level = "info"
	cfg.Log.File = ""

	cfg.Data.Dir = defaultDataDir()

	cfg.Realtime.Endpoint = "wss://api.openai.com/v1/realtime"
	cfg.Realtime.Model = "gpt-realtime"
	cfg.Realtime.CommitTimeout = 20 * time.Second

	cfg.Batch.Endpoint = "https://api.openai.com/v1/audio/transcriptions"
	cfg.Batch.Model = "gpt-4o-mini-transcribe"

	return cfg
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dictate"
	}
	return filepath.Join(home, ".dictate")
}

// Load reads and parses a YAML config file at path, starting from defaults
// so an incomplete file still yields a usable Config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback tries, in order: an explicit path, ~/.dictaterc, then
// /etc/dictate/config.yaml, falling back to DefaultConfig if none exist.
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".dictaterc")
		if _, err := os.Stat(userPath); err == nil {
			if cfg, err := Load(userPath); err == nil {
				return cfg, nil
			}
		}
	}

	systemPath := "/etc/dictate/config.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		if cfg, err := Load(systemPath); err == nil {
			return cfg, nil
		}
	}

	return DefaultConfig(), nil
}

// Save writes the config as YAML to path, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
