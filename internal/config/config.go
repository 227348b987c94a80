package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is the application name used for keyring and config
const AppName = "notion"

// Environment variables read during credential resolution.
const (
	EnvToken      = "NOTION_TOKEN"
	EnvDatabaseID = "NOTION_DATABASE_ID"
)

// Config holds CLI configuration
type Config struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	Token          string `yaml:"token,omitempty"`
	DatabaseID     string `yaml:"database_id,omitempty"`
	NotionVersion  string `yaml:"notion_version,omitempty"`
	KeyringBackend string `yaml:"keyring_backend,omitempty"` // auto, keychain, file
	OutputFormat   string `yaml:"output_format,omitempty"`   // text, json, yaml, table
	Concurrency    int    `yaml:"concurrency,omitempty"`
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	if xdg.ConfigHome == "" {
		return "", errors.New("cannot determine config directory")
	}
	return filepath.Join(xdg.ConfigHome, AppName), nil
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ReadConfig reads the config file from the default location
func ReadConfig() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load loads config from the given path. A missing file yields an empty
// config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("parsing config: concurrency must not be negative, got %d", cfg.Concurrency)
	}

	return &cfg, nil
}

// Save saves config to the given path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from a .env file without overriding variables
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
