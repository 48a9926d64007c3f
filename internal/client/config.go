package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the CLI/TUI client configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Limits LimitsConfig `toml:"limits"`
	Output OutputConfig `toml:"output"`
}

type ServerConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	APIKeyFile string `toml:"api_key_file"`
}

type LimitsConfig struct {
	MaxQueuedFiles int   `toml:"max_queued_files"`
	MaxFileBytes   int64 `toml:"max_file_bytes"`
}

type OutputConfig struct {
	Directory string `toml:"directory"`
}

// LoadConfig reads the client configuration from the default location.
func LoadConfig() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}

	path := filepath.Join(configDir, "searchlayer", "client.toml")
	return LoadConfigFrom(path)
}

// LoadConfigFrom reads the client configuration from a specific file.
// A missing file yields the defaults.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Load API key from file if specified
	if cfg.Server.APIKeyFile != "" && cfg.Server.APIKey == "" {
		keyData, err := os.ReadFile(expandPath(cfg.Server.APIKeyFile))
		if err == nil {
			cfg.Server.APIKey = strings.TrimSpace(string(keyData))
		}
	}

	return cfg, nil
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		Limits: LimitsConfig{
			MaxQueuedFiles: 20,
			MaxFileBytes:   40 << 20,
		},
		Output: OutputConfig{
			Directory: ".",
		},
	}
}

// Save writes the configuration to the default location.
func (c *Config) Save() error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}

	dir := filepath.Join(configDir, "searchlayer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, "client.toml")
	return c.SaveTo(path)
}

// SaveTo writes the configuration to a specific file.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Set updates a configuration value by dotted key path.
func (c *Config) Set(key, value string) error {
	switch key {
	case "server.url":
		c.Server.URL = value
	case "server.api_key":
		c.Server.APIKey = value
	case "output.directory":
		c.Output.Directory = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Get returns a configuration value by dotted key path.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "server.url":
		return c.Server.URL, nil
	case "server.api_key":
		return c.Server.APIKey, nil
	case "output.directory":
		return c.Output.Directory, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
