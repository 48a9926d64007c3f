package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the complete server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Vision  VisionConfig  `toml:"vision"`
	OCR     OCRConfig     `toml:"ocr"`
	Synth   SynthConfig   `toml:"synthesis"`
	Limits  LimitsConfig  `toml:"limits"`
	Output  OutputConfig  `toml:"output"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Host string     `toml:"host"`
	Port int        `toml:"port"`
	Auth AuthConfig `toml:"auth"`
	TLS  TLSConfig  `toml:"tls"`
}

type AuthConfig struct {
	Enabled bool     `toml:"enabled"`
	APIKeys []string `toml:"api_keys"`
}

type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

// VisionConfig configures the remote geometry provider.
type VisionConfig struct {
	Endpoint      string   `toml:"endpoint"`
	APIKey        string   `toml:"api_key"`
	APIKeyFile    string   `toml:"api_key_file"`
	BatchSize     int      `toml:"batch_size"`
	LanguageHints []string `toml:"language_hints"`
	Timeout       duration `toml:"timeout"`
}

// OCRConfig selects and configures the OCR engine.
type OCRConfig struct {
	// Engine is "vision" or "command".
	Engine       string `toml:"engine"`
	OCRMyPDFPath string `toml:"ocrmypdf_path"`
	Language     string `toml:"language"`
}

type SynthConfig struct {
	FontFile    string  `toml:"font_file"`
	Calibration float64 `toml:"calibration"`
	MinFontSize float64 `toml:"min_font_size"`
	Producer    string  `toml:"producer"`
}

type LimitsConfig struct {
	MaxFileBytes int64 `toml:"max_file_bytes"`
}

type OutputConfig struct {
	Archive    ArchiveConfig    `toml:"archive"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	SMB        SMBConfig        `toml:"smb"`
}

// ArchiveConfig controls optional server-side archiving of results.
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Target  string `toml:"target"`
}

type FilesystemConfig struct {
	Directory string `toml:"directory"`
}

type SMBConfig struct {
	Enabled      bool   `toml:"enabled"`
	Server       string `toml:"server"`
	Share        string `toml:"share"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	PasswordFile string `toml:"password_file"`
	Directory    string `toml:"directory"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// duration wraps time.Duration for TOML unmarshaling.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(dur)
	return nil
}

func (d duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the server configuration from a TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.loadSecrets(); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Vision: VisionConfig{
			Endpoint:      "https://vision.googleapis.com",
			BatchSize:     5,
			LanguageHints: []string{"ko", "en"},
			Timeout:       duration(120 * time.Second),
		},
		OCR: OCRConfig{
			Engine:       "vision",
			OCRMyPDFPath: "/usr/bin/ocrmypdf",
			Language:     "kor+eng",
		},
		Synth: SynthConfig{
			Calibration: 0.82,
			MinFontSize: 2.0,
			Producer:    "searchlayer",
		},
		Limits: LimitsConfig{
			MaxFileBytes: 40 << 20,
		},
		Output: OutputConfig{
			Filesystem: FilesystemConfig{
				Directory: "/var/lib/searchlayer/documents",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadSecrets reads secret values from files.
func (c *Config) loadSecrets() error {
	if c.Vision.APIKeyFile != "" && c.Vision.APIKey == "" {
		key, err := readSecretFile(c.Vision.APIKeyFile)
		if err != nil && c.OCR.Engine == "vision" {
			return fmt.Errorf("vision api key: %w", err)
		}
		c.Vision.APIKey = key
	}
	if c.Output.SMB.PasswordFile != "" && c.Output.SMB.Password == "" {
		pass, err := readSecretFile(c.Output.SMB.PasswordFile)
		if err != nil && c.Output.SMB.Enabled {
			return fmt.Errorf("smb password: %w", err)
		}
		c.Output.SMB.Password = pass
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
