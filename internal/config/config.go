package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
)

// Config holds engine configuration. Credentials and endpoints come from the
// environment; an optional YAML file supplies the same keys with the
// environment taking precedence.
type Config struct {
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	ServerAddress string `yaml:"server_address"`

	CacheDir         string `yaml:"cache_dir"`
	CacheCompression string `yaml:"cache_compression"` // "", "gz", "bz2", "xz", "zip"
	CacheEnabled     bool   `yaml:"cache_enabled"`

	OutputFormat string `yaml:"output_format"` // "json", "yaml", "csv"
	LogLevel     string `yaml:"log_level"`
}

// Load reads configuration from CORTEX_CONFIG (if set) and the environment.
func Load() (*Config, error) {
	cfg := &Config{
		CacheEnabled: true,
		OutputFormat: "json",
		LogLevel:     "info",
	}

	if path := os.Getenv("CORTEX_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, cerrors.E("config.Load", cerrors.KindConfiguration, "read config file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, cerrors.E("config.Load", cerrors.KindConfiguration, "parse config file", err)
		}
	}

	applyEnv(cfg)

	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, cerrors.E("config.Load", cerrors.KindConfiguration, "resolve home directory", err)
		}
		cfg.CacheDir = filepath.Join(home, ".cache", "cortex")
	}

	switch cfg.CacheCompression {
	case "", "gz", "bz2", "xz", "zip":
	default:
		return nil, cerrors.E("config.Load", cerrors.KindConfiguration,
			fmt.Sprintf("unsupported cache compression %q", cfg.CacheCompression), nil)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LAMP_ACCESS_KEY"); v != "" {
		cfg.AccessKey = v
	}
	if v := os.Getenv("LAMP_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("LAMP_SERVER_ADDRESS"); v != "" {
		cfg.ServerAddress = v
	}
	if v := os.Getenv("CORTEX_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("CORTEX_CACHE_COMPRESSION"); v != "" {
		cfg.CacheCompression = v
	}
	if v := os.Getenv("CORTEX_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = v
	}
	if v := os.Getenv("CORTEX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORTEX_CACHE_DISABLED"); v == "1" || v == "true" {
		cfg.CacheEnabled = false
	}
}

// HasCredentials reports whether enough is present to open a backend session.
func (c *Config) HasCredentials() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.ServerAddress != ""
}
