package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file read when no explicit path is given.
const DefaultPath = "dq.yaml"

// Output formats accepted by output.format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds all configuration for the dq workspace client.
// Configuration can come from a YAML file (dq.yaml) or environment variables.
// Environment variables always override YAML values.
type Config struct {
	Version string `yaml:"-"` // Set at load time, not from config

	// API configuration for the dataset-quality service
	API APIConfig `yaml:"api"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Upload preflight configuration
	Upload UploadConfig `yaml:"upload"`

	// Output rendering configuration
	Output OutputConfig `yaml:"output"`

	// Watch mode configuration
	Watch WatchConfig `yaml:"watch"`
}

// APIConfig holds connection settings for the dataset-quality service.
type APIConfig struct {
	BaseURL string `yaml:"base_url" env:"DQ_API_URL" env-default:"http://localhost:8000"`
	// Timeout bounds every request; the service itself specifies none.
	Timeout   time.Duration `yaml:"timeout" env:"DQ_API_TIMEOUT" env-default:"30s"`
	UserAgent string        `yaml:"user_agent" env:"DQ_USER_AGENT" env-default:"dq-workspace"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Env selects the zap preset: local/dev use the development config.
	Env   string `yaml:"env" env:"DQ_ENV" env-default:"local"`
	Level string `yaml:"level" env:"DQ_LOG_LEVEL" env-default:"info"`
}

// UploadConfig holds local checks applied before a file is sent.
type UploadConfig struct {
	MaxSizeMB   int  `yaml:"max_size_mb" env:"DQ_UPLOAD_MAX_MB" env-default:"100"`
	ScanContent bool `yaml:"scan_content" env:"DQ_UPLOAD_SCAN" env-default:"true"`
}

// MaxSizeBytes returns the upload size limit in bytes.
func (u *UploadConfig) MaxSizeBytes() int64 {
	return int64(u.MaxSizeMB) * 1024 * 1024
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `yaml:"format" env:"DQ_OUTPUT" env-default:"text"`
	Color  bool   `yaml:"color" env:"DQ_COLOR" env-default:"true"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" env:"DQ_WATCH_DEBOUNCE" env-default:"750ms"`
}

// Load reads configuration from the YAML file at path with environment variable overrides.
// An empty path means DefaultPath; a missing file is not an error and leaves
// environment variables and defaults as the only source.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.API.BaseURL = ResolveURLForDocker(strings.TrimRight(cfg.API.BaseURL, "/"))

	return cfg, nil
}

// Validate checks field values that cleanenv cannot check on its own.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must be an http or https URL, got %q", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url has no host: %q", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}

	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("upload.max_size_mb must be positive, got %d", c.Upload.MaxSizeMB)
	}

	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("output.format must be one of text, json, yaml; got %q", c.Output.Format)
	}

	return nil
}
