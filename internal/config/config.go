package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Output formats accepted by the format key.
const (
	FormatTUI  = "tui"
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds all configuration for pgsecui
type Config struct {
	// Base URL of the analysis API
	APIURL string `mapstructure:"api_url"`

	// Per-request timeout for API calls; 0 disables it
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Output format (tui, text, json, yaml)
	Format string `mapstructure:"format"`

	// Verbose output
	Verbose bool `mapstructure:"verbose"`

	// Debug mode
	Debug bool `mapstructure:"debug"`

	// Disable coloured text output
	NoColor bool `mapstructure:"no_color"`

	// Policy file for the check command; empty means search upwards
	PolicyFile string `mapstructure:"policy_file"`

	Server ServerConfig `mapstructure:"server"`
}

// ServerConfig configures the local API server started by serve.
type ServerConfig struct {
	Listen         string   `mapstructure:"listen"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`

	// Requests per minute per client IP; 0 disables limiting
	RateLimit int `mapstructure:"rate_limit"`

	// Service that performs live analysis; empty answers 501
	AnalyzeUpstream string `mapstructure:"analyze_upstream"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		APIURL:  "http://localhost:8080",
		Format:  FormatTUI,
		Verbose: false,
		Debug:   false,
		Server: ServerConfig{
			Listen:         ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxUploadBytes: 10 << 20,
			RateLimit:      60,
		},
	}
}

// LoadFromFile loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file: configPath, or when empty ./pgsecui.yaml, ~/pgsecui.yaml
//    or the XDG config dir
// 3. Environment variables (PGSECUI_*, nested keys joined by _)
// 4. CLI flags (handled by caller)
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("no_color", defaults.NoColor)
	v.SetDefault("policy_file", "")
	v.SetDefault("server.listen", defaults.Server.Listen)
	v.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	v.SetDefault("server.max_upload_bytes", defaults.Server.MaxUploadBytes)
	v.SetDefault("server.rate_limit", defaults.Server.RateLimit)
	v.SetDefault("server.analyze_upstream", "")

	v.SetConfigName("pgsecui")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(filepath.Dir(ConfigPath()))
	}

	v.SetEnvPrefix("PGSECUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := ValidateFormat(c.Format); err != nil {
		return err
	}

	if err := validateURL("api_url", c.APIURL); err != nil {
		return err
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout cannot be negative")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit cannot be negative")
	}

	if c.Server.AnalyzeUpstream != "" {
		if err := validateURL("server.analyze_upstream", c.Server.AnalyzeUpstream); err != nil {
			return err
		}
	}

	return nil
}

// ValidateFormat reports whether format is a known output format.
func ValidateFormat(format string) error {
	switch format {
	case FormatTUI, FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (must be tui, text, json, or yaml)", format)
	}
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", key, raw)
	}
	return nil
}

// ConfigPath returns the path written by config init:
// $XDG_CONFIG_HOME/pgsecui/pgsecui.yaml, falling back to ~/.config.
func ConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "pgsecui", "pgsecui.yaml")
}

// WriteSampleConfig writes GenerateSampleConfig to path, creating parent
// directories. An existing file is left alone unless force is set.
func WriteSampleConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateSampleConfig()), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# pgsecui configuration
# Save this file as ./pgsecui.yaml, ~/pgsecui.yaml or
# $XDG_CONFIG_HOME/pgsecui/pgsecui.yaml

# Analysis API base URL
# Can also be set via PGSECUI_API_URL
api_url: http://localhost:8080

# Per-request timeout for API calls (0 = no timeout)
request_timeout: 0s

# Output format: tui, text, json, or yaml
# tui falls back to text when stdout is not a terminal
format: tui

# Enable verbose output
verbose: false

# Enable debug mode
debug: false

# Disable coloured text output
no_color: false

# Policy file for "pgsecui check" (default: search for .pgsecui-policy.yaml)
# policy_file: .pgsecui-policy.yaml

# Local API server ("pgsecui serve")
server:
  listen: ":8080"
  allowed_origins:
    - http://localhost:3000
  max_upload_bytes: 10485760
  # Requests per minute per client IP (0 = unlimited)
  rate_limit: 60
  # Service that performs live analysis; leave empty to answer 501
  # analyze_upstream: http://analyzer.internal:8080
`
}
