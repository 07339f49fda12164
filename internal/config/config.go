// Package config loads the YAML settings file shared by every mentor command.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL       = "http://127.0.0.1:8000"
	DefaultPrefix        = "/api/v1"
	DefaultAddr          = "127.0.0.1:3340"
	DefaultToastDuration = 1800 * time.Millisecond
	DefaultResetDelay    = 500 * time.Millisecond
	DefaultHeaderColor   = "#07101f"
	DefaultBgColor       = "#0f172a"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"

	fileName = "config.yaml"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Web     WebConfig     `yaml:"web"`
	Storage StorageConfig `yaml:"storage"`
	Host    HostConfig    `yaml:"host"`
	Logging LoggingConfig `yaml:"logging"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Prefix  string `yaml:"prefix"`
}

type WebConfig struct {
	Addr        string `yaml:"addr"`
	DatastarURL string `yaml:"datastar_url"`

	ToastDuration time.Duration `yaml:"-"`
	ResetDelay    time.Duration `yaml:"-"`

	ToastDurationRaw string `yaml:"toast_duration"`
	ResetDelayRaw    string `yaml:"reset_delay"`
}

type StorageConfig struct {
	// Dir holds local.sqlite and the web signing key. Defaults to the config dir.
	Dir string `yaml:"dir"`
}

type HostConfig struct {
	HeaderColor     string `yaml:"header_color"`
	BackgroundColor string `yaml:"background_color"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Dir is the config directory: $MENTOR_CONFIG_DIR or ~/.mentor.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("MENTOR_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mentor"), nil
}

// Path is the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults("")
	return cfg
}

// Load reads path (or the default path when empty). A missing file yields the
// defaults; a present but invalid file is an error.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			cfg := Default()
			cfg.applyDefaults(filepath.Dir(path))
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value (empty when unset).
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	var err error
	if raw := strings.TrimSpace(cfg.Web.ToastDurationRaw); raw != "" {
		cfg.Web.ToastDuration, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing toast_duration %q: %w", raw, err)
		}
	}
	if raw := strings.TrimSpace(cfg.Web.ResetDelayRaw); raw != "" {
		cfg.Web.ResetDelay, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing reset_delay %q: %w", raw, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults(configDir string) {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.API.Prefix) == "" {
		c.API.Prefix = DefaultPrefix
	}
	if strings.TrimSpace(c.Web.Addr) == "" {
		c.Web.Addr = DefaultAddr
	}
	if c.Web.ToastDuration == 0 {
		c.Web.ToastDuration = DefaultToastDuration
	}
	if c.Web.ResetDelay == 0 {
		c.Web.ResetDelay = DefaultResetDelay
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		c.Storage.Dir = configDir
	}
	if strings.TrimSpace(c.Host.HeaderColor) == "" {
		c.Host.HeaderColor = DefaultHeaderColor
	}
	if strings.TrimSpace(c.Host.BackgroundColor) == "" {
		c.Host.BackgroundColor = DefaultBgColor
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("api.prefix must start with /, got %q", c.API.Prefix)
	}
	if c.Web.ToastDuration < 0 {
		return fmt.Errorf("web.toast_duration must not be negative")
	}
	if c.Web.ResetDelay < 0 {
		return fmt.Errorf("web.reset_delay must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug|info|warn|error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text|json, got %q", c.Logging.Format)
	}
	return nil
}
