package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-workspace state directory.
const DirName = ".storefront"

// Config holds all storefront client configuration.
type Config struct {
	Name string `yaml:"name"`

	// External storefront API
	API APIConfig `yaml:"api"`

	// Durable key-value storage (checkout handoff)
	Storage StorageConfig `yaml:"storage"`

	// Simulated payment processing
	Payment PaymentConfig `yaml:"payment"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Optional Prometheus endpoint for API client metrics
	Metrics MetricsConfig `yaml:"metrics"`

	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the storefront HTTP API client.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`
}

// StorageConfig configures the durable store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite (pure Go) or sqlite3 (cgo)
	Path   string `yaml:"path"`
}

// PaymentConfig configures the simulated payment processor.
type PaymentConfig struct {
	ProcessingDelay string `yaml:"processing_delay"`
}

// MetricsConfig configures the metrics listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "storefront",

		API: APIConfig{
			BaseURL:   "http://localhost:3000/api",
			Timeout:   "30s",
			UserAgent: "storefront-tui/1.0",
		},

		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join(DirName, "storefront.db"),
		},

		Payment: PaymentConfig{
			ProcessingDelay: "1500ms",
		},

		UI: UIConfig{
			Theme: "auto",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the config file location for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, DirName, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("STOREFRONT_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if path := os.Getenv("STOREFRONT_DB"); path != "" {
		c.Storage.Path = path
	}
	if os.Getenv("STOREFRONT_DEBUG") == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
	if os.Getenv("STOREFRONT_DARK_MODE") == "1" {
		c.UI.Theme = "dark"
	}
	if addr := os.Getenv("STOREFRONT_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
}

// GetAPITimeout returns the API request timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetProcessingDelay returns the simulated payment delay.
func (c *Config) GetProcessingDelay() time.Duration {
	d, err := time.ParseDuration(c.Payment.ProcessingDelay)
	if err != nil {
		return 1500 * time.Millisecond
	}
	return d
}

// ValidDrivers lists the supported durable store drivers.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported api.base_url scheme: %s", u.Scheme)
	}

	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	if _, err := time.ParseDuration(c.API.Timeout); err != nil {
		return fmt.Errorf("invalid api.timeout %q: %w", c.API.Timeout, err)
	}
	if d, err := time.ParseDuration(c.Payment.ProcessingDelay); err != nil || d < 0 {
		return fmt.Errorf("invalid payment.processing_delay %q", c.Payment.ProcessingDelay)
	}

	switch c.UI.Theme {
	case "", "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid ui.theme: %s", c.UI.Theme)
	}

	return nil
}
