package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes for the local API.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Remote  RemoteConfig      `yaml:"remote"`
	Secrets SecretsConfig     `yaml:"secrets"`
	Sync    SyncConfig        `yaml:"sync"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Secrets.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the local API server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the local API server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds the local durable store configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RemoteConfig holds the remote goal-service endpoint configuration.
type RemoteConfig struct {
	BaseURL    string        `yaml:"base_url"`
	HealthPath string        `yaml:"health_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

// HealthURL returns the URL probed by the connectivity oracle.
func (c *RemoteConfig) HealthURL() string {
	return c.BaseURL + c.HealthPath
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	// Normalise defaults before validating.
	if c.HealthPath == "" {
		c.HealthPath = "/health"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
	); err != nil {
		return err
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("remote: invalid base_url %q: %w", c.BaseURL, err)
	}
	return nil
}

// SecretsConfig holds the credential-store file location.
type SecretsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the secrets configuration.
func (c *SecretsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SyncConfig holds reconciliation trigger configuration.
type SyncConfig struct {
	// PollInterval is how often the connectivity watcher probes the
	// remote while waiting for it to become reachable.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.PollInterval == 0 {
		c.PollInterval = 30 * time.Second
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.PollInterval, validation.Min(time.Second)),
	)
}

// AuthConfig holds local API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when local API authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8090,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./stride.db",
		},
		Remote: RemoteConfig{
			BaseURL:    "http://localhost:8000",
			HealthPath: "/health",
			Timeout:    10 * time.Second,
		},
		Secrets: SecretsConfig{
			Path: "./stride-secrets.json",
		},
		Sync: SyncConfig{
			PollInterval: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
