package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	View   ViewConfig        `yaml:"view"`
	Layout LayoutConfig      `yaml:"layout"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.View.Validate(); err != nil {
		return err
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
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

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the directory of thought documents.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
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
	// Normalise empty mode to "disabled" for backward compatibility.
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

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ViewConfig holds the initial state of the served surface.
type ViewConfig struct {
	MaxDepth int `yaml:"max_depth"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
}

// Validate validates the view configuration.
func (c *ViewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxDepth, validation.Min(0)),
		validation.Field(&c.Width, validation.Required, validation.Min(1)),
		validation.Field(&c.Height, validation.Required, validation.Min(1)),
	)
}

// LayoutConfig tunes the force simulation.
type LayoutConfig struct {
	LinkDistance   float64       `yaml:"link_distance"`
	ChargeStrength float64       `yaml:"charge_strength"`
	RadiusBase     float64       `yaml:"radius_base"`
	RadiusPerDepth float64       `yaml:"radius_per_depth"`
	FrameInterval  time.Duration `yaml:"frame_interval"`
	AlphaMin       float64       `yaml:"alpha_min"`
}

// Validate validates the layout configuration.
func (c *LayoutConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LinkDistance, validation.Required, validation.Min(1.0)),
		validation.Field(&c.ChargeStrength, validation.Max(0.0)),
		validation.Field(&c.RadiusBase, validation.Required, validation.Min(1.0)),
		validation.Field(&c.RadiusPerDepth, validation.Min(0.0)),
		validation.Field(&c.FrameInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.AlphaMin, validation.Required, validation.Min(0.0), validation.Max(1.0)),
	)
}

// EventsConfig throttles server-sent events.
type EventsConfig struct {
	GraphThrottle time.Duration `yaml:"graph_throttle"`
	FrameThrottle time.Duration `yaml:"frame_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.GraphThrottle, validation.Required),
		validation.Field(&c.FrameThrottle, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./thoughtmap.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		View: ViewConfig{
			MaxDepth: 5,
			Width:    800,
			Height:   600,
		},
		Layout: LayoutConfig{
			LinkDistance:   150,
			ChargeStrength: -300,
			RadiusBase:     10,
			RadiusPerDepth: 2,
			FrameInterval:  16 * time.Millisecond,
			AlphaMin:       0.001,
		},
		Events: EventsConfig{
			GraphThrottle: 2 * time.Second,
			FrameThrottle: 100 * time.Millisecond,
		},
	}
}
