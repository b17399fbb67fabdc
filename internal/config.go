package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/jotter/internal/identity"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Client ClientConfig      `yaml:"client"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Client.Validate()
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

// AuthConfig holds identity configuration.
//
// Mode controls how callers are identified:
//   - "disabled" (default): every request acts as User; for local use.
//   - "token": a static bearer Token identifies User.
//   - "jwt": HS256 bearer tokens signed with Secret; the name claim is the user.
type AuthConfig struct {
	Mode   string `yaml:"mode"`
	Token  string `yaml:"token"`
	Secret string `yaml:"secret"`
	User   string `yaml:"user"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = identity.ModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(identity.ModeDisabled, identity.ModeToken, identity.ModeJWT)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case identity.ModeToken:
		if c.Token == "" {
			return fmt.Errorf("auth: mode is %q but token is empty", identity.ModeToken)
		}
		if c.User == "" {
			return fmt.Errorf("auth: mode is %q but user is empty", identity.ModeToken)
		}
	case identity.ModeJWT:
		if len(c.Secret) < 16 {
			return fmt.Errorf("auth: mode is %q but secret is shorter than 16 bytes", identity.ModeJWT)
		}
	case identity.ModeDisabled:
		if c.User == "" {
			return fmt.Errorf("auth: mode is %q but user is empty", identity.ModeDisabled)
		}
	}
	return nil
}

// Provider builds the identity provider for this configuration.
func (c *AuthConfig) Provider() *identity.Provider {
	return identity.NewProvider(c.Mode, c.Token, c.Secret, c.User)
}

// ClientConfig holds settings for the terminal client commands.
type ClientConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	PrefsPath string `yaml:"prefs_path"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.PrefsPath, validation.Required),
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
		SQLite: SQLiteConfig{
			Path: "./jotter.db",
		},
		Auth: AuthConfig{
			Mode: identity.ModeDisabled,
			User: "me",
		},
		Client: ClientConfig{
			BaseURL:   "http://localhost:8080/api",
			PrefsPath: defaultPrefsPath(),
		},
	}
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "jotter", "prefs.yaml")
}
