package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	"github.com/starford/tessera/internal/tools"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Editor   EditorConfig      `yaml:"editor"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Events   EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Storage, &c.SQLite, &c.Auth, &c.Editor, &c.Autosave, &c.Events} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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

// StorageConfig holds the directory documents are stored in.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
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

// EditorConfig tunes how documents are opened and saved.
type EditorConfig struct {
	// DefaultTool is used for implicit inserts. Empty means paragraph.
	DefaultTool     string `yaml:"default_tool"`
	ReadOnly        bool   `yaml:"read_only"`
	PreserveBlank   bool   `yaml:"preserve_blank"`
	SaveConcurrency int    `yaml:"save_concurrency"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultTool, validation.In(tools.Paragraph, tools.Header, tools.Quote, tools.List)),
		validation.Field(&c.SaveConcurrency, validation.Min(0), validation.Max(64)),
	)
}

// AutosaveConfig schedules periodic flushes of unsaved edits. An empty
// Schedule disables autosave.
type AutosaveConfig struct {
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Schedule, validation.By(cronSchedule)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func cronSchedule(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return errors.New("must be a cron expression or descriptor")
	}
	return nil
}

// EventsConfig holds SSE configuration.
type EventsConfig struct {
	// Throttle is the minimum gap between document.changed events per document.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
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
		Storage: StorageConfig{
			Path: "./documents",
		},
		SQLite: SQLiteConfig{
			Path: "./tessera.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			SaveConcurrency: 4,
		},
		Autosave: AutosaveConfig{
			Schedule: "@every 30s",
			Timeout:  30 * time.Second,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
