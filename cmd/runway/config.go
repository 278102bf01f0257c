package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/artpar/runway/internal/core/release"
	"github.com/artpar/runway/internal/core/traffic"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Release  ReleaseConfig  `mapstructure:"release"`
	Rollout  RolloutConfig  `mapstructure:"rollout"`
	Platform PlatformConfig `mapstructure:"platform"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServiceConfig identifies the service whose traffic is rolled.
type ServiceConfig struct {
	Project string `mapstructure:"project"` // required for the knative platform
	Region  string `mapstructure:"region" validate:"required"`

	// Name is the service name. When empty it is derived from the
	// project, Env and Component.
	Name      string `mapstructure:"name" validate:"required_without=Component"`
	Env       string `mapstructure:"env"`
	Component string `mapstructure:"component"`
}

// ServiceName returns the configured or derived service name.
func (c ServiceConfig) ServiceName() string {
	if c.Name != "" {
		return c.Name
	}
	return release.ServiceName(c.Project, c.Env, c.Component)
}

// ReleaseConfig describes where release images are published.
type ReleaseConfig struct {
	Registry string `mapstructure:"registry"`
	Image    string `mapstructure:"image"` // empty disables image reporting
}

// RolloutConfig holds traffic rollout configuration.
type RolloutConfig struct {
	Split           traffic.SplitRatio `mapstructure:"split"`
	ApplyTimeout    time.Duration      `mapstructure:"apply_timeout" validate:"gt=0"`
	Confirm         bool               `mapstructure:"confirm"`
	ConfirmInterval time.Duration      `mapstructure:"confirm_interval" validate:"gt=0"`
}

// PlatformConfig selects and configures the serving platform client.
type PlatformConfig struct {
	// Kind is "knative" (Knative Serving or Cloud Run admin API) or
	// "memory" (fixture-backed, for dry runs and local testing).
	Kind     string `mapstructure:"kind" validate:"oneof=knative memory"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	Token    string `mapstructure:"token"`
	Fixture  string `mapstructure:"fixture"`
}

// JournalConfig holds rollout journal configuration.
type JournalConfig struct {
	// DSN is the SQLite database path. Empty disables the journal.
	DSN string `mapstructure:"dsn"`
}

// MetricsConfig holds Pushgateway configuration.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Endpoint returns the configured API endpoint or the regional Cloud Run
// endpoint.
func (c *Config) Endpoint() string {
	if c.Platform.Endpoint != "" {
		return c.Platform.Endpoint
	}
	return fmt.Sprintf("https://%s-run.googleapis.com", c.Service.Region)
}

// =============================================================================
// Config Loading
// =============================================================================

// ErrInvalidConfig is returned when configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("service.project", "")
	v.SetDefault("service.region", "europe-west1")
	v.SetDefault("service.name", "")
	v.SetDefault("service.env", "")
	v.SetDefault("service.component", "")
	v.SetDefault("release.registry", "eu.gcr.io")
	v.SetDefault("release.image", "")
	v.SetDefault("rollout.split.latest_weight", 1)
	v.SetDefault("rollout.split.pinned_weight", 1)
	v.SetDefault("rollout.apply_timeout", "60s")
	v.SetDefault("rollout.confirm", true)
	v.SetDefault("rollout.confirm_interval", "2s")
	v.SetDefault("platform.kind", "knative")
	v.SetDefault("platform.endpoint", "")
	v.SetDefault("platform.token", "")
	v.SetDefault("platform.fixture", "")
	v.SetDefault("journal.dsn", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "runway")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("RUNWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for the commands that talk to the
// platform.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := c.Rollout.Split.Validate(); err != nil {
		return fmt.Errorf("%w: rollout.split: %v", ErrInvalidConfig, err)
	}
	if c.Platform.Kind == "knative" && c.Service.Project == "" {
		return fmt.Errorf("%w: service.project is required for the knative platform", ErrInvalidConfig)
	}
	if c.Platform.Kind == "memory" && c.Platform.Fixture == "" {
		return fmt.Errorf("%w: platform.fixture is required for the memory platform", ErrInvalidConfig)
	}

	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Logs go to w so command output on stdout stays machine-readable.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
