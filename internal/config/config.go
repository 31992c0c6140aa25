// Package config loads vrcal settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// Config contains runtime configuration loaded from environment variables.
type Config struct {
	APIURL    string        `env:"VRCAL_API_URL,required,notEmpty"`
	APIKey    string        `env:"VRCAL_API_KEY"`
	Session   string        `env:"VRCAL_SESSION"`
	UserAgent string        `env:"VRCAL_USER_AGENT" envDefault:"vrcal/1.0"`
	Timeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	LogLevel  string        `env:"LOG_LEVEL" envDefault:"info"`

	ICloud ICloudConfig
	Google GoogleConfig

	Timezone    string `env:"PRIMARY_TIMEZONE" envDefault:"UTC"`
	StateFile   string `env:"STATE_FILE" envDefault:"sync-state.json"`
	MetricsAddr string `env:"METRICS_ADDR"`

	location *time.Location
}

// Location is the resolved PRIMARY_TIMEZONE.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ICloudConfig holds the CalDAV target credentials.
type ICloudConfig struct {
	Username     string `env:"ICLOUD_USERNAME"`
	Password     string `env:"ICLOUD_APP_SPECIFIC_PASSWORD"`
	CalendarName string `env:"ICLOUD_CALENDAR_NAME"`
}

// Enabled reports whether an iCloud target is configured.
func (c ICloudConfig) Enabled() bool {
	return c.Username != "" && c.CalendarName != ""
}

// GoogleConfig selects the Google account and calendar to write to.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	CalendarID   string `env:"GOOGLE_CALENDAR_ID"`
	Account      string `env:"GOOGLE_ACCOUNT" envDefault:"default"`
}

// Enabled reports whether a Google Calendar target is configured.
func (c GoogleConfig) Enabled() bool {
	return c.CalendarID != ""
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("VRCAL_API_URL must be an absolute URL, got %q", cfg.APIURL)
	}
	if cfg.Timeout < 0 {
		return Config{}, fmt.Errorf("HTTP_TIMEOUT must be >= 0")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}
	cfg.location = loc

	return cfg, nil
}
