// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/bhandras/usher/pkg/logger"
)

// EnvPrefix is the prefix shared by all configuration variables, so
// MaxConcurrentGenerations is read from USHER_MAXCONCURRENTGENERATIONS and
// so on.
const EnvPrefix = "usher"

// Config carries every tunable the coordinator and its components accept.
type Config struct {
	// MaxConcurrentGenerations bounds how many sessions may generate at once.
	MaxConcurrentGenerations int `envconfig:"MAXCONCURRENTGENERATIONS" default:"3"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `envconfig:"LOGLEVEL" default:"info"`

	// ActorMailboxSize is the buffered capacity of the router mailbox.
	ActorMailboxSize int `envconfig:"ACTORMAILBOXSIZE" default:"256"`

	// PushoverToken and PushoverUserKey enable attention notifications when
	// both are set.
	PushoverToken   string `envconfig:"PUSHOVER_TOKEN"`
	PushoverUserKey string `envconfig:"PUSHOVER_USER_KEY"`

	// PushoverPriority is passed through to the notification API.
	PushoverPriority int `envconfig:"PUSHOVER_PRIORITY" default:"0"`

	// NotifyCooldown suppresses repeat notifications for the same session
	// within the window.
	NotifyCooldown time.Duration `envconfig:"NOTIFY_COOLDOWN" default:"30s"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field ranges and cross-field requirements.
func (c Config) Validate() error {
	if c.MaxConcurrentGenerations < 1 {
		return fmt.Errorf("max concurrent generations must be at least 1, got %d", c.MaxConcurrentGenerations)
	}
	if c.ActorMailboxSize < 1 {
		return fmt.Errorf("actor mailbox size must be at least 1, got %d", c.ActorMailboxSize)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.NotifyCooldown < 0 {
		return fmt.Errorf("notify cooldown must not be negative, got %s", c.NotifyCooldown)
	}
	if (c.PushoverToken == "") != (c.PushoverUserKey == "") {
		return fmt.Errorf("pushover token and user key must be set together")
	}
	return nil
}

// PushoverEnabled reports whether notification credentials are present.
func (c Config) PushoverEnabled() bool {
	return c.PushoverToken != "" && c.PushoverUserKey != ""
}
