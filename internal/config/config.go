package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/questline/sessionsync/internal/wsclient"
)

// Config holds the client-side settings for the session layer.
type Config struct {
	ServerURL         string        `env:"QUESTLINE_WS_URL" envDefault:"ws://localhost:8080"`
	APIURL            string        `env:"QUESTLINE_API_URL" envDefault:"http://localhost:8080/api"`
	APIToken          string        `env:"QUESTLINE_API_TOKEN"`
	DialTimeout       time.Duration `env:"QUESTLINE_DIAL_TIMEOUT" envDefault:"10s"`
	ReconnectBase     time.Duration `env:"QUESTLINE_RECONNECT_BASE" envDefault:"1s"`
	ReconnectAttempts int           `env:"QUESTLINE_RECONNECT_ATTEMPTS" envDefault:"5"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// WSOptions builds the connection options for the configured server.
func (c Config) WSOptions(logger wsclient.Logger) wsclient.Options {
	base := strings.TrimRight(c.ServerURL, "/")
	return wsclient.Options{
		URL:               func(sessionID string) string { return base + "/ws/" + sessionID },
		DialTimeout:       c.DialTimeout,
		ReconnectBase:     c.ReconnectBase,
		ReconnectAttempts: c.ReconnectAttempts,
		Logger:            logger,
	}
}
