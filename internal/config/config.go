// Package config loads service configuration using koanf.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds every runtime setting of the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Blob     BlobConfig     `koanf:"blob"`
	Session  SessionConfig  `koanf:"session"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string `koanf:"addr"`
	ReadTimeout  int    `koanf:"read_timeout"`  // seconds
	WriteTimeout int    `koanf:"write_timeout"` // seconds
	IdleTimeout  int    `koanf:"idle_timeout"`  // seconds
	MaxBodyBytes int64  `koanf:"max_body_bytes"`
	RateBurst    int    `koanf:"rate_burst"`
	RatePerSec   int    `koanf:"rate_per_sec"`
}

// DatabaseConfig holds the Postgres DSN. Empty means in-memory stores.
type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

// BlobConfig holds the filesystem blob store settings.
type BlobConfig struct {
	Dir string `koanf:"dir"`
}

// SessionConfig holds bearer-token settings.
type SessionConfig struct {
	Secret     string `koanf:"secret"`
	TTLMinutes int    `koanf:"ttl_minutes"`
	Issuer     string `koanf:"issuer"`
}

// TokenTTL returns the session token lifetime.
func (c SessionConfig) TokenTTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// envPrefix marks the environment variables that override config keys.
// DOCVAULT_SERVER_ADDR sets server.addr, DOCVAULT_SERVER_MAX_BODY_BYTES
// sets server.max_body_bytes: the first underscore after the prefix
// separates the section from the key, later ones belong to the key.
const envPrefix = "DOCVAULT_"

// Load reads configuration with the following precedence, lowest first:
// built-in defaults, config.yaml, config.json, environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	setDefaults(k)
	if err := loadConfigFiles(k); err != nil {
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		return strings.Replace(key, "_", ".", 1), value
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.addr":           ":8080",
		"server.read_timeout":   15,
		"server.write_timeout":  15,
		"server.idle_timeout":   60,
		"server.max_body_bytes": int64(32 << 20),
		"server.rate_burst":     20,
		"server.rate_per_sec":   10,

		"database.dsn": "",

		"blob.dir": "uploads",

		"session.secret":      "",
		"session.ttl_minutes": 60,
		"session.issuer":      "docvault",
	}
	for key, value := range defaults {
		_ = k.Set(key, value)
	}
}

func loadConfigFiles(k *koanf.Koanf) error {
	if _, err := os.Stat("config.yaml"); err == nil {
		if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
			return fmt.Errorf("load config.yaml: %w", err)
		}
	}
	if _, err := os.Stat("config.json"); err == nil {
		if err := k.Load(file.Provider("config.json"), json.Parser()); err != nil {
			return fmt.Errorf("load config.json: %w", err)
		}
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Blob.Dir == "" {
		return fmt.Errorf("blob.dir is required")
	}
	if cfg.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}
	return nil
}
