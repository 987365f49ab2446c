package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds runtime configuration for the API server. Values come from an
// optional YAML file with environment-variable overrides on top, so deploys
// can run config-file-free with just DATABASE_URL and PORT set.
type Config struct {
	// Port the HTTP server listens on.
	Port string `yaml:"port"`

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// CacheTTL bounds how long computed status counts are served from
	// memory. Zero means entries never expire (flush via admin endpoint).
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// RateLimitRPS / RateLimitBurst tune the per-IP limiter on the
	// public routes.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// AdminKeyHash is the bcrypt hash of the admin API key. Empty
	// disables the admin endpoints.
	AdminKeyHash string `yaml:"admin_key_hash"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		AllowedOrigins: []string{"http://localhost:5173"},
		CacheTTL:       0,
		RateLimitRPS:   10,
		RateLimitBurst: 30,
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), then applies environment overrides.
//
// Environment variables:
//   - PORT: listen port
//   - CACHE_TTL: Go duration string, e.g. "6h"
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST
//   - ADMIN_KEY_HASH: bcrypt hash of the admin key
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Config file is optional.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = ttl
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = burst
	}
	if v := os.Getenv("ADMIN_KEY_HASH"); v != "" {
		cfg.AdminKeyHash = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate_limit_rps must be positive, got %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate_limit_burst must be positive, got %d", c.RateLimitBurst)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %v", c.CacheTTL)
	}
	return nil
}
