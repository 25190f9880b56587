// Package config loads engine configuration from defaults, an optional YAML
// file, and PENSION_-prefixed environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server         ServerConfig         `koanf:"server"`
	SchemeRegistry SchemeRegistryConfig `koanf:"scheme_registry"`
	Log            LogConfig            `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// MaxConcurrentCalculations bounds the CPU-bound calculation work so
	// request-serving goroutines are never starved by a burst of batches.
	MaxConcurrentCalculations int `koanf:"max_concurrent_calculations"`
}

// SchemeRegistryConfig describes the external accrual-rate registry. An empty
// base URL disables it; all rates then fall back to the default.
type SchemeRegistryConfig struct {
	BaseURL      string `koanf:"base_url"`
	FetchTimeout string `koanf:"fetch_timeout"`
	JoinTimeout  string `koanf:"join_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func (c SchemeRegistryConfig) FetchTimeoutDuration() time.Duration {
	return parseDurationOr(c.FetchTimeout, 2*time.Second)
}

func (c SchemeRegistryConfig) JoinTimeoutDuration() time.Duration {
	return parseDurationOr(c.JoinTimeout, 3*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Load loads the configuration from the given file path (optional) and
// environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.host":                        "0.0.0.0",
		"server.port":                        8080,
		"server.max_concurrent_calculations": 64,
		"scheme_registry.base_url":           "",
		"scheme_registry.fetch_timeout":      "2s",
		"scheme_registry.join_timeout":       "3s",
		"log.level":                          "info",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// PENSION_SERVER__PORT=9090 overrides server.port
	if err := k.Load(env.Provider("PENSION_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PENSION_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
