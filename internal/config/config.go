// Package config holds all anima-memory configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/GetAnima/anima-memory/internal/scoring"
)

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Limits  LimitsConfig  `toml:"limits"`
	Decay   scoring.Rates `toml:"decay"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	Root string `toml:"root"` // resolved at runtime via storage.DefaultRoot() when empty
}

type LimitsConfig struct {
	Episodes            int `toml:"episodes"`
	Knowledge           int `toml:"knowledge"`
	Failures            int `toml:"failures"`
	Situations          int `toml:"situations"`
	ActionsPerSituation int `toml:"actions_per_situation"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37911,
		},
		Limits: LimitsConfig{
			Episodes:            500,
			Knowledge:           200,
			Failures:            100,
			Situations:          200,
			ActionsPerSituation: 12,
		},
		Decay: scoring.DefaultRates(),
	}
}

// FromEnv applies ANIMA_ROOT and ANIMA_PORT overrides on top of the
// defaults.
func FromEnv() Config {
	cfg := Default()
	if root := os.Getenv("ANIMA_ROOT"); root != "" {
		cfg.Storage.Root = root
	}
	if port := os.Getenv("ANIMA_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	return cfg
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
