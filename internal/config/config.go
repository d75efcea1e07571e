// Package config reads service settings from the environment. A .env file
// in the working directory is loaded first when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tourney/internal/schedule"
)

type Config struct {
	Port           string
	DatabaseURL    string
	DBMigrate      bool
	RedisURL       string
	RateRPS        float64
	RateBurst      int
	LogLevel       slog.Level
	ExactMaxTeams  int
	ByePolicy      schedule.ByePolicy
	AuthMode       string
	AuthHMACSecret string
}

// FromEnv loads .env (if any) and parses the process environment.
func FromEnv() (Config, error) {
	_ = godotenv.Load(".env")
	return Parse(os.Getenv)
}

// Parse builds a Config from getenv, applying defaults for unset keys.
func Parse(getenv func(string) string) (Config, error) {
	c := Config{
		Port:           envOr(getenv, "PORT", "8080"),
		DatabaseURL:    strings.TrimSpace(getenv("DATABASE_URL")),
		DBMigrate:      getenv("DB_MIGRATE") != "false",
		RedisURL:       strings.TrimSpace(getenv("REDIS_URL")),
		AuthMode:       strings.ToLower(envOr(getenv, "AUTH_MODE", "dev")),
		AuthHMACSecret: getenv("AUTH_HMAC_SECRET"),
	}
	var err error
	if c.RateRPS, err = strconv.ParseFloat(envOr(getenv, "RATE_RPS", "5"), 64); err != nil || c.RateRPS < 0 {
		return Config{}, fmt.Errorf("RATE_RPS: invalid value %q", getenv("RATE_RPS"))
	}
	if c.RateBurst, err = strconv.Atoi(envOr(getenv, "RATE_BURST", "10")); err != nil || c.RateBurst < 0 {
		return Config{}, fmt.Errorf("RATE_BURST: invalid value %q", getenv("RATE_BURST"))
	}
	if c.ExactMaxTeams, err = strconv.Atoi(envOr(getenv, "EXACT_MAX_TEAMS", "4")); err != nil || c.ExactMaxTeams < 2 {
		return Config{}, fmt.Errorf("EXACT_MAX_TEAMS: invalid value %q", getenv("EXACT_MAX_TEAMS"))
	}
	if err := c.LogLevel.UnmarshalText([]byte(envOr(getenv, "LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.ByePolicy, err = schedule.ParseByePolicy(getenv("BYE_POLICY")); err != nil {
		return Config{}, fmt.Errorf("BYE_POLICY: %w", err)
	}
	switch c.AuthMode {
	case "dev":
	case "hmac":
		if c.AuthHMACSecret == "" {
			return Config{}, fmt.Errorf("AUTH_MODE=hmac requires AUTH_HMAC_SECRET")
		}
	default:
		return Config{}, fmt.Errorf("AUTH_MODE: unsupported mode %q", c.AuthMode)
	}
	return c, nil
}

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// Snapshot is the redacted view served by the debug endpoint.
func (c Config) Snapshot() map[string]any {
	return map[string]any{
		"PORT":             c.Port,
		"RATE_RPS":         c.RateRPS,
		"RATE_BURST":       c.RateBurst,
		"LOG_LEVEL":        c.LogLevel.String(),
		"EXACT_MAX_TEAMS":  c.ExactMaxTeams,
		"BYE_POLICY":       c.ByePolicy.String(),
		"AUTH_MODE":        c.AuthMode,
		"HAS_DATABASE_URL": c.DatabaseURL != "",
		"HAS_REDIS_URL":    c.RedisURL != "",
	}
}

func envOr(getenv func(string) string, k, d string) string {
	if v := strings.TrimSpace(getenv(k)); v != "" {
		return v
	}
	return d
}
