package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultDBPath      = "./brain_vault.db"
	DefaultTimezone    = "Australia/Adelaide"
	DefaultPollTimeout = 10 * time.Second
)

type Config struct {
	Token string

	DBPath      string
	Location    *time.Location
	PollTimeout time.Duration

	// MetricsAddr is where /metrics is served; empty disables it.
	MetricsAddr string

	LogLevel string
	Dev      bool
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Load reads .env files (when present) and the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Missing files are fine; real env vars always win.
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, errors.Wrapf(err, "godotenv.Load %s", f)
			}
		}
	}

	tzName := getEnv("BRAINVAULT_TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown timezone %q", tzName)
	}

	poll := DefaultPollTimeout
	if v := os.Getenv("BRAINVAULT_POLL_TIMEOUT"); v != "" {
		poll, err = time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(err, "BRAINVAULT_POLL_TIMEOUT")
		}
	}

	cfg := &Config{
		Token:       getEnv("BOT_TOKEN", os.Getenv("TELEGRAM_TOKEN")),
		DBPath:      getEnv("BRAINVAULT_DB", DefaultDBPath),
		Location:    loc,
		PollTimeout: poll,
		MetricsAddr: os.Getenv("BRAINVAULT_METRICS_ADDR"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Dev:         getBoolEnv("BRAINVAULT_DEV", false),
	}
	return cfg, nil
}

// RequireToken is the check serve mode needs before talking to Telegram.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return errors.New("BOT_TOKEN not set in environment")
	}
	return nil
}
