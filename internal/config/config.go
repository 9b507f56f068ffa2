package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// MinRosterLimit leaves room for a roster header and a few profile lines.
const MinRosterLimit = 256

// Config holds everything the bot process needs.
type Config struct {
	Token       string
	Store       string
	PollTimeout time.Duration
	RosterLimit int
	Debug       bool
}

// Keys double as environment variable names.
const (
	KeyToken       = "TELEGRAM_TOKEN"
	KeyStore       = "BOT_STORE"
	KeyPollTimeout = "BOT_POLL_TIMEOUT"
	KeyRosterLimit = "BOT_ROSTER_LIMIT"
	KeyDebug       = "BOT_DEBUG"
)

// NewViper returns a viper instance with defaults applied that reads the
// process environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyStore, StoreMemory)
	v.SetDefault(KeyPollTimeout, 10*time.Second)
	v.SetDefault(KeyRosterLimit, 4000)
	v.SetDefault(KeyDebug, false)
	v.AutomaticEnv()
	return v
}

// LoadEnvFiles loads the given .env files into the environment. Missing
// files are reported but not fatal; variables already set win.
func LoadEnvFiles(paths ...string) []error {
	var errs []error
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			errs = append(errs, fmt.Errorf("env file %s: %w", p, err))
		}
	}
	return errs
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Token:       strings.TrimSpace(v.GetString(KeyToken)),
		Store:       strings.ToLower(strings.TrimSpace(v.GetString(KeyStore))),
		PollTimeout: v.GetDuration(KeyPollTimeout),
		RosterLimit: v.GetInt(KeyRosterLimit),
		Debug:       v.GetBool(KeyDebug),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%s is required", KeyToken)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", KeyStore, StoreMemory, StoreSQLite, c.Store)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyPollTimeout)
	}
	// Telegram rejects messages over 4096 characters.
	if c.RosterLimit < MinRosterLimit || c.RosterLimit > 4096 {
		return fmt.Errorf("%s must be between %d and 4096", KeyRosterLimit, MinRosterLimit)
	}
	return nil
}
