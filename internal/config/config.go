// Package config loads service settings from flags, an optional config file
// and REPLAYCHECK_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/replaycheck/internal/replay"
)

// EnvPrefix prefixes every environment variable, e.g. REPLAYCHECK_ADDR.
const EnvPrefix = "REPLAYCHECK"

// Config keys.
const (
	KeyAddr           = "addr"
	KeyPolicy         = "policy"
	KeyDedupe         = "dedupe"
	KeyStabilityDelay = "stability_delay"
	KeyMaxSessions    = "max_sessions"
	KeyDatabase       = "database"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
)

// Defaults.
const (
	DefaultAddr           = ":8080"
	DefaultStabilityDelay = 8 * time.Second
	DefaultMaxSessions    = 128
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config holds the resolved settings.
type Config struct {
	Addr           string        `mapstructure:"addr" json:"addr"`
	Policy         replay.Policy `mapstructure:"policy" json:"policy"`
	Dedupe         bool          `mapstructure:"dedupe" json:"dedupe"`
	StabilityDelay time.Duration `mapstructure:"stability_delay" json:"stability_delay"`
	MaxSessions    int           `mapstructure:"max_sessions" json:"max_sessions"`
	Database       string        `mapstructure:"database" json:"database"`
	LogLevel       string        `mapstructure:"log_level" json:"log_level"`
	LogFormat      string        `mapstructure:"log_format" json:"log_format"`
}

// Options controls where Load looks for settings.
type Options struct {
	// File is an explicit config file. The format follows the extension.
	File string

	// Flags are bound by name. Flag names use dashes; "stability-delay"
	// binds to stability_delay.
	Flags *pflag.FlagSet
}

// New returns a viper instance with defaults registered.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAddr, DefaultAddr)
	v.SetDefault(KeyPolicy, string(replay.PolicyCounting))
	v.SetDefault(KeyDedupe, false)
	v.SetDefault(KeyStabilityDelay, DefaultStabilityDelay)
	v.SetDefault(KeyMaxSessions, DefaultMaxSessions)
	v.SetDefault(KeyDatabase, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	return v
}

// Load resolves the configuration and validates it.
func Load(opts Options) (*Config, error) {
	v := New()

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isKey(key string) bool {
	switch key {
	case KeyAddr, KeyPolicy, KeyDedupe, KeyStabilityDelay, KeyMaxSessions,
		KeyDatabase, KeyLogLevel, KeyLogFormat:
		return true
	}
	return false
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyAddr))
	}
	if _, err := replay.ParsePolicy(string(c.Policy)); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyPolicy, err))
	}
	if c.StabilityDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyStabilityDelay, c.StabilityDelay))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyMaxSessions, c.MaxSessions))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%s must be text or json, got %q", KeyLogFormat, c.LogFormat))
	}

	return errors.Join(errs...)
}
