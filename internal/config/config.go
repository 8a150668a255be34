// Package config holds the process-wide serialization defaults.
//
// The default is initialized once at startup (usually from Load), read by
// every call that does not override it, and reset only in tests.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/viper"

	"github.com/hanpama/gqlshape/internal/casing"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GQLSHAPE"

// Config is the set of options merged under per-call options.
type Config struct {
	// Case renames output keys.
	Case casing.Policy `mapstructure:"case" yaml:"case"`
	// Preload loads associations in place instead of reloading fresh copies.
	Preload bool `mapstructure:"preload" yaml:"preload"`
}

// SetCase assigns p, rejecting unsupported policies with a *casing.ConfigError.
func (c *Config) SetCase(p casing.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.Case = p
	return nil
}

// Validate reports whether c can be used.
func (c Config) Validate() error {
	return c.Case.Validate()
}

var current atomic.Pointer[Config]

func initial() Config {
	return Config{Case: casing.None, Preload: true}
}

// Default returns the current process-wide default.
func Default() Config {
	if c := current.Load(); c != nil {
		return *c
	}
	return initial()
}

// Configure edits a copy of the default with fn and installs it only when fn
// succeeds and the result is valid.
func Configure(fn func(*Config) error) error {
	for {
		old := current.Load()
		next := initial()
		if old != nil {
			next = *old
		}
		if err := fn(&next); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if current.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// Set installs c as the default.
func Set(c Config) error {
	return Configure(func(dst *Config) error {
		*dst = c
		return nil
	})
}

// Reset restores the built-in default. It exists for tests.
func Reset() {
	current.Store(nil)
}

// NewViper returns a viper instance reading GQLSHAPE_* environment variables
// and, when present, a gqlshape.yaml config file (or the file named by
// GQLSHAPE_CONFIG).
func NewViper() *viper.Viper {
	v := viper.New()
	if file := os.Getenv(EnvPrefix + "_CONFIG"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("gqlshape")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := initial()
	v.SetDefault("case", string(d.Case))
	v.SetDefault("preload", d.Preload)
	return v
}

// ReadConfigFile reads the configured file. A missing default file is not an
// error; a missing explicit file is.
func ReadConfigFile(v *viper.Viper) error {
	if file := os.Getenv(EnvPrefix + "_CONFIG"); file != "" {
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load builds a Config from flags, environment and config file as bound on v.
func Load(v *viper.Viper) (Config, error) {
	p, err := casing.ParsePolicy(v.GetString("case"))
	if err != nil {
		return Config{}, err
	}
	return Config{Case: p, Preload: v.GetBool("preload")}, nil
}
