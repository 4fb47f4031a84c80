// Package config loads the run configuration from bridgepass.yaml and
// BRIDGEPASS_* environment variables. Command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/bridgepass/internal/pipeline"
)

// FileName is the config file base name, without extension.
const FileName = "bridgepass"

// EnvPrefix prefixes every environment override, e.g. BRIDGEPASS_JOURNAL.
const EnvPrefix = "BRIDGEPASS"

// Config is the run configuration.
type Config struct {
	// Registry is a CUE profile path. Empty selects the built-in profile.
	Registry string `mapstructure:"registry"`

	// Classpath lists stream files or directories holding library types.
	Classpath []string `mapstructure:"classpath"`

	// Journal is the SQLite run journal path. Empty disables journaling.
	Journal string `mapstructure:"journal"`

	// Stages selects and orders the passes.
	Stages []string `mapstructure:"stages"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig controls the CLI's slog handler.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// SlogLevel converts the configured level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("registry", "")
	v.SetDefault("classpath", []string{})
	v.SetDefault("journal", "")
	v.SetDefault("stages", pipeline.StageNames())
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads bridgepass.yaml (or .yml) from dir if present. A missing
// file is not an error; defaults and environment apply.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("no config file, using defaults", "dir", dir)
	}
	return decode(v)
}

// LoadFile reads an explicit config file. The file must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("loaded config", "file", used)
	}
	return &cfg, nil
}

// Validate checks stage names and the log level.
func (c *Config) Validate() error {
	known := pipeline.StageNames()
	if len(c.Stages) == 0 {
		return fmt.Errorf("stages must not be empty (known: %s)", strings.Join(known, ", "))
	}
	for _, s := range c.Stages {
		if !slices.Contains(known, s) {
			return fmt.Errorf("stages: unknown stage %q (known: %s)", s, strings.Join(known, ", "))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", c.Log.Level)
	}
	return nil
}
