// Package config loads the settings of the caldora-sync command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CALDORA_SERVER_URL.
const EnvPrefix = "CALDORA"

// ServerConfig holds the CalDAV account.
type ServerConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig holds where the local copy lives.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig holds the sync schedule. An empty schedule means one run.
type SyncConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// Config holds all runtime configuration.
// Values are populated from .caldora.yaml, CALDORA_* env vars, and CLI flags.
type Config struct {
	Server   ServerConfig `mapstructure:"server"`
	Cache    CacheConfig  `mapstructure:"cache"`
	Sync     SyncConfig   `mapstructure:"sync"`
	LogLevel string       `mapstructure:"log_level"`
}

// Setup points v at the config file and the environment. An empty file means
// .caldora.yaml in the working directory or the home directory.
func Setup(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".caldora")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from v, applying built-in defaults for any
// values not set by config file, environment, or flags. A missing config
// file is fine.
func Load(v *viper.Viper) (Config, error) {
	v.SetDefault("server.url", "")
	v.SetDefault("server.username", "")
	v.SetDefault("server.password", "")
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("sync.schedule", "")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to talk to a server.
func (c Config) Validate() error {
	var errs []error
	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	} else if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.url %q is not an http(s) URL", c.Server.URL))
	}
	if c.Server.Username == "" {
		errs = append(errs, errors.New("server.username is required"))
	}
	if c.Cache.Path == "" {
		errs = append(errs, errors.New("cache.path is required"))
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("sync.schedule %q: %w", c.Sync.Schedule, err))
		}
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "caldora-cache.json")
	}
	return filepath.Join(dir, "caldora", "cache.json")
}
