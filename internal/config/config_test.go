package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".caldora.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Empty(t, cfg.Server.URL)
	assert.Empty(t, cfg.Sync.Schedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Cache.Path)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  url: https://dav.example.com/
  username: alice
  password: from-file
cache:
  path: /tmp/caldora.json
sync:
  schedule: "*/15 * * * *"
log_level: debug
`)
	t.Setenv("CALDORA_SERVER_PASSWORD", "from-env")

	v := viper.New()
	Setup(v, path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, Config{
		Server: ServerConfig{
			URL:      "https://dav.example.com/",
			Username: "alice",
			Password: "from-env",
		},
		Cache:    CacheConfig{Path: "/tmp/caldora.json"},
		Sync:     SyncConfig{Schedule: "*/15 * * * *"},
		LogLevel: "debug",
	}, cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"malformed yaml", writeConfig(t, "server: [unclosed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			Setup(v, tt.file)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:   ServerConfig{URL: "https://dav.example.com/", Username: "alice"},
		Cache:    CacheConfig{Path: "cache.json"},
		LogLevel: "info",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing url", func(c *Config) { c.Server.URL = "" }, "server.url is required"},
		{"not http", func(c *Config) { c.Server.URL = "ftp://dav.example.com/" }, "not an http(s) URL"},
		{"missing username", func(c *Config) { c.Server.Username = "" }, "server.username is required"},
		{"missing cache path", func(c *Config) { c.Cache.Path = "" }, "cache.path is required"},
		{"bad schedule", func(c *Config) { c.Sync.Schedule = "every tuesday" }, "sync.schedule"},
		{"good schedule", func(c *Config) { c.Sync.Schedule = "@hourly" }, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLevel(t *testing.T) {
	level, err := Config{LogLevel: "WARN"}.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
