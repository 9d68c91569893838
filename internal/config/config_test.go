package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "selenex.db", cfg.GetDSN())
	assert.Equal(t, 5, cfg.Recorder.MaxParentDepth)
	assert.Equal(t, 500*time.Millisecond, cfg.Recorder.ScrollWindow)
	assert.Equal(t, []string{"Enter", "Escape", "Tab"}, cfg.Recorder.Keys)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selenex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
database:
  driver: mysql
  host: db.internal
  database: rec
recorder:
  scroll_window: 250ms
  keys: [Enter]
retention:
  max_age: 48h
`), 0o644))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("RECORDER_KEYS", "Enter, Escape ,")
	t.Setenv("RECORDER_ANCESTOR_LIMIT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "env overrides the file")
	assert.Equal(t, 250*time.Millisecond, cfg.Recorder.ScrollWindow)
	assert.Equal(t, []string{"Enter", "Escape"}, cfg.Recorder.Keys)
	assert.Equal(t, 0, cfg.Recorder.AncestorLimit, "unparsable values keep the previous one")
	assert.Equal(t, 48*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, "root:root@tcp(db.internal:3306)/rec?charset=utf8mb4&parseTime=True&loc=Local", cfg.GetDSN())
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	t.Setenv(ConfigFileEnv, path)
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, `unknown database driver "postgres"`},
		{"negative ancestor limit", func(c *Config) { c.Recorder.AncestorLimit = -1 }, "ancestor limit"},
		{"zero depth", func(c *Config) { c.Recorder.MaxParentDepth = 0 }, "max parent depth"},
		{"zero scroll window", func(c *Config) { c.Recorder.ScrollWindow = 0 }, "scroll window"},
		{"no keys", func(c *Config) { c.Recorder.Keys = nil }, "keys"},
		{"jwt without secret", func(c *Config) { c.JWT.Enabled = true; c.JWT.Secret = "" }, "jwt secret"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	assert.NoError(t, defaults().Validate())
}
