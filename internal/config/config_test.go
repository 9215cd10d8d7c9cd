package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	"TODO_SERVER_ADDR",
	"TODO_DATABASE_PATH",
	"TODO_AUTH_ENABLED",
	"TODO_AUTH_JWTSECRET",
	"TODO_AUTH_TOKENTTLMINUTES",
	"TODO_AUTH_BCRYPTCOST",
	"TODO_TODO_IDSCOPE",
	"TODO_STORAGE_BUCKET",
	"TODO_SNAPSHOT_INTERVAL",
	"TODO_SNAPSHOT_RETAIN",
	"TODO_LOG_LEVEL",
}

// isolateConfigEnv unsets every TODO_ variable Load reads and restores them afterwards.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3001", cfg.Server.Addr)
	assert.Equal(t, "data/todos.db", cfg.Database.Path)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 15, cfg.Auth.TokenTTLMinutes)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL())
	assert.Equal(t, "global", cfg.Todo.IDScope)
	assert.Equal(t, time.Hour, cfg.Snapshot.Interval)
	assert.Equal(t, 24, cfg.Snapshot.Retain)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TODO_SERVER_ADDR", "127.0.0.1:9090")
	t.Setenv("TODO_AUTH_ENABLED", "false")
	t.Setenv("TODO_AUTH_JWTSECRET", "s3cret")
	t.Setenv("TODO_AUTH_TOKENTTLMINUTES", "60")
	t.Setenv("TODO_TODO_IDSCOPE", "owner")
	t.Setenv("TODO_SNAPSHOT_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, "owner", cfg.Todo.IDScope)
	assert.Equal(t, 5*time.Minute, cfg.Snapshot.Interval)
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Auth.Enabled = true
	assert.Error(t, cfg.Validate(), "secret required with auth on")

	cfg.Auth.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	cfg.Todo.IDScope = "tenant"
	assert.Error(t, cfg.Validate())

	cfg.Todo.IDScope = "owner"
	cfg.Snapshot.Retain = -1
	assert.Error(t, cfg.Validate())

	var anonymous Config
	assert.NoError(t, anonymous.Validate(), "no secret needed with auth off")
}
