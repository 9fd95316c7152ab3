package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExplicitPathWithEnvOverlay(t *testing.T) {
	path := writeConfig(t, `
env: prod
storage:
  driver: mongo
  mongo_url: mongodb://db:27017/heap
relay:
  driver: nats
  topic: heap.events
`)
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, StorageMongo, cfg.Storage.Driver)
	assert.Equal(t, "mongodb://db:27017/heap", cfg.Storage.MongoURL)
	assert.Equal(t, RelayNATS, cfg.Relay.Driver)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, RelayNone, cfg.Relay.Driver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 256, cfg.Realtime.SendBuffer)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage:  StorageConfig{Driver: StorageSQLite, SQLitePath: "x.db"},
			Relay:    RelayConfig{Driver: RelayNone},
			Realtime: RealtimeConfig{SendBuffer: 8},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"sqlite without path", func(c *Config) { c.Storage.SQLitePath = "" }, true},
		{"mongo without url", func(c *Config) { c.Storage.Driver = StorageMongo }, true},
		{"unknown relay", func(c *Config) { c.Relay.Driver = "kafka" }, true},
		{"relay without topic", func(c *Config) { c.Relay.Driver = RelayRedis }, true},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"zero send buffer", func(c *Config) { c.Realtime.SendBuffer = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
