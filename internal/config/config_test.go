package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LINE_CHANNEL_SECRET", "LINE_CHANNEL_ACCESS_TOKEN", "LINE_API_BASE",
		"STORE_DRIVER", "STORE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8011, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/data/diet-coach.db", cfg.Store.Path)
	assert.Equal(t, "https://api.line.me", cfg.Line.APIBase)
	assert.Equal(t, 5.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "coach.yaml")
	yamlDoc := `
env: production
server:
  host: 127.0.0.1
  port: 9000
store:
  driver: file
line:
  channel_secret: from-file
rate_limit:
  requests_per_second: 1.5
  burst: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0600))

	t.Setenv("LINE_CHANNEL_SECRET", "from-env")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "/data/sessions", cfg.Store.Path)
	assert.Equal(t, "from-env", cfg.Line.ChannelSecret)
	assert.Equal(t, 1.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 3, cfg.RateLimit.Burst)

	gw := cfg.GatewayConfig()
	assert.Equal(t, "token", gw.AccessToken)
	assert.Equal(t, "from-env", gw.ChannelSecret)

	st := cfg.StorageConfig()
	assert.Equal(t, "file", st.Driver)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown_driver", func(c *Config) { c.Store.Driver = "mongo" }, false},
		{"redis_without_addr", func(c *Config) { c.Store.Driver = "redis" }, false},
		{"redis_with_addr", func(c *Config) { c.Store.Driver = "redis"; c.Store.RedisAddr = "localhost:6379" }, true},
		{"bad_port", func(c *Config) { c.Server.Port = 70000 }, false},
		{"negative_rate", func(c *Config) { c.RateLimit.Burst = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
