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

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvUpstreamURL, EnvModel, EnvHost, EnvPort, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultUpstreamURL, cfg.Upstream.URL)
	assert.Equal(t, DefaultModel, cfg.Upstream.Model)
	assert.Equal(t, 20*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 0.2, cfg.Upstream.Temperature)
	assert.Equal(t, 50, cfg.Upstream.NumPredict)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.True(t, cfg.CORS.AllowCredentials)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9090
upstream:
  model: llama3.2
  timeout: 5s
cors:
  allow_origins: ["https://app.example.com"]
  allow_credentials: false
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, "llama3.2", cfg.Upstream.Model)
	assert.Equal(t, DefaultUpstreamURL, cfg.Upstream.URL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowOrigins)
	assert.False(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvUpstreamURL, "http://ollama:11434/api/chat")
	t.Setenv(EnvModel, "mistral")
	t.Setenv(EnvPort, "8123")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://ollama:11434/api/chat", cfg.Upstream.URL)
	assert.Equal(t, "mistral", cfg.Upstream.Model)
	assert.Equal(t, 8123, cfg.Server.Port)
}

func TestLoadRejectsBadPortFromEnvironment(t *testing.T) {
	t.Setenv(EnvPort, "eighty")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPort)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "port too large", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "empty url", mutate: func(c *Config) { c.Upstream.URL = " " }, wantErr: "upstream.url"},
		{name: "relative url", mutate: func(c *Config) { c.Upstream.URL = "/api/chat" }, wantErr: "absolute"},
		{name: "empty model", mutate: func(c *Config) { c.Upstream.Model = "" }, wantErr: "upstream.model"},
		{name: "zero timeout", mutate: func(c *Config) { c.Upstream.Timeout = 0 }, wantErr: "upstream.timeout"},
		{name: "negative num_predict", mutate: func(c *Config) { c.Upstream.NumPredict = -1 }, wantErr: "num_predict"},
		{name: "blank origin", mutate: func(c *Config) { c.CORS.AllowOrigins = []string{""} }, wantErr: "cors"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
