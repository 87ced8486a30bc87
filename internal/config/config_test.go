package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"usergraph-portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigDefaults verifies the service can start with no file and no
// environment overrides.
func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.Development, cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Backend.FetchTimeout)
	assert.Equal(t, 300*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "demo@example.com", cfg.Demo.User)
	assert.Contains(t, cfg.LoadedFrom, "defaults")
}

// TestLoadConfigEnvOverrides verifies environment variables win over defaults.
func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BACKEND_BASE_URL", "https://graph.internal.example")
	t.Setenv("API_KEY", "secret-key")
	t.Setenv("DEMO_USER", "ops@example.com")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.Production, cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://graph.internal.example", cfg.Backend.BaseURL)
	assert.Equal(t, "secret-key", cfg.Backend.APIKey)
	assert.Equal(t, "ops@example.com", cfg.Demo.User)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

// TestLoadConfigFromFile verifies the YAML overlay sits between defaults and
// environment variables.
func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	data := []byte(`
backend:
  base_url: https://file.example.com
  api_key: from-file
server:
  port: 7070
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("API_KEY", "from-env")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Backend.APIKey, "env must override file")
	assert.Contains(t, cfg.LoadedFrom, path)
}

// TestConfigValidation covers values the server refuses to start with.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *config.Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "missing base url",
			mutate:  func(c *config.Config) { c.Backend.BaseURL = "" },
			wantErr: "base URL is required",
		},
		{
			name:    "non-http base url",
			mutate:  func(c *config.Config) { c.Backend.BaseURL = "ftp://api.example.com" },
			wantErr: "must be http(s)",
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(c *config.Config) { c.Backend.FetchTimeout = 0 },
			wantErr: "fetch timeout must be positive",
		},
		{
			name:    "unknown environment",
			mutate:  func(c *config.Config) { c.Environment = "staging" },
			wantErr: "unknown environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
			cfg, err := config.LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBackendURLJoining(t *testing.T) {
	b := config.Backend{
		BaseURL:   "https://api.example.com/",
		AuthPath:  "/v1/auth/login",
		GraphPath: "/v1/graph/fetch",
	}
	assert.Equal(t, "https://api.example.com/v1/auth/login", b.AuthURL())
	assert.Equal(t, "https://api.example.com/v1/graph/fetch", b.GraphURL())
}
