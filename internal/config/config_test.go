package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Auth.CheckInterval)
	assert.Equal(t, 10*time.Second, cfg.Auth.ClockTick)
	assert.Equal(t, time.Second, cfg.Auth.LoginTransition)
	assert.Equal(t, 500*time.Millisecond, cfg.Auth.LogoutRedirect)
	assert.True(t, cfg.FailOpen())
	assert.Equal(t, FetchNoCache, cfg.GraphQL.FetchPolicy)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
endpoints:
  server: https://dash.example.com
auth:
  check_interval: 2s
  network_error_policy: fail-closed
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("SWCTL_HTTP_BASE_URL", "https://api.example.com/")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://dash.example.com", cfg.Endpoints.Server)
	assert.Equal(t, "https://api.example.com/", cfg.Endpoints.HTTPBaseURL)
	assert.Equal(t, 2*time.Second, cfg.Auth.CheckInterval)
	assert.False(t, cfg.FailOpen())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  network_error_policy: maybe\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEndpointsResolve(t *testing.T) {
	tests := []struct {
		name string
		in   Endpoints
		want Endpoints
	}{
		{
			name: "https origin",
			in:   Endpoints{Server: "https://dash.example.com/some/page"},
			want: Endpoints{
				Server:             "https://dash.example.com",
				GraphQLHTTPBaseURL: "https://dash.example.com",
				GraphQLWSBaseURL:   "wss://dash.example.com",
				HTTPBaseURL:        "https://dash.example.com",
			},
		},
		{
			name: "bare host",
			in:   Endpoints{Server: "10.0.0.5:3333"},
			want: Endpoints{
				Server:             "http://10.0.0.5:3333",
				GraphQLHTTPBaseURL: "http://10.0.0.5:3333",
				GraphQLWSBaseURL:   "ws://10.0.0.5:3333",
				HTTPBaseURL:        "http://10.0.0.5:3333",
			},
		},
		{
			name: "explicit overrides",
			in: Endpoints{
				Server:           "http://localhost:3333",
				GraphQLWSBaseURL: "wss://ws.example.com/",
				HTTPBaseURL:      "https://rest.example.com",
			},
			want: Endpoints{
				Server:             "http://localhost:3333",
				GraphQLHTTPBaseURL: "http://localhost:3333",
				GraphQLWSBaseURL:   "wss://ws.example.com",
				HTTPBaseURL:        "https://rest.example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateKeyFile(t *testing.T) {
	cfg := Default()
	cfg.StateDir = "/home/dev/.swctl/state"
	assert.Equal(t, "/home/dev/.swctl/state.key", cfg.StateKeyFile())
	assert.False(t, cfg.StateEncryption.Enabled)
	assert.Equal(t, "SWCTL_STATE_KEY", cfg.StateEncryption.KeyEnv)

	cfg.StateEncryption.KeyFile = "/keys/swctl.key"
	assert.Equal(t, "/keys/swctl.key", cfg.StateKeyFile())
}
