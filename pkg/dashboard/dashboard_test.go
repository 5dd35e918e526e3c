package dashboard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftwave-org/swctl/internal/config"
	"github.com/swiftwave-org/swctl/internal/testbackend"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/router"
	"github.com/swiftwave-org/swctl/pkg/store"
)

func testConfig(backend *testbackend.Backend) *config.Config {
	cfg := config.Default()
	cfg.Endpoints.Server = backend.URL
	cfg.Ephemeral = true
	cfg.Auth.CheckInterval = 20 * time.Millisecond
	cfg.Auth.LoginTransition = 10 * time.Millisecond
	cfg.Auth.LogoutRedirect = 10 * time.Millisecond
	cfg.GraphQL.Timeout = 5 * time.Second
	cfg.WebSocket.Retries = 1
	return cfg
}

func newTestDashboard(t *testing.T, cfg *config.Config, name string) *Dashboard {
	t.Helper()
	d, err := New(context.Background(), Options{Config: cfg, Context: name, Logger: log.NewTestLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func login(t *testing.T, d *Dashboard) {
	t.Helper()
	res := d.Session.Login(context.Background(), "admin", "secret", "")
	require.True(t, res.Success, res.Message)
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.NetworkErrorPolicy = "sometimes"
	_, err := New(context.Background(), Options{Config: cfg, Logger: log.NewTestLogger()})
	assert.Error(t, err)

	cfg = config.Default()
	cfg.GraphQL.FetchPolicy = "cache-last"
	_, err = New(context.Background(), Options{Config: cfg, Logger: log.NewTestLogger()})
	assert.Error(t, err)
}

func TestLoginThenQuery(t *testing.T) {
	backend := testbackend.New(t)
	d := newTestDashboard(t, testConfig(backend), "default")

	assert.False(t, d.Session.IsLoggedIn())
	loc, err := d.Navigate("/applications")
	require.NoError(t, err)
	assert.Equal(t, "/login?redirect=/applications", loc.String())

	_, err = d.Applications.ListApplications(context.Background())
	assert.Error(t, err, "no bearer token before login")

	login(t, d)
	assert.Equal(t, "Bearer "+backend.Token, d.Session.FetchBearerToken())

	apps, err := d.Applications.ListApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "web", apps[0].Name)

	loc, err = d.Navigate("/login")
	require.NoError(t, err)
	assert.Equal(t, router.NameApplications, loc.Name)

	assert.Equal(t, "v2.2.0", d.Session.FetchSWVersion(context.Background()))
}

func TestSessionPersistsPerContext(t *testing.T) {
	backend := testbackend.New(t)
	cfg := testConfig(backend)
	cfg.Ephemeral = false
	cfg.StateDir = t.TempDir()

	first, err := New(context.Background(), Options{Config: cfg, Context: "prod", Logger: log.NewTestLogger()})
	require.NoError(t, err)
	login(t, first)
	require.NoError(t, first.Close())

	second := newTestDashboard(t, cfg, "prod")
	assert.True(t, second.Session.IsLoggedIn(), "token restored from the state directory")
	assert.Equal(t, "Bearer "+backend.Token, second.Session.FetchBearerToken())
	require.NoError(t, second.Close())

	other := newTestDashboard(t, cfg, "staging")
	assert.False(t, other.Session.IsLoggedIn())
}

func TestEncryptedState(t *testing.T) {
	backend := testbackend.New(t)
	cfg := testConfig(backend)
	cfg.Ephemeral = false
	cfg.StateDir = filepath.Join(t.TempDir(), "state")
	cfg.StateEncryption = config.StateEncryption{Enabled: true}

	first, err := New(context.Background(), Options{Config: cfg, Context: "default", Logger: log.NewTestLogger()})
	require.NoError(t, err)
	login(t, first)
	require.NoError(t, first.Close())

	assert.FileExists(t, cfg.StateKeyFile())

	second := newTestDashboard(t, cfg, "default")
	assert.True(t, second.Session.IsLoggedIn())
}

func TestLogoutNavigatesToLogin(t *testing.T) {
	backend := testbackend.New(t)
	d := newTestDashboard(t, testConfig(backend), "default")
	login(t, d)

	_, err := d.Navigate("/servers")
	require.NoError(t, err)

	require.NoError(t, d.Session.Logout(context.Background()))
	assert.Eventually(t, func() bool {
		return d.Router.Current().Name == router.NameLogin
	}, time.Second, 5*time.Millisecond)

	_, err = d.State.Get(context.Background(), "default", store.KeyToken)
	assert.True(t, store.IsNotFound(err))
}

func TestEditorApplyNavigatesToDeployments(t *testing.T) {
	backend := testbackend.New(t)
	d := newTestDashboard(t, testConfig(backend), "default")
	login(t, d)

	ed, err := d.Editor(context.Background(), "app-1")
	require.NoError(t, err)
	assert.False(t, ed.IsChanged())

	ed.SetReplicas(6)
	_, err = ed.Apply(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/application/app-1/deployments", d.Router.Current().Path)
	require.Len(t, backend.Inputs(), 1)
	assert.Equal(t, uint(6), backend.Inputs()[0].Replicas)

	_, err = d.Editor(context.Background(), "missing")
	assert.Error(t, err)
}

func TestAuthCheckerLogsOutOnRejectedToken(t *testing.T) {
	backend := testbackend.New(t)
	d := newTestDashboard(t, testConfig(backend), "default")
	login(t, d)

	invalid := make(chan struct{}, 1)
	require.NoError(t, d.StartAuthChecker(func() {
		select {
		case invalid <- struct{}{}:
		default:
		}
	}))
	require.NoError(t, d.StartAuthChecker(nil), "second start is a no-op")

	time.Sleep(50 * time.Millisecond)
	assert.True(t, d.Session.IsLoggedIn(), "valid token survives the check")

	backend.Lock()
	backend.Token = testbackend.NewToken("admin", time.Now().Add(time.Hour))
	backend.Unlock()

	select {
	case <-invalid:
	case <-time.After(2 * time.Second):
		t.Fatal("auth checker did not report the rejected token")
	}
	assert.False(t, d.Session.IsLoggedIn())
}

func TestAuthCheckerFailOpen(t *testing.T) {
	backend := testbackend.New(t)
	d := newTestDashboard(t, testConfig(backend), "default")
	login(t, d)
	require.NoError(t, d.StartAuthChecker(nil))

	backend.Lock()
	backend.Down = true
	backend.Unlock()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, d.Session.IsLoggedIn(), "unreachable server keeps the session")
}

func TestClose(t *testing.T) {
	backend := testbackend.New(t)
	cfg := testConfig(backend)
	cfg.Log.Level = "error"

	d, err := New(context.Background(), Options{Config: cfg})
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.StartAuthChecker(nil), ErrClosed)
}
