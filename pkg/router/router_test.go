package router

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftwave-org/swctl/pkg/log"
)

type fakeAuth struct{ loggedIn bool }

func (f *fakeAuth) IsLoggedIn() bool { return f.loggedIn }

func newTestRouter(t *testing.T, loggedIn bool) (*Router, *fakeAuth) {
	t.Helper()
	auth := &fakeAuth{loggedIn: loggedIn}
	r, err := New(NewGuard(auth), Options{Logger: log.NewTestLogger()})
	require.NoError(t, err)
	return r, auth
}

func TestResolve(t *testing.T) {
	r, _ := newTestRouter(t, true)

	tests := []struct {
		path   string
		name   string
		params map[string]string
	}{
		{path: "/applications", name: NameApplications},
		{path: "/application/abc", name: NameApplicationDetails, params: map[string]string{"id": "abc"}},
		{path: "/application/abc/deployments", name: "Application Details Deployments", params: map[string]string{"id": "abc"}},
		{
			path:   "/application/abc/deployment/d-1",
			name:   "Application Deployment Details",
			params: map[string]string{"id": "abc", "deployment_id": "d-1"},
		},
		{path: "/deploy/app-store/install", name: "Install from App Store"},
		{path: "/app_auth/basic_authentication", name: "Application Auth Basic ACL"},
		{path: "/pv-backup-download/7", name: "Download Persistent Volume Backup", params: map[string]string{"backup_id": "7"}},
		{path: "/server/analytics", name: "Server Analytics"},
		{path: "/logs?since=1h", name: "System Logs"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			loc, err := r.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.name, loc.Name)
			for k, v := range tt.params {
				assert.Equal(t, v, loc.Params[k])
			}
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	r, _ := newTestRouter(t, true)

	for _, p := range []string{"/nope", "/deploy", "/application", "/application/abc/unknown"} {
		_, err := r.Resolve(p)
		assert.True(t, errors.Is(err, ErrNotFound), p)
	}
}

func TestNavigateUnauthenticated(t *testing.T) {
	r, _ := newTestRouter(t, false)

	loc, err := r.Navigate("/maintenance")
	require.NoError(t, err)
	assert.Equal(t, NameMaintenance, loc.Name)

	loc, err = r.Navigate("/setup")
	require.NoError(t, err)
	assert.Equal(t, NameSetup, loc.Name)

	loc, err = r.Navigate("/applications")
	require.NoError(t, err)
	assert.Equal(t, NameLogin, loc.Name)
	assert.Equal(t, "/login?redirect=/applications", loc.String())
	assert.Equal(t, "/applications", loc.Query.Get("redirect"))

	loc, err = r.Navigate("/login")
	require.NoError(t, err)
	assert.Equal(t, NameLogin, loc.Name)
	assert.Empty(t, loc.Query)
}

func TestNavigateSetupUpdateQuery(t *testing.T) {
	r, _ := newTestRouter(t, false)

	loc, err := r.Navigate("/setup?update=0")
	require.NoError(t, err)
	assert.Equal(t, NameSetup, loc.Name)

	loc, err = r.Navigate("/setup?update=1")
	require.NoError(t, err)
	assert.Equal(t, NameLogin, loc.Name)
	assert.Equal(t, "/setup", loc.Query.Get("redirect"))

	loc, err = r.Navigate("/setup?update=")
	require.NoError(t, err)
	assert.Equal(t, NameLogin, loc.Name)
}

func TestNavigateAuthenticated(t *testing.T) {
	r, _ := newTestRouter(t, true)

	loc, err := r.Navigate("/login")
	require.NoError(t, err)
	assert.Equal(t, NameApplications, loc.Name)

	loc, err = r.Navigate("/")
	require.NoError(t, err)
	assert.Equal(t, NameApplications, loc.Name)

	loc, err = r.Navigate("/application/a1/environment_variables")
	require.NoError(t, err)
	assert.Equal(t, "Application Details Environment Variables", loc.Name)
	assert.Equal(t, loc, r.Current())

	_, err = r.Navigate("/missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, loc, r.Current(), "failed navigation keeps the current location")
}

func TestNavigateBlocked(t *testing.T) {
	r, auth := newTestRouter(t, true)

	r.Guard().Block(BlockMaintenance)
	assert.Equal(t, StateSystemBlocked, r.Guard().State())

	loc, err := r.Navigate("/applications")
	require.NoError(t, err)
	assert.Equal(t, NameMaintenance, loc.Name)

	r.Guard().Block(BlockSetup)
	auth.loggedIn = false
	loc, err = r.Navigate("/servers")
	require.NoError(t, err)
	assert.Equal(t, NameSetup, loc.Name)

	r.Guard().Unblock()
	assert.Equal(t, StateUnauthenticated, r.Guard().State())
	loc, err = r.Navigate("/servers")
	require.NoError(t, err)
	assert.Equal(t, NameLogin, loc.Name)
}

func TestNavigateRedirectLoop(t *testing.T) {
	routes := []Route{
		{Path: "/a", Redirect: "/b"},
		{Path: "/b", Redirect: "/a"},
	}
	r, err := New(NewGuard(&fakeAuth{loggedIn: true}), Options{Routes: routes, MaxRedirects: 3})
	require.NoError(t, err)

	_, err = r.Navigate("/a")
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestURL(t *testing.T) {
	r, _ := newTestRouter(t, true)

	u, err := r.URL("Application Deployment Details", "id", "app-1", "deployment_id", "d-9")
	require.NoError(t, err)
	assert.Equal(t, "/application/app-1/deployment/d-9", u)

	_, err = r.URL("Nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateRouteName(t *testing.T) {
	routes := []Route{{Name: "A", Path: "/a"}, {Name: "A", Path: "/b"}}
	_, err := New(NewGuard(&fakeAuth{}), Options{Routes: routes})
	assert.Error(t, err)
}

func TestSetupQueryAllows(t *testing.T) {
	update := func(v string) url.Values { return url.Values{"update": {v}} }

	assert.True(t, setupQueryAllows(nil))
	assert.True(t, setupQueryAllows(url.Values{"other": {"1"}}))
	assert.True(t, setupQueryAllows(update("0")))
	assert.True(t, setupQueryAllows(update("00")))
	assert.True(t, setupQueryAllows(update("0abc")))
	assert.False(t, setupQueryAllows(update("")))
	assert.False(t, setupQueryAllows(update("1")))
	assert.False(t, setupQueryAllows(update("abc")))
}

func TestHistory(t *testing.T) {
	r, _ := newTestRouter(t, true)
	_, err := r.Navigate("/servers")
	require.NoError(t, err)
	_, err = r.Navigate("/domains")
	require.NoError(t, err)

	h := r.History()
	require.Len(t, h, 2)
	assert.Equal(t, "Servers", h[0].Name)
	assert.Equal(t, "Domains", h[1].Name)
}
