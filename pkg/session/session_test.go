package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftwave-org/swctl/internal/testbackend"
	"github.com/swiftwave-org/swctl/pkg/api/rest"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/store"
	"github.com/swiftwave-org/swctl/pkg/worker/scheduler"
)

var fixedNow = time.Unix(1_700_000_000, 0)

type fakeAPI struct {
	loginToken string
	loginErr   error
	verifyErr  error
	version    string
	versionErr error

	verifyCalls atomic.Int32
	lastBearer  string
}

func (f *fakeAPI) Login(_ context.Context, _, _, _ string) (string, error) {
	return f.loginToken, f.loginErr
}

func (f *fakeAPI) VerifyAuth(_ context.Context, _ string) error {
	f.verifyCalls.Add(1)
	return f.verifyErr
}

func (f *fakeAPI) Version(_ context.Context, bearer string) (string, error) {
	f.lastBearer = bearer
	return f.version, f.versionErr
}

func newTestStore(t *testing.T, api AuthAPI, mutate ...func(*Options)) (*Store, store.Store) {
	t.Helper()

	state := store.NewMemoryStore()
	opts := Options{
		API:             api,
		State:           state,
		Namespace:       "test",
		DisableTimers:   true,
		LoginTransition: 20 * time.Millisecond,
		LogoutRedirect:  20 * time.Millisecond,
		Clock:           func() time.Time { return fixedNow },
		Logger:          log.NewTestLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, state
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{State: store.NewMemoryStore(), DisableTimers: true})
	assert.Error(t, err)

	_, err = New(Options{API: &fakeAPI{}, DisableTimers: true})
	assert.Error(t, err)

	_, err = New(Options{API: &fakeAPI{}, State: store.NewMemoryStore()})
	assert.Error(t, err, "scheduler is required when timers are enabled")
}

func TestLoginSuccess(t *testing.T) {
	token := testbackend.NewToken("admin", fixedNow.Add(3*time.Hour))
	s, state := newTestStore(t, &fakeAPI{loginToken: token})

	assert.Equal(t, "", s.FetchBearerToken())

	res := s.Login(context.Background(), "admin", "secret", "")
	assert.True(t, res.Success)
	assert.Equal(t, MessageLoggedIn, res.Message)
	assert.False(t, res.TOTPRequired)

	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "Bearer "+token, s.FetchBearerToken())
	assert.True(t, s.LoggingInProgress())
	assert.Eventually(t, func() bool { return !s.LoggingInProgress() }, time.Second, 5*time.Millisecond)

	persisted, err := state.Get(context.Background(), "test", store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, token, persisted)
}

// readOnlyState rejects every write.
type readOnlyState struct {
	store.Store
}

func (readOnlyState) Set(context.Context, string, string, string) error {
	return errors.New("disk full")
}

func TestLoginWhenTokenCannotBePersisted(t *testing.T) {
	token := testbackend.NewToken("admin", fixedNow.Add(time.Hour))
	s, _ := newTestStore(t, &fakeAPI{loginToken: token}, func(o *Options) {
		o.State = readOnlyState{Store: store.NewMemoryStore()}
	})

	res := s.Login(context.Background(), "admin", "secret", "")
	assert.True(t, res.Success)
	assert.Equal(t, MessageLoggedIn, res.Message)
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "Bearer "+token, s.FetchBearerToken())
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
		totp bool
	}{
		{
			name: "server message",
			err:  &rest.ResponseError{StatusCode: 401, Message: "Invalid username or password"},
			msg:  "Invalid username or password",
		},
		{
			name: "totp required",
			err:  &rest.ResponseError{StatusCode: 401, Message: "TOTP is required", TOTPRequired: true},
			msg:  "TOTP is required",
			totp: true,
		},
		{
			name: "unusable success body",
			err:  &rest.ResponseError{StatusCode: 200, Message: rest.MessageInvalidLoginResponse},
			msg:  rest.MessageInvalidLoginResponse,
		},
		{
			name: "no message",
			err:  &rest.ResponseError{StatusCode: 500},
			msg:  MessageUnexpectedError,
		},
		{
			name: "no response",
			err:  &rest.NetworkError{Op: "login", Err: errors.New("connection refused")},
			msg:  MessageRequestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, &fakeAPI{loginErr: tt.err})

			res := s.Login(context.Background(), "admin", "wrong", "")
			assert.False(t, res.Success)
			assert.Equal(t, tt.msg, res.Message)
			assert.Equal(t, tt.totp, res.TOTPRequired)
			assert.False(t, s.IsLoggedIn())
			assert.Equal(t, "", s.FetchBearerToken())
		})
	}
}

func TestLogout(t *testing.T) {
	var mu sync.Mutex
	var navigated []string

	token := testbackend.NewToken("admin", fixedNow.Add(time.Hour))
	s, state := newTestStore(t, &fakeAPI{loginToken: token}, func(o *Options) {
		o.Navigate = func(path string) {
			mu.Lock()
			navigated = append(navigated, path)
			mu.Unlock()
		}
	})

	require.True(t, s.Login(context.Background(), "admin", "secret", "").Success)
	require.NoError(t, s.Logout(context.Background()))

	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, "", s.FetchBearerToken())
	assert.True(t, s.LoggingInProgress())

	_, err := state.Get(context.Background(), "test", store.KeyToken)
	assert.True(t, store.IsNotFound(err))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(navigated) == 1 && navigated[0] == LoginPath
	}, time.Second, 5*time.Millisecond)
}

func TestCloseCancelsPendingRedirect(t *testing.T) {
	var navigated atomic.Bool
	s, _ := newTestStore(t, &fakeAPI{loginToken: "t"}, func(o *Options) {
		o.LogoutRedirect = 50 * time.Millisecond
		o.Navigate = func(string) { navigated.Store(true) }
	})

	require.NoError(t, s.Logout(context.Background()))
	s.Close()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, navigated.Load())
}

func TestCheckAuthStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		api := &fakeAPI{}
		s, _ := newTestStore(t, api)
		assert.False(t, s.CheckAuthStatus(ctx))
		assert.Equal(t, int32(0), api.verifyCalls.Load())
	})

	t.Run("valid", func(t *testing.T) {
		s, state := newTestStore(t, &fakeAPI{})
		require.NoError(t, state.Set(ctx, "test", store.KeyToken, "tok"))
		assert.True(t, s.CheckAuthStatus(ctx))
	})

	t.Run("unauthorized", func(t *testing.T) {
		s, state := newTestStore(t, &fakeAPI{verifyErr: &rest.ResponseError{StatusCode: 401}})
		require.NoError(t, state.Set(ctx, "test", store.KeyToken, "tok"))
		assert.False(t, s.CheckAuthStatus(ctx))
	})

	t.Run("network failure fails open", func(t *testing.T) {
		s, state := newTestStore(t, &fakeAPI{verifyErr: &rest.NetworkError{Op: "verify auth", Err: errors.New("refused")}})
		require.NoError(t, state.Set(ctx, "test", store.KeyToken, "tok"))
		assert.True(t, s.CheckAuthStatus(ctx))
	})

	t.Run("network failure fails closed", func(t *testing.T) {
		s, state := newTestStore(t,
			&fakeAPI{verifyErr: &rest.NetworkError{Op: "verify auth", Err: errors.New("refused")}},
			func(o *Options) { o.FailClosed = true })
		require.NoError(t, state.Set(ctx, "test", store.KeyToken, "tok"))
		assert.False(t, s.CheckAuthStatus(ctx))
	})
}

func TestLogoutOnInvalidToken(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{loginToken: "tok", verifyErr: &rest.ResponseError{StatusCode: 401}}
	s, _ := newTestStore(t, api)

	called := 0
	s.LogoutOnInvalidToken(ctx, func() { called++ })
	assert.Equal(t, 0, called, "no check while logged out")
	assert.Equal(t, int32(0), api.verifyCalls.Load())

	require.True(t, s.Login(ctx, "admin", "secret", "").Success)
	s.LogoutOnInvalidToken(ctx, func() { called++ })
	assert.Equal(t, 1, called)

	api.verifyErr = nil
	s.LogoutOnInvalidToken(ctx, func() { called++ })
	assert.Equal(t, 1, called)
}

func TestStartAuthChecker(t *testing.T) {
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: log.NewTestLogger()})
	sched.Start()
	defer sched.Stop()

	api := &fakeAPI{loginToken: "tok", verifyErr: &rest.ResponseError{StatusCode: 401}}
	s, _ := newTestStore(t, api, func(o *Options) {
		o.DisableTimers = false
		o.Scheduler = sched
		o.CheckInterval = 20 * time.Millisecond
	})
	require.True(t, s.Login(context.Background(), "admin", "secret", "").Success)

	var invalid atomic.Int32
	h, err := s.StartAuthChecker(func() { invalid.Add(1) })
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Active())

	assert.Eventually(t, func() bool { return invalid.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	s.Close()
	assert.False(t, h.Active())
}

func TestStartAuthCheckerDisabled(t *testing.T) {
	s, _ := newTestStore(t, &fakeAPI{})
	h, err := s.StartAuthChecker(func() {})
	assert.NoError(t, err)
	assert.Nil(t, h)
}

func TestSessionRelativeTimeoutStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("logged out", func(t *testing.T) {
		s, _ := newTestStore(t, &fakeAPI{})
		assert.Equal(t, "", s.SessionRelativeTimeoutStatus())
	})

	t.Run("future expiry", func(t *testing.T) {
		token := testbackend.NewToken("admin", fixedNow.Add(3*time.Hour))
		s, _ := newTestStore(t, &fakeAPI{loginToken: token})
		require.True(t, s.Login(ctx, "admin", "secret", "").Success)

		assert.Equal(t, "3 hours from now", s.SessionRelativeTimeoutStatus())
		assert.Equal(t, "admin", s.Username())
	})

	t.Run("expired", func(t *testing.T) {
		token := testbackend.NewToken("ops", fixedNow.Add(-5*time.Minute))
		s, _ := newTestStore(t, &fakeAPI{loginToken: token})
		require.True(t, s.Login(ctx, "ops", "secret", "").Success)

		assert.Equal(t, "5 minutes ago", s.SessionRelativeTimeoutStatus())
	})

	t.Run("undecodable", func(t *testing.T) {
		s, _ := newTestStore(t, &fakeAPI{loginToken: "not-a-jwt"})
		require.True(t, s.Login(ctx, "admin", "secret", "").Success)

		assert.Equal(t, TimeoutUnavailable, s.SessionRelativeTimeoutStatus())
	})
}

func TestSessionSnapshot(t *testing.T) {
	exp := fixedNow.Add(time.Hour)
	token := testbackend.NewToken("admin", exp)
	s, _ := newTestStore(t, &fakeAPI{loginToken: token})

	assert.False(t, s.Session().IsLoggedIn)

	require.True(t, s.Login(context.Background(), "admin", "secret", "").Success)
	sess := s.Session()
	assert.True(t, sess.IsLoggedIn)
	assert.Equal(t, "Bearer "+token, sess.BearerToken)
	assert.Equal(t, "admin", sess.Username)
	assert.Equal(t, exp.Unix(), sess.ExpiresAt.Unix())
}

func TestFetchSWVersion(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{loginToken: "tok", version: "v2.2.0"}
	s, _ := newTestStore(t, api)

	assert.Equal(t, VersionLoggedOut, s.FetchSWVersion(ctx))

	require.True(t, s.Login(ctx, "admin", "secret", "").Success)
	assert.Equal(t, "v2.2.0", s.FetchSWVersion(ctx))
	assert.Equal(t, "Bearer tok", api.lastBearer)

	api.versionErr = errors.New("boom")
	assert.Equal(t, VersionUnavailable, s.FetchSWVersion(ctx))
}

func TestInitializeRestoresToken(t *testing.T) {
	ctx := context.Background()
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: log.NewTestLogger()})
	sched.Start()
	defer sched.Stop()

	s, state := newTestStore(t, &fakeAPI{}, func(o *Options) {
		o.DisableTimers = false
		o.Scheduler = sched
	})
	require.NoError(t, state.Set(ctx, "test", store.KeyToken, "persisted"))

	require.NoError(t, s.Initialize(ctx))
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "Bearer persisted", s.FetchBearerToken())

	names := []string{}
	for _, info := range sched.List() {
		names = append(names, info.Name)
	}
	assert.Contains(t, names, "session-test-clock")

	s.Close()
	assert.Empty(t, sched.List())
}

func TestAgainstBackend(t *testing.T) {
	backend := testbackend.New(t)
	backend.TOTP = "123456"

	client, err := rest.NewClient(&rest.ClientOptions{BaseURL: backend.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	s, _ := newTestStore(t, client, func(o *Options) { o.Clock = time.Now })
	ctx := context.Background()

	res := s.Login(ctx, "admin", "secret", "")
	assert.False(t, res.Success)
	assert.True(t, res.TOTPRequired)

	res = s.Login(ctx, "admin", "secret", "123456")
	require.True(t, res.Success)
	assert.Equal(t, "Bearer "+backend.Token, s.FetchBearerToken())
	assert.True(t, s.CheckAuthStatus(ctx))
	assert.Equal(t, "v2.2.0", s.FetchSWVersion(ctx))

	backend.Lock()
	backend.Down = true
	backend.Unlock()
	assert.True(t, s.CheckAuthStatus(ctx), "unreachable backend fails open")

	backend.Lock()
	backend.Down = false
	backend.Token = "rotated"
	backend.Unlock()
	assert.False(t, s.CheckAuthStatus(ctx))
}
