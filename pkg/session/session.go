// Package session holds the signed-in state of the dashboard: the bearer
// token, login and logout, the expiry countdown and periodic validity checks.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang-jwt/jwt/v4"

	"github.com/swiftwave-org/swctl/pkg/api/rest"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/store"
	"github.com/swiftwave-org/swctl/pkg/types"
	"github.com/swiftwave-org/swctl/pkg/worker/scheduler"
)

// Login messages.
const (
	MessageLoggedIn        = "Logged in successfully!"
	MessageUnexpectedError = "Unexpected error"
	MessageRequestFailed   = "Failed to send request"
)

// Placeholders returned by the display helpers.
const (
	VersionLoggedOut   = "..."
	VersionUnavailable = "N/A"
	TimeoutUnavailable = "N/A"
)

// LoginPath is where Logout navigates once the transition delay elapses.
const LoginPath = "/login"

// AuthAPI is the part of the REST client the session needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password, totp string) (string, error)
	VerifyAuth(ctx context.Context, token string) error
	Version(ctx context.Context, bearer string) (string, error)
}

// Options configures a Store.
type Options struct {
	API AuthAPI

	// State persists the token; Namespace separates CLI contexts.
	State     store.Store
	Namespace string

	// Scheduler runs the auth checker and the clock tick. Required unless
	// DisableTimers is set.
	Scheduler *scheduler.Scheduler

	// Navigate is called with LoginPath after logout.
	Navigate func(path string)

	CheckInterval   time.Duration
	ClockTick       time.Duration
	LoginTransition time.Duration
	LogoutRedirect  time.Duration

	// FailClosed treats a transport failure during verification as an
	// invalid token. By default the token is assumed valid.
	FailClosed bool

	// DisableTimers turns StartAuthChecker and the clock tick into no-ops.
	DisableTimers bool

	Clock  func() time.Time
	Logger log.Logger
}

// Store is the auth store of one dashboard session.
type Store struct {
	opts   Options
	logger log.Logger

	mu        sync.RWMutex
	token     string
	loggedIn  bool
	loggingIn bool
	username  string
	now       time.Time
	timers    []*time.Timer
	handles   []*scheduler.Handle
	closed    bool
}

// New creates a logged-out Store. Call Initialize to restore a persisted
// session.
func New(opts Options) (*Store, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("session requires an auth api")
	}
	if opts.State == nil {
		return nil, fmt.Errorf("session requires a state store")
	}
	if opts.Scheduler == nil && !opts.DisableTimers {
		return nil, fmt.Errorf("session requires a scheduler unless timers are disabled")
	}
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 5 * time.Second
	}
	if opts.ClockTick <= 0 {
		opts.ClockTick = 10 * time.Second
	}
	if opts.LoginTransition <= 0 {
		opts.LoginTransition = time.Second
	}
	if opts.LogoutRedirect <= 0 {
		opts.LogoutRedirect = 500 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Navigate == nil {
		opts.Navigate = func(string) {}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	return &Store{
		opts:   opts,
		logger: logger.WithComponent("auth"),
		now:    opts.Clock(),
	}, nil
}

// Initialize restores the persisted token, if any, and starts the clock
// tick that drives SessionRelativeTimeoutStatus.
func (s *Store) Initialize(ctx context.Context) error {
	s.logger.Debug("Initializing authentication")

	token, err := s.opts.State.Get(ctx, s.opts.Namespace, store.KeyToken)
	switch {
	case err == nil && token != "":
		s.logger.Debug("Found existing token, setting credentials")
		if err := s.setCredential(ctx, token); err != nil {
			s.logger.Warn("Restored token could not be persisted again", log.Err(err))
		}
	case err != nil && !store.IsNotFound(err):
		return fmt.Errorf("failed to read persisted token: %w", err)
	}

	if s.opts.DisableTimers {
		return nil
	}
	h, err := s.opts.Scheduler.ScheduleInterval(s.taskName("clock"), s.opts.ClockTick, func(context.Context) error {
		s.refreshClock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to start session clock: %w", err)
	}
	s.track(h)
	return nil
}

func (s *Store) taskName(task string) string {
	return "session-" + s.opts.Namespace + "-" + task
}

func (s *Store) track(h *scheduler.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles = append(s.handles, h)
}

func (s *Store) refreshClock() {
	now := s.opts.Clock()
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// after runs fn once d has elapsed unless the store is closed first.
func (s *Store) after(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.timers = append(s.timers, time.AfterFunc(d, fn))
}

// setCredential holds the token in memory, then persists it. A persist
// failure leaves the in-memory session logged in.
func (s *Store) setCredential(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.loggedIn = true
	s.loggingIn = true
	s.mu.Unlock()

	s.after(s.opts.LoginTransition, func() {
		s.mu.Lock()
		s.loggingIn = false
		s.mu.Unlock()
		s.logger.Debug("Login progress completed")
	})

	if err := s.opts.State.Set(ctx, s.opts.Namespace, store.KeyToken, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Login posts the credentials. Failures are described by the result, never
// returned as errors.
func (s *Store) Login(ctx context.Context, username, password, totp string) types.LoginResult {
	s.logger.Debug("Attempting login", log.Str("username", username))

	token, err := s.opts.API.Login(ctx, username, password, totp)
	if err != nil {
		s.logger.Debug("Login failed", log.Err(err))
		if resp, ok := rest.AsResponseError(err); ok {
			msg := resp.Message
			if msg == "" {
				msg = MessageUnexpectedError
			}
			return types.LoginResult{Message: msg, TOTPRequired: resp.TOTPRequired}
		}
		return types.LoginResult{Message: MessageRequestFailed}
	}

	if err := s.setCredential(ctx, token); err != nil {
		s.logger.Warn("Logged in but the token could not be persisted", log.Err(err))
	}
	s.logger.Info("Logged in", log.Str("username", username))
	return types.LoginResult{Success: true, Message: MessageLoggedIn}
}

// Logout forgets the session, clears the persisted state and navigates to
// the login page after the redirect delay. The in-memory session is cleared
// even when the persisted state cannot be.
func (s *Store) Logout(ctx context.Context) error {
	s.logger.Debug("Logging out user")

	s.mu.Lock()
	s.loggedIn = false
	s.token = ""
	s.username = ""
	s.loggingIn = true
	s.mu.Unlock()

	err := s.opts.State.Clear(ctx, s.opts.Namespace)

	s.after(s.opts.LogoutRedirect, func() {
		s.logger.Debug("Redirecting to login page")
		s.opts.Navigate(LoginPath)
	})

	if err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}

// IsLoggedIn reports whether a token is held.
func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// LoggingInProgress reports whether a login or logout transition is under
// way.
func (s *Store) LoggingInProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggingIn
}

// Username is the username claim of the token, known after the first
// SessionRelativeTimeoutStatus call.
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Session returns a copy of the current session.
func (s *Store) Session() types.Session {
	s.mu.RLock()
	token, loggedIn := s.token, s.loggedIn
	s.mu.RUnlock()

	sess := types.Session{IsLoggedIn: loggedIn}
	if !loggedIn {
		return sess
	}
	sess.BearerToken = "Bearer " + token
	if claims, err := decodeClaims(token); err == nil {
		sess.Username = claims.username
		sess.ExpiresAt = claims.expiresAt
	}
	return sess
}

// FetchBearerToken returns the Authorization header value, or "" when
// logged out.
func (s *Store) FetchBearerToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loggedIn {
		return ""
	}
	return "Bearer " + s.token
}

// CheckAuthStatus verifies the persisted token with the server. Only a 200
// is valid. Transport failures are treated as valid unless FailClosed is
// set.
func (s *Store) CheckAuthStatus(ctx context.Context) bool {
	token, err := s.opts.State.Get(ctx, s.opts.Namespace, store.KeyToken)
	if err != nil || token == "" {
		if err != nil && !store.IsNotFound(err) {
			s.logger.Warn("Failed to read persisted token", log.Err(err))
		}
		return false
	}

	err = s.opts.API.VerifyAuth(ctx, token)
	if err == nil {
		return true
	}
	if rest.IsNetworkError(err) {
		s.logger.Debug("Token verification unreachable", log.Err(err), log.Bool("fail_closed", s.opts.FailClosed))
		return !s.opts.FailClosed
	}
	s.logger.Debug("Token verification failed", log.Err(err))
	return false
}

// LogoutOnInvalidToken runs one check and calls onInvalid when it fails. It
// does nothing when logged out.
func (s *Store) LogoutOnInvalidToken(ctx context.Context, onInvalid func()) {
	if !s.IsLoggedIn() {
		return
	}
	if !s.CheckAuthStatus(ctx) {
		s.logger.Info("Token invalid, ending session")
		onInvalid()
	}
}

// StartAuthChecker runs LogoutOnInvalidToken every check interval. With
// timers disabled it returns a nil handle and no error.
func (s *Store) StartAuthChecker(onInvalid func()) (*scheduler.Handle, error) {
	if s.opts.DisableTimers {
		return nil, nil
	}
	s.logger.Debug("Starting auth checker", log.Duration("interval", s.opts.CheckInterval))

	h, err := s.opts.Scheduler.ScheduleInterval(s.taskName("auth-check"), s.opts.CheckInterval, func(ctx context.Context) error {
		s.LogoutOnInvalidToken(ctx, onInvalid)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start auth checker: %w", err)
	}
	s.track(h)
	return h, nil
}

// SessionRelativeTimeoutStatus describes the token expiry relative to the
// session clock, for example "3 hours from now" or "5 minutes ago". It is
// "" when logged out and "N/A" when the token cannot be decoded.
func (s *Store) SessionRelativeTimeoutStatus() string {
	s.mu.RLock()
	token, loggedIn, now := s.token, s.loggedIn, s.now
	s.mu.RUnlock()

	if !loggedIn || token == "" {
		return ""
	}

	claims, err := decodeClaims(token)
	if err != nil {
		s.logger.Debug("Failed to decode session token", log.Err(err))
		return TimeoutUnavailable
	}

	s.mu.Lock()
	s.username = claims.username
	s.mu.Unlock()

	return humanize.RelTime(claims.expiresAt, now, "ago", "from now")
}

// FetchSWVersion returns the backend version, "..." when logged out and
// "N/A" when the request fails.
func (s *Store) FetchSWVersion(ctx context.Context) string {
	bearer := s.FetchBearerToken()
	if bearer == "" {
		return VersionLoggedOut
	}
	v, err := s.opts.API.Version(ctx, bearer)
	if err != nil {
		s.logger.Debug("Failed to fetch software version", log.Err(err))
		return VersionUnavailable
	}
	return v
}

// Close stops the periodic tasks and pending transitions.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	timers, handles := s.timers, s.handles
	s.timers, s.handles = nil, nil
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	for _, h := range handles {
		h.Stop()
	}
}

type tokenClaims struct {
	username  string
	expiresAt time.Time
}

// decodeClaims reads exp and username without verifying the signature; the
// server is the authority on validity.
func decodeClaims(token string) (*tokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("token has no exp claim")
	}
	username, _ := claims["username"].(string)

	return &tokenClaims{
		username:  username,
		expiresAt: time.Unix(int64(exp), 0),
	}, nil
}
