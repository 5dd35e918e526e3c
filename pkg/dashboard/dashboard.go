// Package dashboard builds one dashboard session: the local state store,
// the auth store, the API clients and the router, wired together from a
// configuration.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/swiftwave-org/swctl/internal/config"
	"github.com/swiftwave-org/swctl/pkg/api/client"
	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/api/rest"
	"github.com/swiftwave-org/swctl/pkg/crypto"
	"github.com/swiftwave-org/swctl/pkg/draft"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/router"
	"github.com/swiftwave-org/swctl/pkg/session"
	"github.com/swiftwave-org/swctl/pkg/store"
	"github.com/swiftwave-org/swctl/pkg/worker/scheduler"
)

// Options configures New.
type Options struct {
	Config *config.Config

	// Context names the CLI context. Persisted state is kept per context.
	Context string

	// Logger replaces the logger built from Config.Log.
	Logger log.Logger

	// State replaces the store built from Config.StateDir.
	State store.Store

	// Transport is the HTTP transport shared by REST and GraphQL requests.
	Transport http.RoundTripper
}

// Dashboard owns every component of one session. It is safe for concurrent
// use; Close releases everything it started.
type Dashboard struct {
	Config *config.Config
	Logger log.Logger

	// Context is the CLI context the session belongs to.
	Context string

	State     store.Store
	Scheduler *scheduler.Scheduler

	REST    *rest.Client
	GraphQL *graphql.Client
	API     *client.Client

	Applications *client.ApplicationClient
	Deployments  *client.DeploymentClient
	Logs         *client.LogClient
	Health       *client.HealthClient
	Infra        *client.InfraClient

	Session *session.Store
	Router  *router.Router

	ws *graphql.WebSocketLink

	mu          sync.Mutex
	authChecker *scheduler.Handle
	closed      bool
}

// New builds a dashboard session and restores a persisted login.
func New(ctx context.Context, opts Options) (*Dashboard, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoints, err := cfg.Endpoints.Resolve()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		if logger, err = log.ApplyConfig(&cfg.Log); err != nil {
			return nil, fmt.Errorf("failed to configure logger: %w", err)
		}
	}

	name := opts.Context
	if name == "" {
		name = "default"
	}
	d := &Dashboard{Config: cfg, Logger: logger, Context: name}

	d.State = opts.State
	if d.State == nil {
		d.State, err = openState(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	d.Scheduler = scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: logger})
	d.Scheduler.Start()

	if err := d.buildClients(endpoints, opts.Transport); err != nil {
		d.release()
		return nil, err
	}

	d.Session, err = session.New(session.Options{
		API:             d.REST,
		State:           d.State,
		Namespace:       name,
		Scheduler:       d.Scheduler,
		Navigate:        d.navigateQuietly,
		CheckInterval:   cfg.Auth.CheckInterval,
		ClockTick:       cfg.Auth.ClockTick,
		LoginTransition: cfg.Auth.LoginTransition,
		LogoutRedirect:  cfg.Auth.LogoutRedirect,
		FailClosed:      !cfg.FailOpen(),
		DisableTimers:   cfg.Auth.DisableTimers,
		Logger:          logger,
	})
	if err != nil {
		d.release()
		return nil, err
	}

	d.Router, err = router.New(router.NewGuard(d.Session), router.Options{Logger: logger})
	if err != nil {
		d.release()
		return nil, err
	}

	if err := d.Session.Initialize(ctx); err != nil {
		d.release()
		return nil, err
	}

	logger.Debug("Dashboard ready",
		log.Str("server", endpoints.Server),
		log.Str("context", name),
		log.Bool("logged_in", d.Session.IsLoggedIn()))
	return d, nil
}

func openState(cfg *config.Config, logger log.Logger) (store.Store, error) {
	var opts []store.BadgerOption
	switch {
	case cfg.Ephemeral:
		opts = append(opts, store.WithInMemory())
	case cfg.StateEncryption.Enabled:
		key, source, err := crypto.LoadOrCreateKey(crypto.KeyOptions{
			EnvVar:   cfg.StateEncryption.KeyEnv,
			FilePath: cfg.StateKeyFile(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load state key: %w", err)
		}
		logger.Debug("State encryption enabled", log.Str("key_source", string(source)))
		opts = append(opts, store.WithEncryptionKey(key))
	}

	s := store.NewBadgerStore(logger, opts...)
	if err := s.Open(cfg.StateDir); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return s, nil
}

func (d *Dashboard) buildClients(endpoints config.Endpoints, transport http.RoundTripper) error {
	cfg := d.Config

	var err error
	d.REST, err = rest.NewClient(&rest.ClientOptions{
		BaseURL:   endpoints.HTTPBaseURL,
		Timeout:   cfg.GraphQL.Timeout,
		Transport: transport,
		Logger:    d.Logger.WithComponent("rest-client"),
	})
	if err != nil {
		return err
	}

	d.ws = graphql.NewWebSocketLink(graphql.WebSocketOptions{
		BaseURL: endpoints.GraphQLWSBaseURL,
		ConnectionParams: func(context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"authorization": d.bearer()}, nil
		},
		Retries:    cfg.WebSocket.Retries,
		MinBackoff: cfg.WebSocket.MinBackoff,
		MaxBackoff: cfg.WebSocket.MaxBackoff,
		AckTimeout: cfg.WebSocket.AckTimeout,
		Logger:     d.Logger,
	})

	httpLink := graphql.NewHTTPLink(endpoints.GraphQLHTTPBaseURL, d.REST.HTTPClient())
	link := graphql.Split(graphql.IsSubscription, d.ws, graphql.AuthLink(d.bearer, httpLink))

	policy, err := graphql.ParseFetchPolicy(cfg.GraphQL.FetchPolicy)
	if err != nil {
		return err
	}
	d.GraphQL, err = graphql.NewClient(graphql.ClientOptions{
		Link:     link,
		Defaults: graphql.DefaultOptions{Query: policy, Mutate: graphql.NoCache, WatchQuery: policy},
		CacheTTL: cfg.GraphQL.CacheTTL,
		Logger:   d.Logger,
	})
	if err != nil {
		return err
	}

	d.API, err = client.NewClient(&client.ClientOptions{
		GraphQL:     d.GraphQL,
		REST:        d.REST,
		CallTimeout: cfg.GraphQL.Timeout,
		Logger:      d.Logger,
	})
	if err != nil {
		return err
	}

	d.Applications = client.NewApplicationClient(d.API)
	d.Deployments = client.NewDeploymentClient(d.API)
	d.Logs = client.NewLogClient(d.API)
	d.Health = client.NewHealthClient(d.API)
	d.Infra = client.NewInfraClient(d.API)
	return nil
}

// bearer reads the token at request time, so links built before login
// pick it up.
func (d *Dashboard) bearer() string {
	if d.Session == nil {
		return ""
	}
	return d.Session.FetchBearerToken()
}

func (d *Dashboard) navigateQuietly(path string) {
	if d.Router == nil {
		return
	}
	if _, err := d.Router.Navigate(path); err != nil {
		d.Logger.Warn("Navigation failed", log.Str("path", path), log.Err(err))
	}
}

// Navigate passes path through the guard and returns where the user lands.
func (d *Dashboard) Navigate(path string) (router.Location, error) {
	return d.Router.Navigate(path)
}

// Editor loads a draft editor for the application. After a successful
// apply the router moves to the application's deployments page.
func (d *Dashboard) Editor(ctx context.Context, appID string) (*draft.Editor, error) {
	ed := draft.NewEditor(appID, d.Applications, draft.Options{
		OnApplied: func(id string) {
			path, err := d.Router.URL(router.NameApplicationDeployments, "id", id)
			if err != nil {
				d.Logger.Warn("Failed to build deployments path", log.AppID(id), log.Err(err))
				return
			}
			d.navigateQuietly(path)
		},
		Logger: d.Logger,
	})
	if err := ed.Load(ctx); err != nil {
		return nil, err
	}
	return ed, nil
}

// StartAuthChecker polls token validity and logs out when the server
// rejects it. onInvalid, if set, runs after the logout.
func (d *Dashboard) StartAuthChecker(onInvalid func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.authChecker != nil && d.authChecker.Active() {
		return nil
	}
	h, err := d.Session.StartAuthChecker(func() {
		if err := d.Session.Logout(context.Background()); err != nil {
			d.Logger.Warn("Logout after invalid token failed", log.Err(err))
		}
		if onInvalid != nil {
			onInvalid()
		}
	})
	if err != nil {
		return err
	}
	d.authChecker = h
	return nil
}

// ErrClosed is returned by operations on a closed Dashboard.
var ErrClosed = errors.New("dashboard is closed")

// Close stops the timers, closes the subscription socket and releases the
// state store. It is safe to call more than once.
func (d *Dashboard) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	return d.release()
}

func (d *Dashboard) release() error {
	if d.Session != nil {
		d.Session.Close()
	}
	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}

	var errs []error
	if d.ws != nil {
		if err := d.ws.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close websocket: %w", err))
		}
	}
	if d.State != nil {
		if err := d.State.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close state store: %w", err))
		}
	}
	return errors.Join(errs...)
}
