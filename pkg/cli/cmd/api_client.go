package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/internal/config"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in, run 'swctl login' first")

// loadEffectiveConfig reads the config file and overlays the selected
// context. Environment overrides win over the context.
func loadEffectiveConfig() (*config.Config, string, error) {
	cc, err := loadContextConfig()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, "", err
	}

	name := selectedContext(cc)
	ctx, ok := cc.Contexts[name]
	switch {
	case ok:
		applyContext(&cfg.Endpoints, ctx)
	case name != cc.CurrentContext:
		return nil, "", fmt.Errorf("context '%s' does not exist", name)
	}

	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, name, nil
}

// applyContext copies the context endpoints into e unless the matching
// environment variable is set.
func applyContext(e *config.Endpoints, ctx Context) {
	set := func(dst *string, value string, env ...string) {
		if value == "" {
			return
		}
		for _, name := range env {
			if _, ok := os.LookupEnv(name); ok {
				return
			}
		}
		*dst = value
	}
	set(&e.Server, ctx.Server, "SWCTL_SERVER", "SWCTL_ENDPOINTS_SERVER")
	set(&e.GraphQLHTTPBaseURL, ctx.GraphQLHTTPBaseURL, "SWCTL_GRAPHQL_HTTP_BASE_URL", "SWCTL_ENDPOINTS_GRAPHQL_HTTP_BASE_URL")
	set(&e.GraphQLWSBaseURL, ctx.GraphQLWSBaseURL, "SWCTL_GRAPHQL_WS_BASE_URL", "SWCTL_ENDPOINTS_GRAPHQL_WS_BASE_URL")
	set(&e.HTTPBaseURL, ctx.HTTPBaseURL, "SWCTL_HTTP_BASE_URL", "SWCTL_ENDPOINTS_HTTP_BASE_URL")
}

// openDashboard builds a dashboard session for the selected context.
func openDashboard(cmd *cobra.Command) (*dashboard.Dashboard, error) {
	cfg, name, err := loadEffectiveConfig()
	if err != nil {
		return nil, err
	}
	return dashboard.New(commandContext(cmd), dashboard.Options{Config: cfg, Context: name})
}

// withDashboard opens a dashboard, runs fn and closes it.
func withDashboard(cmd *cobra.Command, fn func(ctx context.Context, d *dashboard.Dashboard) error) error {
	d, err := openDashboard(cmd)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(commandContext(cmd), d)
}

// withSession is withDashboard for commands that need a logged-in session.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, d *dashboard.Dashboard) error) error {
	return withDashboard(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
		if !d.Session.IsLoggedIn() {
			return errNotLoggedIn
		}
		return fn(ctx, d)
	})
}
