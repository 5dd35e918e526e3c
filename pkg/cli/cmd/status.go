package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
)

// statusReport is the machine-readable form of 'swctl status'.
type statusReport struct {
	Server         string `json:"server"`
	Context        string `json:"context"`
	Reachable      bool   `json:"reachable"`
	Latency        string `json:"latency,omitempty"`
	LoggedIn       bool   `json:"loggedIn"`
	TokenValid     bool   `json:"tokenValid"`
	Username       string `json:"username,omitempty"`
	SessionExpires string `json:"sessionExpires,omitempty"`
	Version        string `json:"version"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server reachability and the session of the selected context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDashboard(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				r, err := collectStatus(ctx, d)
				if err != nil {
					return err
				}
				if done, err := outputResource(cmd.OutOrStdout(), r); done {
					return err
				}
				printStatus(cmd, r)
				return nil
			})
		},
	}
}

func collectStatus(ctx context.Context, d *dashboard.Dashboard) (*statusReport, error) {
	endpoints, err := d.Config.Endpoints.Resolve()
	if err != nil {
		return nil, err
	}
	r := &statusReport{
		Server:   endpoints.Server,
		Context:  d.Context,
		LoggedIn: d.Session.IsLoggedIn(),
	}

	health, err := d.Health.GetHealth(ctx, "")
	if err != nil {
		return nil, err
	}
	r.Reachable = health.Reachable
	if health.Reachable {
		r.Latency = health.Latency.Round(time.Millisecond).String()
	}

	if r.LoggedIn {
		r.TokenValid = d.Session.CheckAuthStatus(ctx)
		r.SessionExpires = d.Session.SessionRelativeTimeoutStatus()
		r.Username = d.Session.Username()
	}
	r.Version = d.Session.FetchSWVersion(ctx)
	return r, nil
}

func printStatus(cmd *cobra.Command, r *statusReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, format.Label("Server", r.Server))
	fmt.Fprintln(out, format.Label("Context", r.Context))

	reach := format.StatusLabel("unreachable")
	if r.Reachable {
		reach = fmt.Sprintf("%s (%s)", format.StatusLabel("ok"), r.Latency)
	}
	fmt.Fprintln(out, format.Label("Reachable", reach))
	fmt.Fprintln(out, format.Label("Version", r.Version))

	if !r.LoggedIn {
		fmt.Fprintln(out, format.Label("Session", format.Dim("not logged in")))
		return
	}
	fmt.Fprintln(out, format.Label("Username", r.Username))
	fmt.Fprintln(out, format.Label("Session Expires", r.SessionExpires))
	if r.TokenValid {
		fmt.Fprintln(out, format.Label("Token", format.Success("valid")))
	} else {
		fmt.Fprintln(out, format.Label("Token", format.Error("rejected")))
	}
}
