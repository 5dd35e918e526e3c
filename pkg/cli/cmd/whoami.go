package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
)

func newWhoAmICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show current identity and context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				s := d.Session.Session()
				endpoints, err := d.Config.Endpoints.Resolve()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, format.Label("Server", endpoints.Server))
				fmt.Fprintln(out, format.Label("Context", d.Context))
				fmt.Fprintln(out, format.Label("Username", s.Username))
				if expiry := d.Session.SessionRelativeTimeoutStatus(); expiry != "" {
					fmt.Fprintln(out, format.Label("Session Expires", expiry))
				}
				fmt.Fprintln(out, format.Label("Token", maskToken(strings.TrimPrefix(s.BearerToken, "Bearer "))))
				return nil
			})
		},
	}
	return cmd
}
