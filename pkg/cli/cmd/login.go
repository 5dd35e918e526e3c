package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
)

func newLoginCmd() *cobra.Command {
	var (
		server        string
		username      string
		totp          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a SwiftWave server",
		Long: `Sign in to a SwiftWave server and keep the session for the
selected context.

The password is read without echo. When the account has two-factor
authentication enabled you are asked for the TOTP code as well.`,
		Example: `  # Sign in to the current context
  swctl login -u admin

  # Point the current context at a server and sign in
  swctl login --server https://swiftwave.example.com -u admin

  # Read the password from stdin
  echo "$PASSWORD" | swctl login -u admin --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if server != "" {
				if err := setContextServer(server); err != nil {
					return err
				}
			}

			p := newPrompter(cmd)
			if username == "" {
				u, err := p.line("Username: ")
				if err != nil {
					return err
				}
				username = u
			}

			var (
				password string
				err      error
			)
			if passwordStdin {
				password, err = readPasswordStdin(cmd.InOrStdin())
			} else {
				password, err = p.secret("Password: ")
			}
			if err != nil {
				return err
			}

			return withDashboard(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				return runLogin(ctx, cmd, d, p, username, password, totp)
			})
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "set the server of the selected context before signing in")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVar(&totp, "totp", "", "TOTP code for two-factor authentication")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func runLogin(ctx context.Context, cmd *cobra.Command, d *dashboard.Dashboard, p *prompter, username, password, totp string) error {
	stop := startSpinner(cmd, "Signing in")
	res := d.Session.Login(ctx, username, password, totp)
	stop()

	if !res.Success && res.TOTPRequired && totp == "" {
		code, err := p.secret("TOTP: ")
		if err != nil {
			return err
		}
		stop = startSpinner(cmd, "Signing in")
		res = d.Session.Login(ctx, username, password, code)
		stop()
	}
	if !res.Success {
		return errors.New(res.Message)
	}

	format.PrintSuccess(cmd.OutOrStdout(), res.Message)
	return nil
}

// readPasswordStdin reads the first line of r.
func readPasswordStdin(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	password := strings.TrimRight(strings.SplitN(string(data), "\n", 2)[0], "\r")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}

// setContextServer stores server on the selected context.
func setContextServer(server string) error {
	cc, err := loadContextConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	name := selectedContext(cc)
	ctx := cc.Contexts[name]
	ctx.Server = server

	resolved, err := ctx.endpoints().Resolve()
	if err != nil {
		return err
	}
	ctx.Server = resolved.Server
	cc.Contexts[name] = ctx
	cc.CurrentContext = name

	if err := saveContextConfig(cc); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session of the selected context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDashboard(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				if !d.Session.IsLoggedIn() {
					fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
					return nil
				}
				if err := d.Session.Logout(ctx); err != nil {
					return err
				}
				format.PrintSuccess(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}
