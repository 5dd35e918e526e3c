package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the session of the selected context",
	}
	cmd.AddCommand(newSessionWatchCmd())
	return cmd
}

func newSessionWatchCmd() *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the session countdown and token checks until the session ends",
		Long: `Watch the session countdown and token checks until the session ends.

The token is verified with the server on the configured interval. When
the server rejects it the session is logged out and the command exits.
Press Ctrl+C to stop watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				return watchSession(ctx, cmd, d, refresh)
			})
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", time.Second, "how often the display is refreshed")
	return cmd
}

// sessionWatcher redraws the session state in a pterm area on a terminal,
// and prints changed states otherwise.
type sessionWatcher struct {
	cmd  *cobra.Command
	area *pterm.AreaPrinter
	last string
}

func (w *sessionWatcher) show(s string) {
	if w.area != nil {
		w.area.Update(s)
		return
	}
	if s != w.last {
		fmt.Fprintln(w.cmd.OutOrStdout(), s)
	}
	w.last = s
}

func (w *sessionWatcher) stop() {
	if w.area != nil {
		_ = w.area.Stop()
		w.area = nil
	}
}

func watchSession(ctx context.Context, cmd *cobra.Command, d *dashboard.Dashboard, refresh time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var once sync.Once
	invalid := make(chan struct{})
	if err := d.StartAuthChecker(func() { once.Do(func() { close(invalid) }) }); err != nil {
		return err
	}

	w := &sessionWatcher{cmd: cmd}
	if isTerminal(cmd.OutOrStdout()) {
		area, err := pterm.DefaultArea.Start()
		if err == nil {
			w.area = area
		}
	}
	defer w.stop()

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	started := time.Now()
	for {
		w.show(renderSession(d, time.Since(started), w.area != nil))

		select {
		case <-ctx.Done():
			return nil
		case <-invalid:
			w.stop()
			format.PrintWarning(cmd.OutOrStdout(), "The server rejected the session token; you have been logged out.")
			return nil
		case <-ticker.C:
		}
	}
}

// renderSession describes the session. The footer changes every second and
// is left out when lines are printed rather than redrawn.
func renderSession(d *dashboard.Dashboard, watched time.Duration, footer bool) string {
	var b strings.Builder
	s := d.Session.Session()
	fmt.Fprintln(&b, format.Label("Context", d.Context))
	fmt.Fprintln(&b, format.Label("Username", s.Username))
	fmt.Fprint(&b, format.Label("Session Expires", d.Session.SessionRelativeTimeoutStatus()))
	if footer {
		fmt.Fprintf(&b, "\n%s", format.Dim("watching for %s, token checked every %s",
			watched.Round(time.Second), d.Config.Auth.CheckInterval))
	}
	return b.String()
}
