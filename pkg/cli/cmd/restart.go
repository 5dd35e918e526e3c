package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// lifecycleAction is one of the application actions that take only an id.
type lifecycleAction struct {
	use     string
	short   string
	done    string
	canWait bool
	run     func(d *dashboard.Dashboard) func(ctx context.Context, id string) error
}

var lifecycleActions = []lifecycleAction{
	{
		use:     "rebuild",
		short:   "Build and deploy the application again from its source",
		done:    "Rebuild requested",
		canWait: true,
		run:     func(d *dashboard.Dashboard) func(context.Context, string) error { return d.Applications.RebuildApplication },
	},
	{
		use:     "restart",
		short:   "Restart the application's containers",
		done:    "Restart requested",
		canWait: true,
		run:     func(d *dashboard.Dashboard) func(context.Context, string) error { return d.Applications.RestartApplication },
	},
	{
		use:   "sleep",
		short: "Scale the application down until it is woken",
		done:  "Application is going to sleep",
		run:   func(d *dashboard.Dashboard) func(context.Context, string) error { return d.Applications.SleepApplication },
	},
	{
		use:   "wake",
		short: "Wake a sleeping application",
		done:  "Application is waking up",
		run:   func(d *dashboard.Dashboard) func(context.Context, string) error { return d.Applications.WakeApplication },
	},
}

func newAppLifecycleCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(lifecycleActions))
	for _, action := range lifecycleActions {
		cmds = append(cmds, newLifecycleCmd(action))
	}
	return cmds
}

func newLifecycleCmd(action lifecycleAction) *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   action.use + " APP_ID",
		Short: action.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				if err := action.run(d)(ctx, id); err != nil {
					return err
				}
				format.PrintSuccess(cmd.OutOrStdout(), action.done)

				if !wait {
					return nil
				}
				stop := startSpinner(cmd, "Waiting for the deployment to finish")
				status, err := waitForDeployment(ctx, d, id, timeout)
				stop()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), format.Label("Deployment", format.StatusLabel(string(status))))
				return nil
			})
		},
	}

	if action.canWait {
		cmd.Flags().BoolVar(&wait, "wait", false, "wait for the latest deployment to finish")
		cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "how long to wait")
	}
	return cmd
}

// waitInterval is how often waitForDeployment polls the application.
var waitInterval = 2 * time.Second

// waitForDeployment polls the application until its latest deployment is
// in a terminal state.
func waitForDeployment(ctx context.Context, d *dashboard.Dashboard, id string, timeout time.Duration) (types.DeploymentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(waitInterval)
	defer ticker.Stop()

	for {
		app, err := d.Applications.GetApplication(ctx, id, graphql.WithFreshResult())
		if err != nil {
			return "", err
		}
		if status := app.LatestDeployment.Status; status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("timed out waiting for the deployment of %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}
