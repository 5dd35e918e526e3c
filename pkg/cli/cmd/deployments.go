package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
	"github.com/swiftwave-org/swctl/pkg/types"
)

func newDeploymentsCmd() *cobra.Command {
	var deploymentID string

	cmd := &cobra.Command{
		Use:     "deployments APP_ID",
		Aliases: []string{"deployment", "deploys"},
		Short:   "List the deployments of an application, newest first",
		Args:    cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deploymentID == "" && len(args) == 0 {
				return fmt.Errorf("an application id or --id is required")
			}
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				out := cmd.OutOrStdout()
				if deploymentID != "" {
					dep, err := d.Deployments.GetDeployment(ctx, deploymentID)
					if err != nil {
						return err
					}
					if done, err := outputResource(out, dep); done {
						return err
					}
					printDeployment(out, dep)
					return nil
				}

				deployments, err := d.Deployments.ListDeployments(ctx, args[0])
				if err != nil {
					return err
				}
				if done, err := outputResource(out, deployments); done {
					return err
				}
				return NewResourceTable(out).RenderDeployments(deployments)
			})
		},
	}

	cmd.Flags().StringVar(&deploymentID, "id", "", "show one deployment instead of the list")
	return cmd
}

func printDeployment(out io.Writer, d *types.Deployment) {
	fmt.Fprintln(out, format.Label("ID", d.ID))
	fmt.Fprintln(out, format.Label("Status", format.StatusLabel(string(d.Status))))
	fmt.Fprintln(out, format.Label("Source", deploymentSource(*d)))
	if d.CommitHash != "" {
		fmt.Fprintln(out, format.Label("Commit", d.CommitHash))
	}
	if d.CodePath != "" {
		fmt.Fprintln(out, format.Label("Code Path", d.CodePath))
	}
	fmt.Fprintln(out, format.Label("Created", format.Timestamp(d.CreatedAt)))
	for _, b := range d.BuildArgs {
		fmt.Fprintf(out, "  %s=%s\n", b.Key, b.Value)
	}
}
