package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
)

func newAppDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete APP_ID",
		Aliases: []string{"rm"},
		Short:   "Delete an application",
		Long: `Delete an application and its deployments.

You are asked to type the application name to confirm unless --yes
is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				app, err := d.Applications.GetApplication(ctx, id)
				if err != nil {
					return err
				}

				if !yes {
					format.PrintWarning(cmd.OutOrStdout(), fmt.Sprintf("This deletes %s and all of its deployments.", app.Name))
					answer, err := newPrompter(cmd).line("Type the application name to confirm: ")
					if err != nil {
						return err
					}
					if answer != app.Name {
						fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
						return nil
					}
				}

				if err := d.Applications.DeleteApplication(ctx, id); err != nil {
					return err
				}
				format.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Application %s deleted", app.Name))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking for confirmation")
	return cmd
}
