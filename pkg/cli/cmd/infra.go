package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/dashboard"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// listCmd builds a command that lists one kind of resource.
func listCmd[T any](use, short string, aliases []string,
	list func(ctx context.Context, d *dashboard.Dashboard) ([]T, error),
	render func(t *ResourceTable, items []T) error,
) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				items, err := list(ctx, d)
				if err != nil {
					return err
				}
				if done, err := outputResource(cmd.OutOrStdout(), items); done {
					return err
				}
				return render(NewResourceTable(cmd.OutOrStdout()), items)
			})
		},
	}
}

func newServersCmd() *cobra.Command {
	return listCmd("servers", "List the servers of the cluster", []string{"server", "nodes"},
		func(ctx context.Context, d *dashboard.Dashboard) ([]types.Server, error) {
			return d.Infra.ListServers(ctx)
		},
		(*ResourceTable).RenderServers)
}

func newDomainsCmd() *cobra.Command {
	return listCmd("domains", "List domains and their certificates", []string{"domain"},
		func(ctx context.Context, d *dashboard.Dashboard) ([]types.Domain, error) {
			return d.Infra.ListDomains(ctx)
		},
		(*ResourceTable).RenderDomains)
}

func newVolumesCmd() *cobra.Command {
	return listCmd("volumes", "List persistent volumes", []string{"volume", "pv"},
		func(ctx context.Context, d *dashboard.Dashboard) ([]types.PersistentVolume, error) {
			return d.Infra.ListPersistentVolumes(ctx)
		},
		(*ResourceTable).RenderVolumes)
}

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"credential", "creds"},
		Short:   "List git and image registry credentials",
	}

	cmd.AddCommand(listCmd("git", "List git credentials", nil,
		func(ctx context.Context, d *dashboard.Dashboard) ([]types.GitCredential, error) {
			return d.Infra.ListGitCredentials(ctx)
		},
		(*ResourceTable).RenderGitCredentials))

	cmd.AddCommand(listCmd("registry", "List image registry credentials", []string{"registries"},
		func(ctx context.Context, d *dashboard.Dashboard) ([]types.ImageRegistryCredential, error) {
			return d.Infra.ListImageRegistryCredentials(ctx)
		},
		(*ResourceTable).RenderRegistryCredentials))

	return cmd
}
