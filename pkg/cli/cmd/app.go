package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
	"github.com/swiftwave-org/swctl/pkg/types"
)

func newAppCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "app",
		Aliases: []string{"apps", "application", "applications"},
		Short:   "List, inspect and manage applications",
	}

	cmd.AddCommand(newAppListCmd())
	cmd.AddCommand(newAppGetCmd())
	cmd.AddCommand(newAppNameAvailableCmd())
	cmd.AddCommand(newAppLifecycleCmds()...)
	cmd.AddCommand(newAppDeleteCmd())
	cmd.AddCommand(newAppEditCmd())

	return cmd
}

func newAppListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List applications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				apps, err := d.Applications.ListApplications(ctx)
				if err != nil {
					return err
				}
				sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })

				if done, err := outputResource(cmd.OutOrStdout(), apps); done {
					return err
				}
				return NewResourceTable(cmd.OutOrStdout()).RenderApplications(apps)
			})
		},
	}
}

func newAppGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get APP_ID",
		Short: "Show the settings of an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				app, err := d.Applications.GetApplication(ctx, args[0])
				if err != nil {
					return err
				}
				if done, err := outputResource(cmd.OutOrStdout(), app); done {
					return err
				}
				printApplication(cmd.OutOrStdout(), app)
				return nil
			})
		},
	}
}

func printApplication(out io.Writer, a *types.Application) {
	dep := a.LatestDeployment

	fmt.Fprintln(out, format.HeadingColor.Sprint(a.Name))
	fmt.Fprintln(out, format.Label("ID", a.ID))
	fmt.Fprintln(out, format.Label("Deployment Mode", string(a.DeploymentMode)))
	if a.DeploymentMode == types.DeploymentModeReplicated {
		fmt.Fprintln(out, format.Label("Replicas", fmt.Sprint(a.Replicas)))
	}
	fmt.Fprintln(out, format.Label("Status", format.StatusLabel(string(dep.Status))))
	if a.IsSleeping {
		fmt.Fprintln(out, format.Label("State", format.StatusLabel("sleeping")))
	}
	if a.Hostname != "" {
		fmt.Fprintln(out, format.Label("Hostname", a.Hostname))
	}
	fmt.Fprintln(out, format.Label("Source", deploymentSource(dep)))
	if dep.UpstreamType == types.UpstreamTypeGit && dep.RepositoryURL != "" {
		fmt.Fprintln(out, format.Label("Git Provider", types.GitProviderFromRepoURL(dep.RepositoryURL)))
	}
	if a.Command != "" {
		fmt.Fprintln(out, format.Label("Command", a.Command))
	}

	limit, reserved := "unlimited", "none"
	if a.ResourceLimit.MemoryMB > 0 {
		limit = format.MemoryMB(float64(a.ResourceLimit.MemoryMB))
	}
	if a.ReservedResource.MemoryMB > 0 {
		reserved = format.MemoryMB(float64(a.ReservedResource.MemoryMB))
	}
	fmt.Fprintln(out, format.Label("Memory Limit", limit))
	fmt.Fprintln(out, format.Label("Memory Reserved", reserved))

	if len(a.PreferredServerHostnames) > 0 {
		fmt.Fprintln(out, format.Label("Preferred Servers", strings.Join(a.PreferredServerHostnames, ", ")))
	}
	if a.CustomHealthCheck.Enabled {
		hc := a.CustomHealthCheck
		fmt.Fprintln(out, format.Label("Health Check", fmt.Sprintf("%s (every %ds, timeout %ds, retries %d)",
			hc.TestCommand, hc.IntervalSeconds, hc.TimeoutSeconds, hc.Retries)))
	}
	if a.DockerProxyConfig.Enabled {
		fmt.Fprintln(out, format.Label("Docker Proxy", a.DockerProxyConfig.Permission.String()))
	}

	if len(a.EnvironmentVariables) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, format.HeadingColor.Sprint("Environment Variables"))
		for _, e := range a.EnvironmentVariables {
			fmt.Fprintf(out, "  %s=%s\n", e.Key, e.Value)
		}
	}
	if len(dep.BuildArgs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, format.HeadingColor.Sprint("Build Args"))
		for _, b := range dep.BuildArgs {
			fmt.Fprintf(out, "  %s=%s\n", b.Key, b.Value)
		}
	}
	if len(a.PersistentVolumeBindings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, format.HeadingColor.Sprint("Persistent Volumes"))
		for _, b := range a.PersistentVolumeBindings {
			fmt.Fprintf(out, "  volume %d -> %s\n", b.PersistentVolumeID, b.MountingPath)
		}
	}
	if len(a.ConfigMounts) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, format.HeadingColor.Sprint("Config Mounts"))
		for _, m := range a.ConfigMounts {
			fmt.Fprintf(out, "  %s (uid %d, gid %d, %s)\n", m.MountingPath, m.UID, m.GID, format.Bytes(uint64(len(m.Content))))
		}
	}
}

func newAppNameAvailableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name-available NAME",
		Short: "Check whether an application name is free",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				ok, err := d.Applications.IsNameAvailable(ctx, args[0])
				if err != nil {
					return err
				}
				if ok {
					format.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s is available", args[0]))
					return nil
				}
				format.PrintWarning(cmd.OutOrStdout(), fmt.Sprintf("%s is already taken", args[0]))
				return nil
			})
		},
	}
}
