package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/cli/utils"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
	"github.com/swiftwave-org/swctl/pkg/draft"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// editOptions are shared by every 'app edit' subcommand.
type editOptions struct {
	dryRun bool
}

func newAppEditCmd() *cobra.Command {
	opts := &editOptions{}

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change the settings of an application",
		Long: `Change the settings of an application.

Every subcommand loads the application, applies one edit and submits
the whole application as a single update. With --dry-run the changed
fields are printed and nothing is sent.`,
		Example: `  swctl app edit env set app-1 PORT=3000 LOG_LEVEL=debug
  swctl app edit scale app-1 3 --dry-run
  swctl app edit mount add app-1 /etc/app.conf --file ./app.conf`,
	}
	cmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "print the changes without applying them")

	cmd.AddCommand(newEditEnvCmd(opts))
	cmd.AddCommand(newEditMountCmd(opts))
	cmd.AddCommand(newEditVolumeCmd(opts))
	cmd.AddCommand(newEditScaleCmd(opts))
	cmd.AddCommand(newEditHostnameCmd(opts))
	cmd.AddCommand(newEditMemoryCmd(opts))
	cmd.AddCommand(newEditHealthCmd(opts))
	cmd.AddCommand(newEditServersCmd(opts))
	cmd.AddCommand(newEditProxyCmd(opts))
	cmd.AddCommand(newEditSourceCmd(opts))
	cmd.AddCommand(newEditBuildArgCmd(opts))
	cmd.AddCommand(newEditModeCmd(opts))

	return cmd
}

// runEdit loads the editor for appID, lets fn change the draft and applies
// it, or prints the changes with --dry-run.
func runEdit(cmd *cobra.Command, opts *editOptions, appID string, fn func(ed *draft.Editor) error) error {
	return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
		ed, err := d.Editor(ctx, appID)
		if err != nil {
			return err
		}
		if err := fn(ed); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !ed.IsChanged() {
			fmt.Fprintln(out, "No changes")
			return nil
		}
		if opts.dryRun {
			return printDraftChanges(out, ed)
		}

		stop := startSpinner(cmd, "Updating application")
		msg, err := ed.Apply(ctx)
		stop()
		if err != nil {
			return err
		}
		format.PrintSuccess(out, msg)
		return nil
	})
}

// printDraftChanges prints the changed fields with their old and new
// values as sent to the server.
func printDraftChanges(out io.Writer, ed *draft.Editor) error {
	proposed, err := ed.Input()
	if err != nil {
		return err
	}
	before, err := fieldsOf(types.InputFromApplication(ed.Snapshot()))
	if err != nil {
		return err
	}
	after, err := fieldsOf(proposed)
	if err != nil {
		return err
	}

	for _, name := range ed.Changes() {
		fmt.Fprintln(out, format.HighlightColor.Sprintf("~ %s", name))
		fmt.Fprintln(out, format.RemovedColor.Sprintf("  - %s", before[name]))
		fmt.Fprintln(out, format.AddedColor.Sprintf("  + %s", after[name]))
	}
	fmt.Fprintln(out, format.Dim("dry run, nothing was applied"))
	return nil
}

func fieldsOf(in *types.ApplicationInput) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode application input: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode application input: %w", err)
	}
	return fields, nil
}

func newEditEnvCmd(opts *editOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "env",
		Aliases: []string{"environment"},
		Short:   "Set or unset environment variables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set APP_ID KEY=VALUE...",
		Short: "Set environment variables",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kvs, err := utils.ParseKeyValues(args[1:])
			if err != nil {
				return err
			}
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				for _, kv := range kvs {
					if entry, ok := findEnv(ed, kv.Key); ok {
						if err := ed.SetEnvironmentVariable(entry.Key, kv.Key, kv.Value); err != nil {
							return err
						}
						continue
					}
					ed.AddEnvironmentVariable(kv.Key, kv.Value)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset APP_ID KEY...",
		Short: "Remove environment variables",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				for _, name := range args[1:] {
					entry, ok := findEnv(ed, name)
					if !ok {
						return types.NewFieldValidationError("environmentVariables", "%q is not set", name)
					}
					if err := ed.DeleteEnvironmentVariable(entry.Key); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})

	return cmd
}

func findEnv(ed *draft.Editor, name string) (draft.Entry[draft.EnvironmentVariable], bool) {
	for _, e := range ed.EnvironmentVariables() {
		if e.Value.Name == name {
			return e, true
		}
	}
	return draft.Entry[draft.EnvironmentVariable]{}, false
}

func newEditMountCmd(opts *editOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount",
		Short: "Add or remove config mounts",
	}

	var (
		file     string
		content  string
		uid, gid uint
	)
	add := &cobra.Command{
		Use:   "add APP_ID PATH",
		Short: "Mount a file into the application's containers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileSet, contentSet := file != "", cmd.Flags().Changed("content")
			if fileSet == contentSet {
				return fmt.Errorf("exactly one of --file or --content is required")
			}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				content = string(data)
			}
			mount := types.ConfigMount{MountingPath: args[1], Content: content, UID: uid, GID: gid}
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				_, err := ed.AddConfigMount(mount)
				return err
			})
		},
	}
	add.Flags().StringVar(&file, "file", "", "read the content from a local file")
	add.Flags().StringVar(&content, "content", "", "content of the mounted file")
	add.Flags().UintVar(&uid, "uid", 0, "owner uid of the mounted file")
	add.Flags().UintVar(&gid, "gid", 0, "owner gid of the mounted file")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm APP_ID PATH",
		Short: "Remove a config mount",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				for _, m := range ed.ConfigMounts() {
					if m.Value.MountingPath == args[1] {
						return ed.DeleteConfigMount(m.Key)
					}
				}
				return types.NewFieldValidationError("configMounts", "nothing is mounted at %q", args[1])
			})
		},
	})

	return cmd
}

func newEditVolumeCmd(opts *editOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Bind or unbind persistent volumes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "bind APP_ID VOLUME_ID PATH",
		Short: "Mount a persistent volume",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			volumeID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || volumeID <= 0 {
				return types.NewFieldValidationError("persistentVolumeID", "invalid volume id %q", args[1])
			}
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				key := ed.AddPersistentVolumeBinding()
				return ed.SetPersistentVolumeBinding(key, volumeID, args[2])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unbind APP_ID PATH",
		Short: "Remove a persistent volume binding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				for _, b := range ed.PersistentVolumeBindings() {
					if b.Value.MountingPath == args[1] {
						return ed.DeletePersistentVolumeBinding(b.Key)
					}
				}
				return types.NewFieldValidationError("persistentVolumeBindings", "no volume is bound at %q", args[1])
			})
		},
	})

	return cmd
}

func newEditScaleCmd(opts *editOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scale APP_ID REPLICAS",
		Short: "Set the number of replicas",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return types.NewFieldValidationError("replicas", "invalid replica count %q", args[1])
			}
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				if ed.Deployment().DeploymentMode == types.DeploymentModeGlobal {
					format.PrintWarning(cmd.OutOrStdout(), "global applications run one replica per server; the count is kept but not used")
				}
				ed.SetReplicas(uint(n))
				return nil
			})
		},
	}
}

func newEditHostnameCmd(opts *editOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hostname APP_ID HOSTNAME",
		Short: "Set the container hostname",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				return ed.SetHostname(args[1])
			})
		},
	}
}

func newEditMemoryCmd(opts *editOptions) *cobra.Command {
	var limit, reserved uint64

	cmd := &cobra.Command{
		Use:   "memory APP_ID",
		Short: "Set the memory limit and reservation in MB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limitSet, reservedSet := cmd.Flags().Changed("limit"), cmd.Flags().Changed("reserved")
			if !limitSet && !reservedSet {
				return fmt.Errorf("at least one of --limit or --reserved is required")
			}
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				if limitSet {
					ed.SetMemoryLimit(limit)
				}
				if reservedSet {
					ed.SetMemoryReserved(reserved)
				}
				dep := ed.Deployment()
				if dep.MemoryLimitMB > 0 && dep.MemoryReservedMB > dep.MemoryLimitMB {
					return types.NewFieldValidationError("reservedResource", "reserved memory %s exceeds the limit %s",
						format.MemoryMB(float64(dep.MemoryReservedMB)), format.MemoryMB(float64(dep.MemoryLimitMB)))
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&limit, "limit", 0, "memory limit in MB, 0 for unlimited")
	cmd.Flags().Uint64Var(&reserved, "reserved", 0, "reserved memory in MB")
	return cmd
}

func newEditHealthCmd(opts *editOptions) *cobra.Command {
	var (
		disable bool
		hc      types.HealthCheck
	)

	cmd := &cobra.Command{
		Use:   "health APP_ID",
		Short: "Configure the custom health check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				cur := ed.Deployment().HealthCheck
				if disable {
					cur.Enabled = false
					ed.SetHealthCheck(cur)
					return nil
				}

				f := cmd.Flags()
				if f.Changed("cmd") {
					cur.TestCommand = hc.TestCommand
				}
				if f.Changed("interval") {
					cur.IntervalSeconds = hc.IntervalSeconds
				}
				if f.Changed("timeout") {
					cur.TimeoutSeconds = hc.TimeoutSeconds
				}
				if f.Changed("start-period") {
					cur.StartPeriodSeconds = hc.StartPeriodSeconds
				}
				if f.Changed("start-interval") {
					cur.StartIntervalSeconds = hc.StartIntervalSeconds
				}
				if f.Changed("retries") {
					cur.Retries = hc.Retries
				}
				if cur.TestCommand == "" {
					return types.NewFieldValidationError("customHealthCheck.test_command", "a test command is required")
				}
				cur.Enabled = true
				ed.SetHealthCheck(cur)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&disable, "disable", false, "turn the health check off")
	cmd.Flags().StringVar(&hc.TestCommand, "cmd", "", "command run inside the container")
	cmd.Flags().Uint64Var(&hc.IntervalSeconds, "interval", 0, "seconds between checks")
	cmd.Flags().Uint64Var(&hc.TimeoutSeconds, "timeout", 0, "seconds before a check fails")
	cmd.Flags().Uint64Var(&hc.StartPeriodSeconds, "start-period", 0, "grace period in seconds after start")
	cmd.Flags().Uint64Var(&hc.StartIntervalSeconds, "start-interval", 0, "seconds between checks during the start period")
	cmd.Flags().Uint64Var(&hc.Retries, "retries", 0, "failures before the container is unhealthy")
	return cmd
}

func newEditServersCmd(opts *editOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "servers APP_ID [HOSTNAME...]",
		Short: "Set the preferred servers, none to clear them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				ed.SetPreferredServerHostnames(args[1:])
				return nil
			})
		},
	}
}

func newEditProxyCmd(opts *editOptions) *cobra.Command {
	var (
		enable, disable bool
		permissions     string
	)

	cmd := &cobra.Command{
		Use:   "proxy APP_ID",
		Short: "Configure the docker socket proxy",
		Example: `  swctl app edit proxy app-1 --enable --permission containers=read,images=read_write`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if enable && disable {
				return fmt.Errorf("--enable and --disable are mutually exclusive")
			}
			perms, err := utils.ParsePairs(permissions)
			if err != nil {
				return err
			}
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				if enable || disable {
					ed.SetDockerProxy(enable)
				}
				for area, p := range perms {
					if err := ed.SetDockerProxyPermission(area, types.DockerProxyPermissionType(p)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&enable, "enable", false, "enable the proxy")
	cmd.Flags().BoolVar(&disable, "disable", false, "disable the proxy")
	cmd.Flags().StringVar(&permissions, "permission", "", "area=none|read|read_write pairs, comma separated")
	return cmd
}

func newEditSourceCmd(opts *editOptions) *cobra.Command {
	var src draft.Source

	cmd := &cobra.Command{
		Use:   "source APP_ID",
		Short: "Change where the application is built or pulled from",
		Long: `Change where the application is built or pulled from.

Only the flags given are changed. Credential ids of 0 or "" mean
no credential.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				cur := ed.Source()
				f := cmd.Flags()
				set := func(name string, dst *string, value string) {
					if f.Changed(name) {
						*dst = value
					}
				}
				set("command", &cur.Command, src.Command)
				set("git-credential", &cur.GitCredentialID, src.GitCredentialID)
				set("repository", &cur.RepositoryURL, src.RepositoryURL)
				set("branch", &cur.RepositoryBranch, src.RepositoryBranch)
				set("code-path", &cur.CodePath, src.CodePath)
				set("registry-credential", &cur.ImageRegistryCredentialID, src.ImageRegistryCredentialID)
				set("image", &cur.DockerImage, src.DockerImage)
				set("dockerfile", &cur.Dockerfile, src.Dockerfile)
				ed.UpdateApplicationSource(cur)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&src.Command, "command", "", "container command")
	cmd.Flags().StringVar(&src.GitCredentialID, "git-credential", "", "git credential id")
	cmd.Flags().StringVar(&src.RepositoryURL, "repository", "", "git repository URL")
	cmd.Flags().StringVar(&src.RepositoryBranch, "branch", "", "git branch")
	cmd.Flags().StringVar(&src.CodePath, "code-path", "", "path of the code inside the repository")
	cmd.Flags().StringVar(&src.ImageRegistryCredentialID, "registry-credential", "", "image registry credential id")
	cmd.Flags().StringVar(&src.DockerImage, "image", "", "docker image")
	cmd.Flags().StringVar(&src.Dockerfile, "dockerfile", "", "dockerfile content")
	return cmd
}

func newEditBuildArgCmd(opts *editOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "build-arg",
		Aliases: []string{"build-args"},
		Short:   "Set or unset docker build arguments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set APP_ID KEY=VALUE...",
		Short: "Set build arguments",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kvs, err := utils.ParseKeyValues(args[1:])
			if err != nil {
				return err
			}
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				for _, kv := range kvs {
					ed.SetBuildArg(kv.Key, kv.Value)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset APP_ID KEY...",
		Short: "Remove build arguments",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				for _, key := range args[1:] {
					ed.DeleteBuildArg(key)
				}
				return nil
			})
		},
	})

	return cmd
}

func newEditModeCmd(opts *editOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mode APP_ID replicated|global",
		Short: "Change the deployment mode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], func(ed *draft.Editor) error {
				return ed.ChangeDeploymentStrategy(types.DeploymentMode(args[1]))
			})
		},
	}
}
