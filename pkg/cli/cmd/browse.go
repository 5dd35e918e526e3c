package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/dashboard"
	"github.com/swiftwave-org/swctl/pkg/router"
)

func newBrowseCmd() *cobra.Command {
	var listRoutes bool

	cmd := &cobra.Command{
		Use:   "browse [PATH]",
		Short: "Resolve a dashboard path through the navigation guard",
		Long: `Resolve a dashboard path the way the web dashboard would navigate
to it, showing where the guard lets you land. Use --routes to list
every page.`,
		Example: `  swctl browse /applications
  swctl browse /application/app-1/deployments
  swctl browse --routes`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listRoutes {
				t := NewResourceTable(out)
				t.Headers = []string{"NAME", "PATH", "REDIRECT"}
				var rows [][]string
				for _, r := range router.Flatten(router.Routes) {
					rows = append(rows, []string{r.Name, r.Path, r.Redirect})
				}
				return t.render(rows, "No routes")
			}
			if len(args) == 0 {
				return fmt.Errorf("a path is required unless --routes is given")
			}

			return withDashboard(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				loc, err := d.Navigate(args[0])
				if err != nil {
					return err
				}
				if done, err := outputResource(out, loc); done {
					return err
				}

				fmt.Fprintln(out, format.Label("Page", loc.Name))
				fmt.Fprintln(out, format.Label("Path", loc.String()))
				if len(loc.Params) > 0 {
					keys := make([]string, 0, len(loc.Params))
					for k := range loc.Params {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					pairs := make([]string, 0, len(keys))
					for _, k := range keys {
						pairs = append(pairs, k+"="+loc.Params[k])
					}
					fmt.Fprintln(out, format.Label("Params", strings.Join(pairs, ", ")))
				}
				if requested := strings.SplitN(args[0], "?", 2)[0]; loc.Path != requested {
					fmt.Fprintln(out, format.Dim("redirected from %s", args[0]))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&listRoutes, "routes", false, "list every dashboard page")
	return cmd
}
