package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the swctl version information",
		Long:  `Display detailed version information about the swctl binary.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := outputResource(cmd.OutOrStdout(), version.Map()); done {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			return nil
		},
	}
}
