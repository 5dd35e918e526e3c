package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/version"
)

var (
	cfgFile      string
	contextFlag  string
	verbose      bool
	outputFormat string

	// flags resolves global flags against SWCTL_* environment variables.
	flags *viper.Viper
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swctl",
		Short: "swctl - SwiftWave dashboard from the terminal",
		Long: `swctl talks to a SwiftWave server the way the web dashboard does.

It signs in, keeps the session for each context, lists and edits
applications, streams deployment logs and shows the state of servers,
domains, volumes and credentials.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.swctl/config.yaml)")
	cmd.PersistentFlags().StringVar(&contextFlag, "context", "", "context to use instead of the current context")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	flags = viper.New()
	flags.SetEnvPrefix("SWCTL")
	_ = flags.BindEnv("context")
	_ = flags.BindEnv("config")
	_ = flags.BindPFlag("context", cmd.PersistentFlags().Lookup("context"))
	_ = flags.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoAmICmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newAppCmd())
	cmd.AddCommand(newDeploymentsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newServersCmd())
	cmd.AddCommand(newDomainsCmd())
	cmd.AddCommand(newVolumesCmd())
	cmd.AddCommand(newCredentialsCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newSessionCmd())

	return cmd
}

// Execute runs the root command and exits non-zero on failure. It is called
// by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		format.PrintError(rootCmd.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
