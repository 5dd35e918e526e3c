package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/swiftwave-org/swctl/internal/config"
	"github.com/swiftwave-org/swctl/pkg/cli/format"
)

const defaultContextName = "default"

// ContextConfig is the part of the swctl config file that names contexts.
// Other sections of the file are kept as they are when it is saved.
type ContextConfig struct {
	CurrentContext string             `yaml:"current-context"`
	Contexts       map[string]Context `yaml:"contexts"`

	Rest map[string]interface{} `yaml:",inline"`
}

// Context is one named server. The session token is not stored here; it
// lives in the state directory under the context name.
type Context struct {
	Server             string `yaml:"server"`
	GraphQLHTTPBaseURL string `yaml:"graphqlHttpBaseUrl,omitempty"`
	GraphQLWSBaseURL   string `yaml:"graphqlWsBaseUrl,omitempty"`
	HTTPBaseURL        string `yaml:"httpBaseUrl,omitempty"`
}

// endpoints converts the context to endpoint overrides.
func (c Context) endpoints() config.Endpoints {
	return config.Endpoints{
		Server:             c.Server,
		GraphQLHTTPBaseURL: c.GraphQLHTTPBaseURL,
		GraphQLWSBaseURL:   c.GraphQLWSBaseURL,
		HTTPBaseURL:        c.HTTPBaseURL,
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage swctl configuration and contexts",
		Long: `Manage swctl configuration and contexts.

This command allows you to:
- View current configuration
- Set context properties
- Switch between contexts
- List available contexts`,
	}

	cmd.AddCommand(newConfigViewCmd())
	cmd.AddCommand(newConfigSetContextCmd())
	cmd.AddCommand(newConfigUseContextCmd())
	cmd.AddCommand(newConfigListContextsCmd())
	cmd.AddCommand(newConfigDeleteContextCmd())

	return cmd
}

func newConfigViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, name, err := loadEffectiveConfig()
			if err != nil {
				return err
			}
			endpoints, err := cfg.Endpoints.Resolve()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, format.Label("Current Context", name))
			fmt.Fprintln(out)
			fmt.Fprintln(out, format.Label("Server", endpoints.Server))
			fmt.Fprintln(out, format.Label("GraphQL HTTP", endpoints.GraphQLHTTPBaseURL))
			fmt.Fprintln(out, format.Label("GraphQL WebSocket", endpoints.GraphQLWSBaseURL))
			fmt.Fprintln(out, format.Label("HTTP", endpoints.HTTPBaseURL))
			fmt.Fprintln(out, format.Label("Fetch Policy", cfg.GraphQL.FetchPolicy))
			fmt.Fprintln(out, format.Label("Network Error Policy", cfg.Auth.NetworkErrorPolicy))
			fmt.Fprintln(out, format.Label("State Directory", cfg.StateDir))
			return nil
		},
	}

	return cmd
}

func newConfigSetContextCmd() *cobra.Command {
	var ctx Context

	cmd := &cobra.Command{
		Use:   "set-context [context-name]",
		Short: "Set or update a context configuration",
		Long: `Set or update a context configuration.

If context-name is not provided, it will use "default".
--server is required for a new context. The GraphQL and HTTP base URLs
default to the server origin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := defaultContextName
			if len(args) > 0 {
				contextName = args[0]
			}

			cc, err := loadContextConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			existing, exists := cc.Contexts[contextName]
			merged := mergeContext(existing, ctx)
			if merged.Server == "" {
				if exists {
					return fmt.Errorf("context '%s' has no server", contextName)
				}
				return fmt.Errorf("--server is required")
			}

			resolved, err := merged.endpoints().Resolve()
			if err != nil {
				return err
			}
			merged.Server = resolved.Server

			cc.Contexts[contextName] = merged
			cc.CurrentContext = contextName

			if err := saveContextConfig(cc); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context '%s' configured successfully and set as current context\n", contextName)
			return nil
		},
	}

	cmd.Flags().StringVar(&ctx.Server, "server", "", "SwiftWave server URL")
	cmd.Flags().StringVar(&ctx.GraphQLHTTPBaseURL, "graphql-http-url", "", "GraphQL HTTP base URL")
	cmd.Flags().StringVar(&ctx.GraphQLWSBaseURL, "graphql-ws-url", "", "GraphQL WebSocket base URL")
	cmd.Flags().StringVar(&ctx.HTTPBaseURL, "http-url", "", "REST base URL")

	return cmd
}

// mergeContext overlays the non-empty fields of update on base.
func mergeContext(base, update Context) Context {
	if update.Server != "" {
		base.Server = update.Server
	}
	if update.GraphQLHTTPBaseURL != "" {
		base.GraphQLHTTPBaseURL = update.GraphQLHTTPBaseURL
	}
	if update.GraphQLWSBaseURL != "" {
		base.GraphQLWSBaseURL = update.GraphQLWSBaseURL
	}
	if update.HTTPBaseURL != "" {
		base.HTTPBaseURL = update.HTTPBaseURL
	}
	return base
}

func newConfigUseContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use-context [context-name]",
		Short: "Switch to a different context",
		Long: `Switch to a different context.

This command changes the current context to the specified one.
The context must already exist in your configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]

			cc, err := loadContextConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if _, exists := cc.Contexts[contextName]; !exists {
				return fmt.Errorf("context '%s' does not exist. Use 'swctl config set-context %s' to create it first", contextName, contextName)
			}

			cc.CurrentContext = contextName

			if err := saveContextConfig(cc); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context '%s'\n", contextName)
			return nil
		},
	}

	return cmd
}

func newConfigListContextsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-contexts",
		Short: "List all available contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := loadContextConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(cc.Contexts) == 0 {
				fmt.Fprintln(out, "No contexts configured")
				return nil
			}

			names := make([]string, 0, len(cc.Contexts))
			for name := range cc.Contexts {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Fprintln(out, "Available contexts:")
			for _, name := range names {
				ctx := cc.Contexts[name]
				marker := " "
				if name == cc.CurrentContext {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
				fmt.Fprintf(out, "    Server: %s\n", ctx.Server)
				if ctx.GraphQLHTTPBaseURL != "" {
					fmt.Fprintf(out, "    GraphQL HTTP: %s\n", ctx.GraphQLHTTPBaseURL)
				}
				if ctx.GraphQLWSBaseURL != "" {
					fmt.Fprintf(out, "    GraphQL WebSocket: %s\n", ctx.GraphQLWSBaseURL)
				}
				if ctx.HTTPBaseURL != "" {
					fmt.Fprintf(out, "    HTTP: %s\n", ctx.HTTPBaseURL)
				}
			}

			return nil
		},
	}

	return cmd
}

func newConfigDeleteContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-context [context-name]",
		Short: "Delete a context",
		Long: `Delete a context from your configuration.

You cannot delete the current context. Switch to a different context first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]

			cc, err := loadContextConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if _, exists := cc.Contexts[contextName]; !exists {
				return fmt.Errorf("context '%s' does not exist", contextName)
			}

			if contextName == cc.CurrentContext {
				return fmt.Errorf("cannot delete current context '%s'. Switch to a different context first", contextName)
			}

			delete(cc.Contexts, contextName)

			if err := saveContextConfig(cc); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context '%s' deleted successfully\n", contextName)
			return nil
		},
	}

	return cmd
}

// loadContextConfig loads the context section of the config file
func loadContextConfig() (*ContextConfig, error) {
	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &ContextConfig{
				CurrentContext: defaultContextName,
				Contexts:       make(map[string]Context),
			}, nil
		}
		return nil, err
	}

	var cc ContextConfig
	if err := yaml.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cc.Contexts == nil {
		cc.Contexts = make(map[string]Context)
	}
	if cc.CurrentContext == "" {
		cc.CurrentContext = defaultContextName
	}

	return &cc, nil
}

// saveContextConfig writes the config file back
func saveContextConfig(cc *ContextConfig) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if flags != nil {
		if p := flags.GetString("config"); p != "" {
			return p
		}
	}
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.swctl/config.yaml"
	}

	return filepath.Join(home, ".swctl", "config.yaml")
}

// selectedContext returns the context named by --context or SWCTL_CONTEXT,
// falling back to the current context of the file.
func selectedContext(cc *ContextConfig) string {
	if flags != nil {
		if name := flags.GetString("context"); name != "" {
			return name
		}
	}
	if contextFlag != "" {
		return contextFlag
	}
	return cc.CurrentContext
}
