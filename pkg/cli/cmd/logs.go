package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swiftwave-org/swctl/pkg/dashboard"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// Valid log output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatRaw  = "raw"
)

// LogsOptions controls how deployment log lines are printed
type LogsOptions struct {
	ShowTimestamps bool
	Pattern        string
	OutputFormat   string
	Latest         bool
}

func newLogsCmd() *cobra.Command {
	opts := &LogsOptions{}

	cmd := &cobra.Command{
		Use:   "logs DEPLOYMENT_ID",
		Short: "Stream the build and deploy log of a deployment",
		Long: `Stream the build and deploy log of a deployment.

Lines already written are replayed first; the stream then follows the
deployment until the server completes it. Use -o json or -o raw for
machine-readable output.`,
		Example: `  # Follow a deployment
  swctl logs 3f6c1a2e

  # Follow the newest deployment of an application
  swctl logs --latest app-1

  # Only lines containing "error", with timestamps
  swctl logs 3f6c1a2e --grep error --timestamps`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.OutputFormat = logsOutputFormat()
			if opts.OutputFormat == "" {
				return fmt.Errorf("unsupported output format for logs: %s (want text, json or raw)", outputFormat)
			}
			return withSession(cmd, func(ctx context.Context, d *dashboard.Dashboard) error {
				id := args[0]
				if opts.Latest {
					deployments, err := d.Deployments.ListDeployments(ctx, id)
					if err != nil {
						return err
					}
					if len(deployments) == 0 {
						return fmt.Errorf("application %s has no deployments", id)
					}
					id = deployments[0].ID
				}
				return streamLogs(ctx, cmd.OutOrStdout(), d, id, opts)
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.ShowTimestamps, "timestamps", "t", false, "show the timestamp of each line")
	cmd.Flags().StringVar(&opts.Pattern, "grep", "", "only show lines containing this text")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "treat the argument as an application id and follow its newest deployment")
	return cmd
}

// logsOutputFormat maps the global -o flag onto a log format. The table
// default prints text.
func logsOutputFormat() string {
	switch outputFormat {
	case "", "table", OutputFormatText:
		return OutputFormatText
	case OutputFormatJSON, OutputFormatRaw:
		return outputFormat
	default:
		return ""
	}
}

// streamLogs prints log lines until the stream completes or ctx ends.
func streamLogs(ctx context.Context, out io.Writer, d *dashboard.Dashboard, deploymentID string, opts *LogsOptions) error {
	events, err := d.Logs.StreamDeploymentLogs(ctx, deploymentID)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return fmt.Errorf("error receiving logs: %w", ev.Err)
			}
			if err := processLog(out, ev.Log, opts); err != nil {
				return err
			}
		}
	}
}

var (
	logTimeColor  = color.New(color.FgCyan)
	logErrorColor = color.New(color.FgRed)
	logWarnColor  = color.New(color.FgYellow)
)

// processLog writes one log entry in the selected format
func processLog(out io.Writer, entry types.DeploymentLog, opts *LogsOptions) error {
	content := strings.TrimRight(entry.Content, "\r\n")
	if opts.Pattern != "" && !strings.Contains(strings.ToLower(content), strings.ToLower(opts.Pattern)) {
		return nil
	}

	switch opts.OutputFormat {
	case OutputFormatJSON:
		b, err := json.Marshal(map[string]string{
			"timestamp": formatLogTime(entry.CreatedAt),
			"content":   content,
			"level":     logLevel(content),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))

	case OutputFormatRaw:
		fmt.Fprintln(out, content)

	default:
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimRight(line, "\r")
			switch logLevel(line) {
			case "error":
				line = logErrorColor.Sprint(line)
			case "warn":
				line = logWarnColor.Sprint(line)
			}
			if opts.ShowTimestamps {
				line = logTimeColor.Sprint(formatLogTime(entry.CreatedAt)) + " " + line
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}

func formatLogTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

// logLevel guesses the level of a line from its text.
func logLevel(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "error"), strings.Contains(lower, "failed"):
		return "error"
	case strings.Contains(lower, "warn"):
		return "warn"
	default:
		return "info"
	}
}
