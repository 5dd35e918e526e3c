package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// prompter reads answers from the command's input. Secrets are read
// without echo when the input is a terminal.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, out: cmd.OutOrStdout(), reader: bufio.NewReader(in)}
}

// line prompts and returns the trimmed answer.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimRight(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(s), nil
}

// secret prompts for a value that is not echoed on a terminal.
func (p *prompter) secret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimRight(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(string(b)), nil
}

// isTerminal reports whether w writes to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// startSpinner shows a spinner while a request runs. It does nothing when
// the output is not a terminal.
func startSpinner(cmd *cobra.Command, text string) func() {
	if !isTerminal(cmd.OutOrStdout()) {
		return func() {}
	}
	spinner, err := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return func() {}
	}
	return func() { _ = spinner.Stop() }
}

// outputResource writes v as JSON or YAML when -o asks for it. It returns
// false for table output, which the caller renders itself.
func outputResource(w io.Writer, v interface{}) (bool, error) {
	switch outputFormat {
	case "json":
		return true, outputJSON(w, v)
	case "yaml":
		return true, outputYAML(w, v)
	case "table", "":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// outputJSON outputs resources in JSON format
func outputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// outputYAML outputs resources in YAML format. Values go through JSON
// first so the field names match the JSON output.
func outputYAML(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	fmt.Fprint(w, string(data))
	return nil
}

// maskToken hides all but the ends of a token.
func maskToken(t string) string {
	if len(t) <= 6 {
		return "******"
	}
	return t[:3] + "******" + t[len(t)-3:]
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
