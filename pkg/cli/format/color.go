package format

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// Output colors
var (
	ErrorColor     = color.New(color.FgRed, color.Bold)
	WarningColor   = color.New(color.FgYellow, color.Bold)
	SuccessColor   = color.New(color.FgGreen, color.Bold)
	InfoColor      = color.New(color.FgCyan)
	HintColor      = color.New(color.FgYellow, color.Italic)
	HeadingColor   = color.New(color.FgHiWhite, color.Bold)
	HighlightColor = color.New(color.FgCyan, color.Bold)
	DimColor       = color.New(color.FgHiBlack)
	AddedColor     = color.New(color.FgGreen)
	RemovedColor   = color.New(color.FgRed)
)

func init() {
	// SWCTL_NO_COLOR and NO_COLOR disable colors; output that is not a
	// terminal does too unless SWCTL_FORCE_COLOR is set.
	_, noColor := os.LookupEnv("SWCTL_NO_COLOR")
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	if _, force := os.LookupEnv("SWCTL_FORCE_COLOR"); !force && !term.IsTerminal(int(os.Stdout.Fd())) {
		noColor = true
	}
	if noColor {
		EnableColor(false)
	}
}

// EnableColor enables or disables colored output globally
func EnableColor(enable bool) {
	color.NoColor = !enable
	if enable {
		pterm.EnableColor()
	} else {
		pterm.DisableColor()
	}
}

// IsColorEnabled returns whether colored output is enabled
func IsColorEnabled() bool {
	return !color.NoColor
}

// Success formats a message as a success (green)
func Success(format string, a ...interface{}) string {
	return SuccessColor.Sprintf(format, a...)
}

// Warning formats a message as a warning (yellow)
func Warning(format string, a ...interface{}) string {
	return WarningColor.Sprintf(format, a...)
}

// Error formats a message as an error (red)
func Error(format string, a ...interface{}) string {
	return ErrorColor.Sprintf(format, a...)
}

// Info formats a message as info (cyan)
func Info(format string, a ...interface{}) string {
	return InfoColor.Sprintf(format, a...)
}

// Highlight formats a message as highlighted (bold cyan)
func Highlight(format string, a ...interface{}) string {
	return HighlightColor.Sprintf(format, a...)
}

// Dim formats a message as dimmed
func Dim(format string, a ...interface{}) string {
	return DimColor.Sprintf(format, a...)
}

// StatusSymbol returns a colorized status symbol
func StatusSymbol(success bool) string {
	if success {
		return SuccessColor.Sprint("✓")
	}
	return ErrorColor.Sprint("✗")
}

// Label formats a key and value with a label style
func Label(key, value string) string {
	return fmt.Sprintf("%s %s", HighlightColor.Sprint(key+":"), value)
}

type statusClass int

const (
	statusNeutral statusClass = iota
	statusGood
	statusPending
	statusBad
)

func classify(status string) statusClass {
	switch strings.ToLower(status) {
	case "deployed", "online", "issued", "healthy", "running", "ok":
		return statusGood
	case "pending", "deploypending", "deploying", "preparing", "needs_setup", "sleeping":
		return statusPending
	case "failed", "stalled", "offline", "unhealthy", "error", "unreachable":
		return statusBad
	default:
		return statusNeutral
	}
}

// StatusLabel colors a deployment, server or certificate status.
func StatusLabel(status string) string {
	label := CamelCaseToLabel(status)
	switch classify(status) {
	case statusGood:
		return SuccessColor.Sprint(label)
	case statusPending:
		return WarningColor.Sprint(label)
	case statusBad:
		return ErrorColor.Sprint(label)
	default:
		return label
	}
}

// PTermStatusLabel is StatusLabel styled for pterm tables.
func PTermStatusLabel(status string) string {
	label := CamelCaseToLabel(status)
	switch classify(status) {
	case statusGood:
		return pterm.FgGreen.Sprint(label)
	case statusPending:
		return pterm.FgYellow.Sprint(label)
	case statusBad:
		return pterm.FgRed.Sprint(label)
	default:
		return label
	}
}
