package log

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// Config defines logging configuration.
type Config struct {
	// Level sets the minimum log level
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// File, when set, receives log output instead of stderr.
	File string `json:"file" yaml:"file" mapstructure:"file"`

	// MaxSize caps the log file, e.g. "10MB".
	MaxSize string `json:"max_size" yaml:"max_size" mapstructure:"max_size"`

	EnableCaller bool `json:"enable_caller" yaml:"enable_caller" mapstructure:"enable_caller"`

	// RedactedFields lists fields that are masked in every entry.
	RedactedFields []string `json:"redacted_fields" yaml:"redacted_fields" mapstructure:"redacted_fields"`

	// DebugComponents limits debug output to these components.
	DebugComponents []string `json:"debug_components" yaml:"debug_components" mapstructure:"debug_components"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Level:          "warn",
		Format:         "text",
		RedactedFields: DefaultRedactedFields,
	}
}

// ApplyConfig creates a logger from a configuration.
func ApplyConfig(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	options := []LoggerOption{WithLevel(level)}

	switch strings.ToLower(config.Format) {
	case "json":
		options = append(options, WithFormatter(&JSONFormatter{EnableCaller: config.EnableCaller}))
	case "text", "":
		tf := NewTextFormatter()
		tf.EnableCaller = config.EnableCaller
		tf.DisableColors = config.File != ""
		options = append(options, WithFormatter(tf))
	default:
		return nil, fmt.Errorf("invalid log format: %s", config.Format)
	}

	if config.File != "" {
		var maxSize uint64
		if config.MaxSize != "" {
			maxSize, err = humanize.ParseBytes(config.MaxSize)
			if err != nil {
				return nil, fmt.Errorf("invalid log max_size %q: %w", config.MaxSize, err)
			}
		}
		options = append(options, WithOutput(NewFileOutput(os.ExpandEnv(config.File), int64(maxSize))))
	}

	redacted := config.RedactedFields
	if redacted == nil {
		redacted = DefaultRedactedFields
	}
	if len(redacted) > 0 {
		options = append(options, WithHook(NewRedactionHook(redacted)))
	}
	if len(config.DebugComponents) > 0 {
		options = append(options, WithHook(NewComponentFilterHook(config.DebugComponents)))
	}

	return NewLogger(options...), nil
}

// ParseLevel parses a level string into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
