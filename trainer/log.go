package trainer

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerOptions configures the logger
type LoggerOptions struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer
	// Prefix is the component name prefix
	Prefix string
	// ReportTimestamp adds timestamps to log entries
	ReportTimestamp bool
}

// DefaultLoggerOptions returns the options used by the fw command
func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		Level:           "info",
		Output:          os.Stderr,
		Prefix:          "fw",
		ReportTimestamp: true,
	}
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLogger creates a logger. The FW_LOG_LEVEL environment variable
// overrides opts.Level.
func NewLogger(opts LoggerOptions) *log.Logger {
	if level := os.Getenv("FW_LOG_LEVEL"); level != "" {
		opts.Level = level
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return log.NewWithOptions(opts.Output, log.Options{
		Level:           parseLevel(opts.Level),
		Prefix:          opts.Prefix,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: opts.ReportTimestamp,
	})
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
