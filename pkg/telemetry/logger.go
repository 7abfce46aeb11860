package telemetry

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger. format is "console" or "json".
func NewLogger(service, level, format string, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("telemetry: log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("telemetry: unknown log format %q", format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", service).Logger(), nil
}
