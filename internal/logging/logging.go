// Package logging builds the zerolog loggers used by the client and CLI.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a timestamped logger writing to w at the given level.
// An empty level means warn.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	if level == "" {
		level = zerolog.WarnLevel.String()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Console wraps w in a human-readable writer for terminal output.
func Console(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, NoColor: true}
}
