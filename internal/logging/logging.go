// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr at the named level ("debug",
// "info", "warn", "error"). Pretty selects human-readable console output
// instead of JSON lines.
func New(level string, pretty bool) (zerolog.Logger, error) {
	return NewWriter(os.Stderr, level, pretty)
}

func NewWriter(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "kragdb").Logger(), nil
}
