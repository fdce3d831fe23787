// Package logging builds the zerolog loggers used by every command.
package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		With().Timestamp().Str("service", service).Logger().
		Level(lvl)
}

// Tracer returns the logger handed to the lexer and parser: a debug-level
// child of base when tracing is on, otherwise a disabled logger.
func Tracer(base zerolog.Logger, enabled bool) zerolog.Logger {
	if !enabled {
		return zerolog.Nop()
	}
	return base.Level(zerolog.DebugLevel)
}
