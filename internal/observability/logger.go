// Package observability sets up structured logging for mcpdial.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger creates a console logger writing to w, tagged with the app name.
// It also installs the logger as the zerolog global so package-level helpers
// share the same sink.
func NewLogger(app string, w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// LevelFromEnv reads MCPDIAL_LOG_LEVEL and maps it to a zerolog level.
// Unset or unrecognized values fall back to info.
func LevelFromEnv() zerolog.Level {
	switch os.Getenv("MCPDIAL_LOG_LEVEL") {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
