/*
Package logx provides a structured logging wrapper based on zerolog.

It initializes the global logger, selects the output format (console in
development, JSON in production), and exposes small helpers for the common
logging levels with key-value field lists.
*/
package logx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger configures the global zerolog instance.
// Development uses a colored ConsoleWriter at Debug level; production uses
// JSON at Info level. All entries carry a Unix timestamp and caller info.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// evenFields drops the field list entirely when it does not form key-value
// pairs, so zerolog never panics on a malformed call site.
func evenFields(level string, fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msg("logx call received an odd number of fields; fields ignored")
		return nil
	}
	return fields
}

// Debug records a log message at the Debug level.
func Debug(msg string, fields ...any) {
	Logger().Debug().
		Fields(evenFields("Debug", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Info records a log message at the Info level.
func Info(msg string, fields ...any) {
	Logger().Info().
		Fields(evenFields("Info", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Warn records a log message at the Warn level.
func Warn(msg string, fields ...any) {
	Logger().Warn().
		Fields(evenFields("Warn", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Error records a log message at the Error level together with the error.
func Error(err error, msg string, fields ...any) {
	Logger().Error().
		Err(err).
		Fields(evenFields("Error", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}

// Fatal records a log message at the Fatal level and exits the process.
func Fatal(err error, msg string, fields ...any) {
	Logger().Fatal().
		Err(err).
		Fields(evenFields("Fatal", fields)).
		CallerSkipFrame(1).
		Msg(msg)
}
