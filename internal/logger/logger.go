// Package logger provides the process-wide logging facade for picloud.
//
// Components log through the printf-style helpers below instead of using
// zerolog directly, so the backing logger can be reconfigured in one place.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}).
	With().Timestamp().Logger()

// Setup reconfigures the global logger.
//
// level is one of DEBUG, INFO, WARN, ERROR (case-insensitive).
// format is "text" (console writer) or "json".
// output is "stdout", "stderr", or a file path (appended, created if missing).
func Setup(level, format, output string) error {
	var w io.Writer
	switch output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log output %q: %w", output, err)
		}
		w = f
	}

	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05"}
	}

	log = zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	return nil
}

// SetLevel changes only the minimum level of the global logger.
func SetLevel(level string) {
	log = log.Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Debug(format string, v ...any) {
	log.Debug().Msgf(format, v...)
}

func Info(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func Warn(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func Error(format string, v ...any) {
	log.Error().Msgf(format, v...)
}
