// Package logging configures the global zerolog logger for the binaries.
package logging

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var levels = map[string]zerolog.Level{
	"trace": zerolog.TraceLevel,
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(s string) zerolog.Level {
	if l, ok := levels[strings.ToLower(s)]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// Setup writes human-friendly lines to a terminal and JSON everywhere else.
func Setup(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
}
