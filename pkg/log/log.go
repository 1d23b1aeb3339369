// SPDX-License-Identifier: BSD-3-Clause

package log

import (
	"log/slog"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// NewDefaultLogger creates a new structured logger backed by zerolog's
// console writer, with debug-level logging and timestamps enabled.
func NewDefaultLogger() *slog.Logger {
	zeroLogger := zerolog.
		New(zerolog.NewConsoleWriter()).
		With().
		Timestamp().
		Logger()

	return slog.New(slogzerolog.Option{Level: slog.LevelDebug, Logger: &zeroLogger}.NewZerologHandler())
}

// GetGlobalLogger returns a structured logger configured for global
// application use. Currently equivalent to NewDefaultLogger; kept as a
// separate entry point so callers can be migrated to a shared instance
// without touching every call site.
func GetGlobalLogger() *slog.Logger {
	return NewDefaultLogger()
}
