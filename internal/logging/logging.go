// Package logging builds the zerolog logger shared by the binaries.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr. format is "json" (default) or
// "console"; an unknown level falls back to info.
func New(level, format string) zerolog.Logger {
	return NewWriter(os.Stderr, level, format)
}

func NewWriter(w io.Writer, level, format string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// FromContext adds chi's request id, when present, to base.
func FromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return base.With().Str("request_id", id).Logger()
	}
	return base
}
