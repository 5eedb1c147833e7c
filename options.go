package ducktest

import (
	"io"
	"log/slog"

	"github.com/roach88/ducktest/tap"
)

// Option configures a Suite.
type Option func(*Suite)

// WithLogger sets the logger used for scheduler tracing. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Suite) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOrdering sets the report ordering for testcases, fixtures and
// subcases. The default is tap.Serial.
func WithOrdering(o tap.Ordering) Option {
	return func(s *Suite) { s.ordering = o }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
