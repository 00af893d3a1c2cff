package sink

import (
	"context"

	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
)

// Multi fans events out to several sinks, absorbing individual
// failures. A sink error is logged at debug and never propagated, so
// one broken destination cannot interrupt supervision or starve the
// remaining sinks.
type Multi struct {
	sinks  []Sink
	logger *logging.Logger
}

// NewMulti creates a fanout over the given sinks. Nil entries are
// skipped so callers can pass optional sinks unconditionally.
func NewMulti(logger *logging.Logger, sinks ...Sink) *Multi {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Multi{sinks: kept, logger: logger}
}

// Write delivers the event to every sink. Always returns nil.
func (m *Multi) Write(ctx context.Context, ev Event) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, ev); err != nil {
			m.logger.Debug("sink write failed", "type", ev.Type, "error", err)
		}
	}
	return nil
}

// Close closes every sink, returning the first error encountered.
func (m *Multi) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
