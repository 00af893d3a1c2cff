package sink

import (
	"context"

	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
)

// LogSink echoes captured child output through the supervisor's logger,
// so running coverseer in a terminal still shows the child live. Only
// stdout and stderr events are echoed; decision events are already
// logged by the supervisor itself and would duplicate.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a sink echoing output lines at info level.
func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write echoes stdout/stderr events and ignores everything else.
func (s *LogSink) Write(_ context.Context, ev Event) error {
	switch ev.Type {
	case EventStdout, EventStderr:
		s.logger.Info(ev.Text, "stream", string(ev.Type), "generation", ev.Generation)
	}
	return nil
}

// Close is a no-op; the logger outlives the sink.
func (s *LogSink) Close() error {
	return nil
}
