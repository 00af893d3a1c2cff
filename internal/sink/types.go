package sink

import (
	"time"

	"github.com/demensdeum/coverseer/internal/output"
)

// EventType identifies what a sink record describes.
type EventType string

// Event types written by the supervision loop.
const (
	// EventStart records a child process launch.
	EventStart EventType = "start"

	// EventStdout and EventStderr record one captured output line each.
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"

	// EventExit records a child process termination.
	EventExit EventType = "exit"

	// EventVerdict records one oracle assessment.
	EventVerdict EventType = "verdict"

	// EventRestart records a restart decision and its cause.
	EventRestart EventType = "restart"

	// EventState records a supervisor state transition.
	EventState EventType = "state"
)

// Event is one NDJSON record delivered to sinks. Fields beyond Time,
// Type, and the identifiers are populated per type and omitted
// otherwise.
type Event struct {
	Time       time.Time `json:"time"`
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	Generation uint64    `json:"generation,omitempty"`

	// Text is the captured line for stdout/stderr events.
	Text string `json:"text,omitempty"`

	// Command and PID describe start events.
	Command string `json:"command,omitempty"`
	PID     int    `json:"pid,omitempty"`

	// ExitCode is set on exit events. A pointer so code zero survives
	// the omitempty rules on the other fields.
	ExitCode *int `json:"exit_code,omitempty"`

	// From and To describe state transitions.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Classification and Rationale describe verdict events.
	Classification string `json:"classification,omitempty"`
	Rationale      string `json:"rationale,omitempty"`

	// Reason and DelayMS describe restart events.
	Reason  string `json:"reason,omitempty"`
	DelayMS int64  `json:"delay_ms,omitempty"`
}

// LineEvent converts a captured output line into a sink event.
func LineEvent(line output.Line, sessionID, runID string) Event {
	typ := EventStdout
	if line.Stream == output.StreamStderr {
		typ = EventStderr
	}
	return Event{
		Time:       line.Time,
		Type:       typ,
		SessionID:  sessionID,
		RunID:      runID,
		Generation: line.Generation,
		Text:       line.Text,
	}
}
