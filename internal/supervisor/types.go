package supervisor

import (
	"context"
	"time"

	"github.com/demensdeum/coverseer/internal/history"
	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
	"github.com/demensdeum/coverseer/internal/oracle"
	"github.com/demensdeum/coverseer/internal/output"
	"github.com/demensdeum/coverseer/internal/process"
	"github.com/demensdeum/coverseer/internal/sink"
)

// State represents where the supervision loop is in its lifecycle.
type State string

const (
	// StateStarting means a child launch is in progress.
	StateStarting State = "starting"

	// StateRunning means the child is up and being watched.
	StateRunning State = "running"

	// StateAwaitingVerdict means an oracle poll is in flight.
	StateAwaitingVerdict State = "awaiting_verdict"

	// StateRestarting means the previous run is being replaced.
	StateRestarting State = "restarting"

	// StateShuttingDown means operator cancellation is being honoured.
	StateShuttingDown State = "shutting_down"

	// StateTerminated means supervision has ended for good.
	StateTerminated State = "terminated"
)

// Oracle is the interface for health assessments.
// This allows mocking in tests and flexibility in implementation.
type Oracle interface {
	// Assess judges the given output lines and never fails: degraded
	// calls come back as an unknown verdict.
	Assess(ctx context.Context, lines []output.Line, generation uint64) oracle.Verdict
}

// Metrics is the interface for time-series recording. Satisfied by
// *influxdb.Client; nil disables metrics entirely.
type Metrics interface {
	// WriteVerdictMetric records one oracle assessment.
	WriteVerdictMetric(sessionID string, classification string, latencyMS int64)

	// WriteRestartMetric records a restart decision.
	WriteRestartMetric(sessionID string, reason string, attempt int, delayMS int64)

	// WriteRunMetric records a completed child run.
	WriteRunMetric(sessionID string, endReason string, uptimeSeconds float64, exitCode int)
}

// Deps carries the collaborators the supervisor drives. Ring, Runner,
// Oracle, and Events are required; History and Metrics are optional and
// may be nil.
type Deps struct {
	// Spec describes the child command to supervise.
	Spec process.Spec

	// Ring is the shared output buffer, reset on each restart.
	Ring *output.Ring

	// Runner launches child runs.
	Runner *process.Runner

	// Oracle judges the captured output.
	Oracle Oracle

	// Events receives every supervision event.
	Events sink.Sink

	// History records runs and verdicts. Nil disables recording.
	History history.Repository

	// Metrics records time-series points. Nil disables metrics.
	Metrics Metrics

	// Logger for the decision loop. Nil falls back to the default.
	Logger *logging.Logger

	// SessionID names this supervisor lifetime. Generated when empty.
	SessionID string
}

// Stats is a point-in-time snapshot of the supervision loop.
type Stats struct {
	SessionID           string     `json:"session_id"`
	State               State      `json:"state"`
	Command             string     `json:"command"`
	Generation          uint64     `json:"generation"`
	PID                 int        `json:"pid,omitempty"`
	RunID               string     `json:"run_id,omitempty"`
	UptimeSeconds       float64    `json:"uptime_seconds,omitempty"`
	RestartCount        int        `json:"restart_count"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastClassification  string     `json:"last_classification,omitempty"`
	LastVerdictAt       *time.Time `json:"last_verdict_at,omitempty"`
	StartedAt           time.Time  `json:"started_at"`
}

// Restart reasons carried on restart events and metrics.
const (
	reasonExit      = "exit"
	reasonCleanExit = "clean_exit"
	reasonVerdict   = "verdict"
	reasonManual    = "manual"
	reasonSpawn     = "spawn_error"
)
