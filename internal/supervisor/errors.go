package supervisor

import "errors"

// Sentinel errors for the supervision loop.
var (
	// ErrAlreadyStarted is returned by Run when the loop was already
	// started once. A Supervisor runs exactly one session.
	ErrAlreadyStarted = errors.New("supervisor: already started")

	// ErrNotRunning is returned by RequestRestart when the loop has
	// terminated or is shutting down.
	ErrNotRunning = errors.New("supervisor: not running")

	// ErrRestartPending is returned by RequestRestart when an earlier
	// request has not been consumed yet.
	ErrRestartPending = errors.New("supervisor: restart already pending")

	// ErrRestartLimit is returned by Run when max_restart_attempts
	// consecutive failed runs exhausted the restart budget.
	ErrRestartLimit = errors.New("supervisor: restart limit reached")
)
