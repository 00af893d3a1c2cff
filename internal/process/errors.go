package process

import (
	"errors"
	"fmt"
)

// Errors for the process package.
//
// SpawnError carries the launch failure cause and supports errors.As:
//
//	var spawnErr *process.SpawnError
//	if errors.As(err, &spawnErr) {
//	    // no child exists; nothing to supervise
//	}
var (
	// ErrKillTimeout is returned by Terminate when the grace period
	// expired and the process group had to be killed.
	ErrKillTimeout = errors.New("process: graceful stop timed out, process group killed")
)

// SpawnError indicates the child command could not be launched at all:
// executable not found, permission denied, or a pipe could not be set
// up. No process exists when this is returned.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("process: spawning %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
