package process

import (
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Spec describes how to launch the supervised child. It is parsed once
// at startup and reused unchanged for every restart.
type Spec struct {
	// Args is the command line. A single element is run through the
	// shell so quoted pipelines work; multiple elements are executed
	// directly as argv.
	Args []string

	// WorkDir is the child's working directory. Empty inherits ours.
	WorkDir string

	// Env is extra environment in KEY=VALUE form, appended to the
	// inherited environment.
	Env []string
}

// argv returns the effective argument vector for exec.
func (s Spec) argv() []string {
	if len(s.Args) == 1 {
		return []string{"sh", "-c", s.Args[0]}
	}
	return s.Args
}

// String returns the command line for display and logging.
func (s Spec) String() string {
	return strings.Join(s.Args, " ")
}

// ExitEvent reports how one run of the child ended. Delivered exactly
// once per Handle on its Exited channel.
type ExitEvent struct {
	// Generation and RunID identify the run that ended.
	Generation uint64
	RunID      string

	// Code is the child's exit code. Zero is a clean exit; negative
	// values mean the process died to a signal before reporting one.
	Code int

	// Err is non-nil when waiting itself failed, which leaves Code
	// meaningless. Treated as a failed run.
	Err error

	// Time is when the exit was observed.
	Time time.Time
}

// exitCode extracts the child's exit code from a Wait error.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
