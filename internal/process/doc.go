// Package process launches and reaps one run of the supervised child.
//
// A Runner starts the child with stdout and stderr captured as pipes,
// drains both streams line by line into the output ring buffer and the
// sinks, and delivers a single exit event once the process has been
// reaped. Each run gets its own Handle; the supervisor creates a new
// Handle per generation and never reuses one.
//
// The child runs in its own process group so termination signals reach
// any grandchildren it spawned (relevant for shell commands). Terminate
// escalates SIGTERM to SIGKILL after the configured grace period and
// guarantees the process is gone when it returns.
//
// Restart decisions live in the supervisor, not here: the Runner's job
// ends at reporting how a run ended.
package process
