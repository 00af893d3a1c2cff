package process

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
	"github.com/demensdeum/coverseer/internal/output"
	"github.com/demensdeum/coverseer/internal/sink"
)

// maxLineLength bounds the stored text of one captured line. Longer
// lines are still consumed in full; the stored text is cut at the cap
// and marked with truncatedSuffix.
const maxLineLength = 1 << 20

// truncatedSuffix marks lines cut at maxLineLength.
const truncatedSuffix = " [truncated]"

// Runner launches runs of the supervised child and streams their
// output into the ring buffer and the sinks. One Runner serves the
// whole supervisor lifetime; each Start produces a fresh Handle.
type Runner struct {
	ring      *output.Ring
	events    sink.Sink
	logger    *logging.Logger
	sessionID string
	graceful  time.Duration
}

// NewRunner creates a Runner. graceful bounds how long Terminate waits
// between SIGTERM and SIGKILL; values at or below zero fall back to
// five seconds.
func NewRunner(ring *output.Ring, events sink.Sink, logger *logging.Logger, sessionID string, graceful time.Duration) *Runner {
	if graceful <= 0 {
		graceful = 5 * time.Second
	}
	return &Runner{
		ring:      ring,
		events:    events,
		logger:    logger,
		sessionID: sessionID,
		graceful:  graceful,
	}
}

// Handle represents one live (or reaped) run of the child. Exactly one
// exit event is delivered on Exited per Handle; the channel is buffered
// so the event survives until the supervisor collects it.
type Handle struct {
	pid        int
	generation uint64
	runID      string
	command    string
	startedAt  time.Time

	cmd    *exec.Cmd
	exitCh chan ExitEvent
	done   chan struct{}

	graceful time.Duration
	logger   *logging.Logger

	termOnce sync.Once
	termErr  error
}

// Start spawns the child with both output streams captured. The run's
// lifetime is controlled through Terminate on the returned Handle, not
// through a context, so the SIGTERM grace period always applies.
//
// Returns a *SpawnError when no process could be created.
func (r *Runner) Start(spec Spec, generation uint64) (*Handle, error) {
	argv := spec.argv()

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // Supervising an operator-supplied command is the whole point
	// Own process group so signals reach children of shell commands.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Command: spec.String(), Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Command: spec.String(), Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: spec.String(), Err: err}
	}

	h := &Handle{
		pid:        cmd.Process.Pid,
		generation: generation,
		runID:      "run-" + uuid.NewString()[:8],
		command:    spec.String(),
		startedAt:  time.Now(),
		cmd:        cmd,
		exitCh:     make(chan ExitEvent, 1),
		done:       make(chan struct{}),
		graceful:   r.graceful,
		logger:     r.logger,
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go r.drain(h, output.StreamStdout, stdout, &readers)
	go r.drain(h, output.StreamStderr, stderr, &readers)
	go h.reap(&readers)

	r.logger.Info("process started",
		"pid", h.pid,
		"generation", generation,
		"run_id", h.runID,
	)

	return h, nil
}

// drain reads one pipe line by line until EOF, appending each line to
// the ring buffer and forwarding it to the sinks. Oversized lines are
// truncated, never skipped: the drain consumes everything until the
// pipe closes, so the child cannot block on a full pipe no matter what
// it writes.
func (r *Runner) drain(h *Handle, stream output.Stream, pipe io.Reader, readers *sync.WaitGroup) {
	defer readers.Done()

	reader := bufio.NewReaderSize(pipe, 64*1024)
	for {
		text, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Debug("output stream closed", "stream", stream, "error", err)
			}
			return
		}
		line := output.Line{
			Time:       time.Now(),
			Stream:     stream,
			Text:       text,
			Generation: h.generation,
		}
		r.ring.Append(line)
		if err := r.events.Write(context.Background(), sink.LineEvent(line, r.sessionID, h.runID)); err != nil {
			r.logger.Debug("sink write failed", "stream", stream, "error", err)
		}
	}
}

// readLine returns the next line with its newline stripped. A line
// longer than maxLineLength is consumed to its end but stored cut at
// the cap with truncatedSuffix appended. A partial line interrupted by
// a read error is returned as is; the error surfaces on the next call.
func readLine(reader *bufio.Reader) (string, error) {
	chunk, isPrefix, err := reader.ReadLine()
	if err != nil || !isPrefix {
		return string(chunk), err
	}

	var b strings.Builder
	truncated := false
	for {
		if room := maxLineLength - b.Len(); len(chunk) <= room {
			b.Write(chunk)
		} else {
			b.Write(chunk[:room])
			truncated = true
		}
		if !isPrefix {
			break
		}
		if chunk, isPrefix, err = reader.ReadLine(); err != nil {
			break
		}
	}
	if truncated {
		b.WriteString(truncatedSuffix)
	}
	return b.String(), nil
}

// reap collects the exit status once both pipe readers have finished.
// Reading must complete before Wait per the os/exec pipe contract.
// The exit event is queued on exitCh before done closes, so once Alive
// reports false the event is already receivable.
func (h *Handle) reap(readers *sync.WaitGroup) {
	readers.Wait()

	code, waitErr := exitCode(h.cmd.Wait())
	h.exitCh <- ExitEvent{
		Generation: h.generation,
		RunID:      h.runID,
		Code:       code,
		Err:        waitErr,
		Time:       time.Now(),
	}
	close(h.done)
}

// Exited returns the channel delivering this run's single exit event.
// The event is available immediately if the process already exited.
func (h *Handle) Exited() <-chan ExitEvent {
	return h.exitCh
}

// Terminate stops the child: SIGTERM to the process group, then
// SIGKILL once the grace period expires. The process is no longer
// running when Terminate returns. Safe to call repeatedly and on an
// already-exited handle; only the first call does any work.
//
// Returns ErrKillTimeout when the forced kill was needed.
func (h *Handle) Terminate() error {
	h.termOnce.Do(func() { h.termErr = h.terminate() })
	return h.termErr
}

func (h *Handle) terminate() error {
	select {
	case <-h.done:
		return nil
	default:
	}

	h.logger.Info("stopping process", "pid", h.pid, "generation", h.generation)

	// Negative pid signals the whole group created via Setpgid.
	if err := syscall.Kill(-h.pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		h.logger.Warn("failed to send SIGTERM to process group", "pid", h.pid, "error", err)
	}

	select {
	case <-h.done:
		h.logger.Info("process stopped gracefully", "pid", h.pid)
		return nil
	case <-time.After(h.graceful):
	}

	if err := syscall.Kill(-h.pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		h.logger.Warn("failed to send SIGKILL to process group", "pid", h.pid, "error", err)
	}

	<-h.done
	return ErrKillTimeout
}

// Alive reports whether the process has not yet been reaped.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// PID returns the child's process ID.
func (h *Handle) PID() int {
	return h.pid
}

// Generation returns the run generation this handle belongs to.
func (h *Handle) Generation() uint64 {
	return h.generation
}

// RunID returns the identifier naming this run in history and sinks.
func (h *Handle) RunID() string {
	return h.runID
}

// Command returns the command line for display.
func (h *Handle) Command() string {
	return h.command
}

// StartedAt returns when the process was spawned.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}
