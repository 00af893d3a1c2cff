package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/demensdeum/coverseer/internal/history"
	"github.com/demensdeum/coverseer/internal/infrastructure/config"
	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
	"github.com/demensdeum/coverseer/internal/oracle"
	"github.com/demensdeum/coverseer/internal/output"
	"github.com/demensdeum/coverseer/internal/process"
	"github.com/demensdeum/coverseer/internal/sink"
)

const (
	// defaultCheckInterval paces oracle polls when the config carries no
	// usable value.
	defaultCheckInterval = 5 * time.Second

	// pruneInterval paces history retention sweeps.
	pruneInterval = time.Hour

	// cleanupTimeout bounds history writes on paths where the loop's own
	// context is already cancelled.
	cleanupTimeout = 5 * time.Second
)

// Supervisor owns the child process lifecycle. Construct with New, start
// with Run, inspect with Stats, and poke with RequestRestart. The zero
// value is not usable.
type Supervisor struct {
	spec    process.Spec
	ring    *output.Ring
	runner  *process.Runner
	oracle  Oracle
	events  sink.Sink
	history history.Repository
	metrics Metrics
	logger  *logging.Logger

	sessionID          string
	checkInterval      time.Duration
	restartOnCleanExit bool
	retentionDays      int
	policy             Policy

	control chan string

	mu                  sync.RWMutex
	started             bool
	state               State
	handle              *process.Handle
	generation          uint64
	restartCount        int
	consecutiveFailures int
	lastClassification  oracle.Classification
	lastVerdictAt       time.Time
	startedAt           time.Time
}

// New wires a Supervisor from configuration and collaborators. The
// returned Supervisor has not started anything yet; call Run.
func New(cfg *config.Config, deps Deps) *Supervisor {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	sessionID := deps.SessionID
	if sessionID == "" {
		sessionID = "ses-" + uuid.NewString()[:8]
	}

	interval := cfg.GetCheckInterval()
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	return &Supervisor{
		spec:               deps.Spec,
		ring:               deps.Ring,
		runner:             deps.Runner,
		oracle:             deps.Oracle,
		events:             deps.Events,
		history:            deps.History,
		metrics:            deps.Metrics,
		logger:             logger.With("component", "supervisor"),
		sessionID:          sessionID,
		checkInterval:      interval,
		restartOnCleanExit: cfg.Supervisor.RestartOnCleanExit,
		retentionDays:      cfg.History.RetentionDays,
		policy:             PolicyFromConfig(cfg),
		control:            make(chan string, 1),
		state:              StateStarting,
	}
}

// SessionID returns the identifier naming this supervisor lifetime.
func (s *Supervisor) SessionID() string {
	return s.sessionID
}

// Run drives supervision until the child exits cleanly with restarts
// disabled, a fatal condition ends it, or ctx is cancelled.
//
// The returned error tells the story: nil for a clean end, the
// *process.SpawnError when the very first launch failed, ErrRestartLimit
// when consecutive failures exhausted the attempt budget, and ctx.Err()
// on cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.begin() {
		return ErrAlreadyStarted
	}

	s.logger.Info("supervision starting",
		"session_id", s.sessionID,
		"command", s.spec.String(),
		"check_interval", s.checkInterval,
	)

	handle, err := s.launchRun(ctx, 1)
	if err != nil {
		s.logger.Error("initial start failed", "error", err)
		s.setState(StateTerminated)
		return fmt.Errorf("initial start: %w", err)
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Retention sweeps only run with history enabled.
	var pruneCh <-chan time.Time
	if s.history != nil && s.retentionDays > 0 {
		pruneTicker := time.NewTicker(pruneInterval)
		defer pruneTicker.Stop()
		pruneCh = pruneTicker.C
		s.prune(ctx)
	}

	verdictCh := make(chan oracle.Verdict, 1)

	for {
		var (
			next *process.Handle
			stop bool
			err  error
		)

		select {
		case <-ctx.Done():
			s.shutdown(handle)
			return ctx.Err()

		case ev := <-handle.Exited():
			next, stop, err = s.onExit(ctx, handle, ev)

		case <-ticker.C:
			s.maybePoll(ctx, handle, verdictCh)
			continue

		case v := <-verdictCh:
			// An exit observed while the poll ran outranks its verdict.
			select {
			case ev := <-handle.Exited():
				s.logger.Debug("exit preempts verdict", "generation", ev.Generation)
				next, stop, err = s.onExit(ctx, handle, ev)
			default:
				next, stop, err = s.onVerdict(ctx, handle, v)
			}

		case reason := <-s.control:
			next, stop, err = s.onManualRestart(ctx, handle, reason)

		case <-pruneCh:
			s.prune(ctx)
			continue
		}

		if stop {
			return err
		}
		handle = next
	}
}

// RequestRestart asks the decision loop to replace the current run. The
// request is queued and honoured in event order; reason appears in the
// restart event and history.
func (s *Supervisor) RequestRestart(reason string) error {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	if state == StateShuttingDown || state == StateTerminated {
		return ErrNotRunning
	}

	if reason == "" {
		reason = reasonManual
	}

	select {
	case s.control <- reason:
		return nil
	default:
		return ErrRestartPending
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a point-in-time snapshot of the loop.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		SessionID:           s.sessionID,
		State:               s.state,
		Command:             s.spec.String(),
		Generation:          s.generation,
		RestartCount:        s.restartCount,
		ConsecutiveFailures: s.consecutiveFailures,
		LastClassification:  string(s.lastClassification),
		StartedAt:           s.startedAt,
	}

	if !s.lastVerdictAt.IsZero() {
		at := s.lastVerdictAt
		stats.LastVerdictAt = &at
	}

	if s.handle != nil && (s.state == StateRunning || s.state == StateAwaitingVerdict) {
		stats.PID = s.handle.PID()
		stats.RunID = s.handle.RunID()
		stats.UptimeSeconds = time.Since(s.handle.StartedAt()).Seconds()
	}

	return stats
}

// begin marks the one permitted session start.
func (s *Supervisor) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	s.startedAt = time.Now()
	return true
}

// launchRun starts generation gen of the child and records it
// everywhere. The caller decides whether a failure is fatal.
func (s *Supervisor) launchRun(ctx context.Context, gen uint64) (*process.Handle, error) {
	s.setState(StateStarting)

	// The ring carries the run's generation before the child can write
	// a line, the first run included.
	s.ring.Reset(gen)

	handle, err := s.runner.Start(s.spec, gen)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.handle = handle
	s.generation = gen
	if gen > 1 {
		s.restartCount++
	}
	s.mu.Unlock()

	if s.history != nil {
		run := &history.Run{
			ID:         handle.RunID(),
			SessionID:  s.sessionID,
			Generation: gen,
			Command:    handle.Command(),
			PID:        handle.PID(),
			StartedAt:  handle.StartedAt(),
		}
		if err := s.history.RecordRunStart(ctx, run); err != nil {
			s.logger.Warn("recording run start failed", "run_id", handle.RunID(), "error", err)
		}
	}

	s.emit(sink.Event{
		Type:       sink.EventStart,
		RunID:      handle.RunID(),
		Generation: gen,
		Command:    handle.Command(),
		PID:        handle.PID(),
	})

	s.setState(StateRunning)
	return handle, nil
}

// maybePoll kicks off one oracle assessment when the loop is idle and
// there is output to judge.
func (s *Supervisor) maybePoll(ctx context.Context, h *process.Handle, verdictCh chan<- oracle.Verdict) {
	if s.State() != StateRunning {
		return
	}

	lines := s.ring.Snapshot()
	if len(lines) == 0 {
		s.logger.Debug("no output captured yet, skipping health check", "generation", h.Generation())
		return
	}

	s.setState(StateAwaitingVerdict)
	gen := h.Generation()
	s.logger.Debug("requesting health assessment", "generation", gen, "lines", len(lines))

	go func() {
		verdictCh <- s.oracle.Assess(ctx, lines, gen)
	}()
}

// onExit handles the end of a run the child chose for itself.
func (s *Supervisor) onExit(ctx context.Context, h *process.Handle, ev process.ExitEvent) (*process.Handle, bool, error) {
	uptime := ev.Time.Sub(h.StartedAt())
	failed := ev.Code != 0 || ev.Err != nil

	s.logger.Info("process exited",
		"pid", h.PID(),
		"generation", ev.Generation,
		"code", ev.Code,
		"uptime", uptime.Round(time.Millisecond),
	)

	if !failed {
		s.closeRun(ctx, h, ev, history.EndCleanExit)
		if !s.restartOnCleanExit {
			s.logger.Info("clean exit, supervision complete", "generation", ev.Generation)
			s.setState(StateTerminated)
			return nil, true, nil
		}
		// Policy restart after a clean exit paces at the base delay so a
		// command that instantly succeeds cannot spin the loop.
		return s.relaunch(ctx, s.policy.Base, reasonCleanExit)
	}

	s.closeRun(ctx, h, ev, history.EndCrashed)

	delay, perr := s.nextDelay(uptime)
	if perr != nil {
		s.logger.Error("giving up on restarts", "error", perr)
		s.setState(StateTerminated)
		return nil, true, perr
	}
	return s.relaunch(ctx, delay, reasonExit)
}

// onVerdict handles a completed oracle poll.
func (s *Supervisor) onVerdict(ctx context.Context, h *process.Handle, v oracle.Verdict) (*process.Handle, bool, error) {
	if v.Generation != h.Generation() {
		s.logger.Debug("discarding stale verdict",
			"verdict_generation", v.Generation,
			"live_generation", h.Generation(),
		)
		return h, false, nil
	}

	s.recordVerdict(ctx, h, v)

	if !v.Classification.NeedsRestart() {
		s.setState(StateRunning)
		return h, false, nil
	}

	s.logger.Warn("unhealthy verdict, replacing child",
		"classification", v.Classification,
		"rationale", v.Rationale,
		"generation", v.Generation,
	)

	s.setState(StateRestarting)
	s.stopChild(ctx, h, history.EndVerdictRestart)

	delay, perr := s.nextDelay(time.Since(h.StartedAt()))
	if perr != nil {
		s.logger.Error("giving up on restarts", "error", perr)
		s.setState(StateTerminated)
		return nil, true, perr
	}
	return s.relaunch(ctx, delay, reasonVerdict)
}

// onManualRestart honours an operator restart request. Manual restarts
// carry no delay and leave the failure counter alone.
func (s *Supervisor) onManualRestart(ctx context.Context, h *process.Handle, reason string) (*process.Handle, bool, error) {
	s.logger.Info("restart requested", "reason", reason, "generation", h.Generation())

	s.setState(StateRestarting)
	if h.Alive() {
		s.stopChild(ctx, h, history.EndManualRestart)
	} else {
		// The child beat the request to the punch; its exit event is
		// already delivered or moments away.
		ev := <-h.Exited()
		s.closeRun(ctx, h, ev, history.EndManualRestart)
	}

	return s.relaunch(ctx, 0, reason)
}

// relaunch waits out the delay and starts the next generation. Spawn
// failures here are counted and retried on the backoff ladder rather
// than treated as fatal; only the attempt budget ends the loop.
func (s *Supervisor) relaunch(ctx context.Context, delay time.Duration, reason string) (*process.Handle, bool, error) {
	for {
		s.setState(StateRestarting)
		s.announceRestart(reason, delay)

		if delay > 0 {
			s.logger.Info("restart scheduled", "delay", delay, "reason", reason)
			select {
			case <-ctx.Done():
				s.setState(StateTerminated)
				return nil, true, ctx.Err()
			case <-time.After(delay):
			}
		}

		gen := s.bumpGeneration()
		handle, err := s.launchRun(ctx, gen)
		if err == nil {
			return handle, false, nil
		}

		s.logger.Error("relaunch failed", "generation", gen, "error", err)

		var perr error
		delay, perr = s.nextDelay(0)
		if perr != nil {
			s.logger.Error("giving up on restarts", "error", perr)
			s.setState(StateTerminated)
			return nil, true, perr
		}
		reason = reasonSpawn
	}
}

// shutdown tears the current run down on operator cancellation.
func (s *Supervisor) shutdown(h *process.Handle) {
	s.setState(StateShuttingDown)
	s.logger.Info("shutting down", "generation", h.Generation())

	// The loop context is gone; cleanup gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if h.Alive() {
		s.stopChild(ctx, h, history.EndShutdown)
	} else {
		// The exit event is already delivered or moments away.
		ev := <-h.Exited()
		reason := history.EndCrashed
		if ev.Code == 0 && ev.Err == nil {
			reason = history.EndCleanExit
		}
		s.closeRun(ctx, h, ev, reason)
	}

	s.setState(StateTerminated)
	s.logger.Info("supervision ended", "session_id", s.sessionID)
}

// stopChild terminates a live run and closes it out.
func (s *Supervisor) stopChild(ctx context.Context, h *process.Handle, endReason history.EndReason) {
	if err := h.Terminate(); err != nil {
		s.logger.Warn("graceful stop timed out, child was force-killed",
			"pid", h.PID(),
			"generation", h.Generation(),
			"error", err,
		)
	}
	ev := <-h.Exited()
	s.closeRun(ctx, h, ev, endReason)
}

// closeRun records the end of a run in history, sinks, and metrics.
func (s *Supervisor) closeRun(ctx context.Context, h *process.Handle, ev process.ExitEvent, endReason history.EndReason) {
	code := ev.Code

	s.emit(sink.Event{
		Type:       sink.EventExit,
		RunID:      h.RunID(),
		Generation: h.Generation(),
		ExitCode:   &code,
		Reason:     string(endReason),
	})

	if s.history != nil {
		var codePtr *int
		if ev.Err == nil {
			codePtr = &code
		}
		if err := s.history.RecordRunEnd(ctx, h.RunID(), ev.Time, codePtr, endReason); err != nil {
			s.logger.Warn("recording run end failed", "run_id", h.RunID(), "error", err)
		}
	}

	if s.metrics != nil {
		uptime := ev.Time.Sub(h.StartedAt())
		s.metrics.WriteRunMetric(s.sessionID, string(endReason), uptime.Seconds(), code)
	}
}

// recordVerdict publishes one assessment to everything that cares.
func (s *Supervisor) recordVerdict(ctx context.Context, h *process.Handle, v oracle.Verdict) {
	s.logger.Info("verdict received",
		"classification", v.Classification,
		"rationale", v.Rationale,
		"latency", v.Latency.Round(time.Millisecond),
		"generation", v.Generation,
	)

	s.mu.Lock()
	s.lastClassification = v.Classification
	s.lastVerdictAt = time.Now()
	s.mu.Unlock()

	s.emit(sink.Event{
		Type:           sink.EventVerdict,
		RunID:          h.RunID(),
		Generation:     v.Generation,
		Classification: string(v.Classification),
		Rationale:      v.Rationale,
	})

	if s.history != nil {
		rec := &history.Verdict{
			RunID:          h.RunID(),
			Classification: string(v.Classification),
			Rationale:      v.Rationale,
			LatencyMS:      v.Latency.Milliseconds(),
		}
		if err := s.history.RecordVerdict(ctx, rec); err != nil {
			s.logger.Warn("recording verdict failed", "run_id", h.RunID(), "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.WriteVerdictMetric(s.sessionID, string(v.Classification), v.Latency.Milliseconds())
	}
}

// nextDelay accounts one failed run and returns the backoff before the
// next attempt, or ErrRestartLimit once the budget is spent. A run that
// survived the stability window forgives the failures before it.
func (s *Supervisor) nextDelay(uptime time.Duration) (time.Duration, error) {
	s.mu.Lock()
	if s.policy.StableThreshold > 0 && uptime >= s.policy.StableThreshold {
		s.consecutiveFailures = 0
	}
	s.consecutiveFailures++
	n := s.consecutiveFailures
	s.mu.Unlock()

	if s.policy.Exhausted(n) {
		return 0, fmt.Errorf("%w: %d consecutive failed runs", ErrRestartLimit, n)
	}
	return s.policy.Delay(n), nil
}

// bumpGeneration reserves the next run's generation number.
func (s *Supervisor) bumpGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// announceRestart publishes the restart decision before any delay.
func (s *Supervisor) announceRestart(reason string, delay time.Duration) {
	s.mu.RLock()
	gen := s.generation
	failures := s.consecutiveFailures
	s.mu.RUnlock()

	s.emit(sink.Event{
		Type:       sink.EventRestart,
		Generation: gen,
		Reason:     reason,
		DelayMS:    delay.Milliseconds(),
	})

	if s.metrics != nil {
		s.metrics.WriteRestartMetric(s.sessionID, reason, failures, delay.Milliseconds())
	}
}

// setState moves the machine and publishes the transition.
func (s *Supervisor) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	gen := s.generation
	s.mu.Unlock()

	if from == to {
		return
	}

	s.logger.Debug("state changed", "from", from, "to", to, "generation", gen)
	s.emit(sink.Event{
		Type:       sink.EventState,
		Generation: gen,
		From:       string(from),
		To:         string(to),
	})
}

// emit stamps and delivers one event to the sinks. Sink failures are
// logged and swallowed; supervision never depends on a sink.
func (s *Supervisor) emit(ev sink.Event) {
	ev.Time = time.Now()
	ev.SessionID = s.sessionID
	if err := s.events.Write(context.Background(), ev); err != nil {
		s.logger.Debug("sink write failed", "type", ev.Type, "error", err)
	}
}

// prune drops history older than the retention window.
func (s *Supervisor) prune(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	pctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	n, err := s.history.Prune(pctx, cutoff)
	if err != nil {
		s.logger.Warn("history prune failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("history pruned", "runs_removed", n, "retention_days", s.retentionDays)
	}
}
