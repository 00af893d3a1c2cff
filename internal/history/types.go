package history

import "time"

// EndReason explains why a run ended.
type EndReason string

// Run end reasons.
const (
	// EndCleanExit means the child exited zero on its own.
	EndCleanExit EndReason = "clean_exit"

	// EndCrashed means the child exited nonzero on its own.
	EndCrashed EndReason = "crashed"

	// EndVerdictRestart means the oracle judged the run unhealthy and
	// the supervisor replaced it.
	EndVerdictRestart EndReason = "verdict_restart"

	// EndManualRestart means an operator requested the restart.
	EndManualRestart EndReason = "manual_restart"

	// EndShutdown means coverseer itself was shutting down.
	EndShutdown EndReason = "shutdown"
)

// Run is one child process incarnation.
type Run struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Generation uint64     `json:"generation"`
	Command    string     `json:"command"`
	PID        int        `json:"pid,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	EndReason  EndReason  `json:"end_reason,omitempty"`
}

// Verdict is one recorded oracle assessment of a run.
type Verdict struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	Classification string    `json:"classification"`
	Rationale      string    `json:"rationale,omitempty"`
	LatencyMS      int64     `json:"latency_ms"`
}

// Filter controls pagination for list queries.
type Filter struct {
	Limit  int // default 50, max 200
	Offset int // pagination offset
}

// RunList contains paginated run results.
type RunList struct {
	Runs   []Run `json:"runs"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// VerdictList contains paginated verdict results.
type VerdictList struct {
	Verdicts []Verdict `json:"verdicts"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
