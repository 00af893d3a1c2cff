package oracle

import (
	"strings"
	"time"
)

// Classification is the oracle's judgment of a process's health.
type Classification string

const (
	// Healthy means the output looks like normal operation.
	Healthy Classification = "healthy"

	// Hung means the process appears stuck and no longer making progress.
	Hung Classification = "hung"

	// Crashed means the output shows a fatal failure.
	Crashed Classification = "crashed"

	// Errored means the process is in an error state that needs a restart.
	Errored Classification = "errored"

	// Unknown means no judgment could be obtained. The oracle never
	// produces this value itself; the client degrades to it whenever the
	// request fails or the reply cannot be parsed.
	Unknown Classification = "unknown"
)

// NeedsRestart reports whether the classification calls for restarting
// the supervised process. Unknown deliberately does not.
func (c Classification) NeedsRestart() bool {
	switch c {
	case Hung, Crashed, Errored:
		return true
	}
	return false
}

// parseClassification maps a model reply token to a Classification.
// Only the four tokens the response schema allows are accepted.
func parseClassification(token string) (Classification, bool) {
	switch Classification(strings.ToLower(strings.TrimSpace(token))) {
	case Healthy:
		return Healthy, true
	case Hung:
		return Hung, true
	case Crashed:
		return Crashed, true
	case Errored:
		return Errored, true
	}
	return Unknown, false
}

// Verdict is one completed health assessment.
type Verdict struct {
	// Classification is the oracle's judgment, or Unknown on failure.
	Classification Classification

	// Rationale is the model's stated reason, or the failure cause when
	// the classification is Unknown.
	Rationale string

	// Generation identifies the process incarnation whose output was
	// assessed. Verdicts from a previous generation are stale and must
	// not influence the current one.
	Generation uint64

	// Latency is how long the assessment took, including failures.
	Latency time.Duration
}
