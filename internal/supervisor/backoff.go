package supervisor

import (
	"time"

	"github.com/demensdeum/coverseer/internal/infrastructure/config"
)

// Policy holds the restart pacing parameters.
type Policy struct {
	// Base is the delay before the first restart after a failure.
	Base time.Duration

	// Max caps the backoff however many failures accumulate.
	Max time.Duration

	// StableThreshold is how long a run must survive for earlier
	// failures to be forgiven.
	StableThreshold time.Duration

	// MaxAttempts bounds consecutive failed runs. 0 means unlimited.
	MaxAttempts int
}

// PolicyFromConfig builds the restart policy from the supervisor
// configuration section.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		Base:            cfg.GetRestartBackoff(),
		Max:             cfg.GetMaxRestartDelay(),
		StableThreshold: cfg.GetStableThreshold(),
		MaxAttempts:     cfg.Supervisor.MaxRestartAttempts,
	}
}

// Delay returns how long to wait before the restart that follows the
// given number of consecutive failures. The first failure waits the
// base delay and each one after doubles it, capped at Max.
func (p Policy) Delay(failures int) time.Duration {
	if failures <= 0 || p.Base <= 0 {
		return 0
	}

	delay := p.Base
	for i := 1; i < failures; i++ {
		delay *= 2
		if p.Max > 0 && delay >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && delay > p.Max {
		return p.Max
	}
	return delay
}

// Exhausted reports whether the failure count has used up the restart
// budget.
func (p Policy) Exhausted(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}
