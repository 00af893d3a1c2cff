// Package supervisor runs the decision loop that keeps the child
// process alive and judged.
//
// All events funnel into one goroutine: exit notifications from the
// current run's Handle, the poll ticker, completed oracle verdicts, and
// operator restart requests. The loop serializes every state transition,
// so the rest of the system only ever observes a consistent snapshot
// through Stats.
//
// An exit outranks everything else. A nonzero exit restarts the child no
// matter what a poll in flight might say; a verdict whose generation no
// longer matches the live run is discarded on arrival. The oracle
// influences supervision only through clear negative verdicts; its
// failures degrade to unknown and change nothing.
//
// Restarts are paced by an exponential backoff policy with a stability
// window that forgives old failures, and optionally bounded by a maximum
// attempt count. Every run and every verdict is published to the sinks
// and recorded to history as it happens.
package supervisor
