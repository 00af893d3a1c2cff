package sink

import "context"

// Sink receives supervision events for persistence or relay.
//
// Write must be safe for concurrent use: the two pipe readers and the
// supervisor's decision loop all deliver events. Implementations should
// return quickly; anything slow belongs behind an internal queue.
type Sink interface {
	Write(ctx context.Context, ev Event) error
	Close() error
}
