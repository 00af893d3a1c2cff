package output

import "sync"

// DefaultCapacity is the number of lines retained when no explicit
// capacity is configured.
const DefaultCapacity = 100

// Ring is a fixed-capacity buffer of the most recent output lines.
// Appending at capacity evicts the oldest line. The zero value is not
// usable; construct with NewRing.
//
// Thread Safety: all methods are safe for concurrent use. Append holds
// the lock only long enough to place one line; Snapshot copies under
// the lock so callers never observe a torn read.
type Ring struct {
	mu    sync.Mutex
	lines []Line
	start int
	size  int
	gen   uint64
}

// NewRing creates a ring buffer retaining at most capacity lines.
// Capacities below one are clamped to one.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{lines: make([]Line, capacity)}
}

// Append records a line at the tail, evicting the oldest line when the
// buffer is full. It never blocks beyond the short exclusive section.
func (r *Ring) Append(line Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.lines) {
		r.lines[(r.start+r.size)%len(r.lines)] = line
		r.size++
		return
	}
	r.lines[r.start] = line
	r.start = (r.start + 1) % len(r.lines)
}

// Snapshot returns an ordered copy of the current contents, oldest
// first. The returned slice is independent of the buffer and safe to
// hold across later appends and resets.
func (r *Ring) Snapshot() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Line, r.size)
	for i := range out {
		out[i] = r.lines[(r.start+i)%len(r.lines)]
	}
	return out
}

// Tail returns an ordered copy of at most n most recent lines.
// n values at or above the current size return the full contents.
func (r *Ring) Tail(n int) []Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > r.size {
		n = r.size
	}
	out := make([]Line, n)
	first := r.size - n
	for i := range out {
		out[i] = r.lines[(r.start+first+i)%len(r.lines)]
	}
	return out
}

// Reset atomically discards all contents and tags the buffer with the
// generation of the run about to start.
func (r *Ring) Reset(generation uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.start, r.size = 0, 0
	r.gen = generation
}

// Len returns the number of lines currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the fixed capacity set at construction.
func (r *Ring) Cap() int {
	return len(r.lines)
}

// Generation returns the generation tag set by the last Reset, zero if
// the buffer has never been reset.
func (r *Ring) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}
