package engine

import "sync/atomic"

// Clock is the logical clock that stamps propagation passes.
//
// Every pass, completed or aborted, takes the next seq. Journals order
// passes by seq, never by wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use, so one clock can be
// shared by several engines that journal into the same store.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start, e.g. from the
// highest seq found in an existing journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
