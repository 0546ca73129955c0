package store

import "sync/atomic"

// Clock hands out the logical seq numbers journal rows are ordered by.
// It is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that continues after start, typically the
// journal's LastSeq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next seq number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
