package engine

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp delivered actions.
//
// The bus draws the next value while holding its delivery lock, so seq
// order always matches delivery order.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
