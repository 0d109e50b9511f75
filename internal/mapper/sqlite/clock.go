package sqlite

import "sync/atomic"

// Clock stamps new rows with strictly increasing seq values.
type Clock interface {
	Next() int64
}

// SeqClock is a Clock counting up from a fixed start. Open uses one that
// resumes from the largest seq on disk; NewSeqClock(0) stamps rows 1, 2, 3
// so query order, and therefore snapshots, repeat exactly between runs.
// Safe for concurrent use.
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClock returns a clock whose first Next is start+1.
func NewSeqClock(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out, or the start before the first Next.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}
