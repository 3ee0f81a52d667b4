package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant FixedClock reports by default.
var Epoch = time.Unix(0, 0).UTC()

// FixedClock always reports the same instant, which makes emitted streams
// byte-identical across runs.
type FixedClock struct {
	t time.Time
}

// NewFixedClock returns a clock stuck at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// NewEpochClock returns a clock stuck at Epoch.
func NewEpochClock() *FixedClock {
	return NewFixedClock(Epoch)
}

func (c *FixedClock) Now() time.Time {
	return c.t
}

// ScriptedClock returns the given instants in order, then keeps returning
// the last one. It is used to simulate clocks that jump backwards.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ScriptedClock struct {
	mu    sync.Mutex
	times []time.Time
	idx   int
}

func NewScriptedClock(times ...time.Time) *ScriptedClock {
	if len(times) == 0 {
		times = []time.Time{Epoch}
	}
	return &ScriptedClock{times: times}
}

func (c *ScriptedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.times[c.idx]
	if c.idx < len(c.times)-1 {
		c.idx++
	}
	return t
}
