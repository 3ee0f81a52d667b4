package output

import (
	"sync"
	"time"

	"github.com/roach88/ocptv/internal/schema"
)

// Sequencer assigns sequence numbers and timestamps to artifacts.
//
// Sequence numbers start at 0 and increase by one per artifact. Timestamps
// are truncated to milliseconds and never go backwards relative to sequence
// order: when the clock is observed to move back, the previous timestamp is
// reused. A clock anomaly is not an error.
//
// Thread-safety: Sequencer is safe for concurrent use. The Emitter
// additionally holds its own lock across reserve, write and commit so that
// numbers are assigned in the order lines reach the writer.
type Sequencer struct {
	mu    sync.Mutex
	clock Clock
	next  uint64
	last  time.Time
}

// NewSequencer creates a sequencer starting at 0. A nil clock means SystemClock.
func NewSequencer(clock Clock) *Sequencer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Sequencer{clock: clock}
}

// Next returns the next sequence number and its timestamp, consuming both.
func (s *Sequencer) Next() (uint64, schema.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ts := s.peekLocked()
	s.commitLocked(ts)
	return seq, ts
}

// Current returns how many sequence numbers have been consumed.
func (s *Sequencer) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// reserve returns the pair Next would return without consuming it.
func (s *Sequencer) reserve() (uint64, schema.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekLocked()
}

// commit consumes the number handed out by the last reserve.
func (s *Sequencer) commit(ts schema.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(ts)
}

func (s *Sequencer) peekLocked() (uint64, schema.Timestamp) {
	now := schema.NewTimestamp(s.clock.Now())
	if now.Time().Before(s.last) {
		now = schema.Timestamp(s.last)
	}
	return s.next, now
}

func (s *Sequencer) commitLocked(ts schema.Timestamp) {
	s.next++
	s.last = ts.Time()
}

func (s *Sequencer) now() time.Time {
	return s.clock.Now()
}
