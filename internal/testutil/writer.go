package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrSinkClosed is what FailingWriter returns once it starts failing.
var ErrSinkClosed = errors.New("sink closed")

// FailingWriter accepts the first n lines and fails every write after
// that. Accepted lines are kept.
type FailingWriter struct {
	mu       sync.Mutex
	accept   int
	lines    []string
	Attempts int
}

func NewFailingWriter(accept int) *FailingWriter {
	return &FailingWriter{accept: accept}
}

func (w *FailingWriter) Write(_ context.Context, line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Attempts++
	if len(w.lines) >= w.accept {
		return ErrSinkClosed
	}
	w.lines = append(w.lines, string(line))
	return nil
}

// Accept changes how many lines in total the writer accepts.
func (w *FailingWriter) Accept(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accept = n
}

func (w *FailingWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}
