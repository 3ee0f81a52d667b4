package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// Writer receives one encoded artifact per call. line never contains a
// newline; implementations add their own framing. A returned error is
// reported to the caller as a sink failure and is not retried.
type Writer interface {
	Write(ctx context.Context, line []byte) error
}

// LineWriter writes newline-terminated lines to an io.Writer. Each line is
// handed to the underlying writer in a single Write call under a mutex, so
// concurrent callers never interleave partial lines.
type LineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineWriter wraps w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// NewStdoutWriter writes to os.Stdout.
func NewStdoutWriter() *LineWriter {
	return NewLineWriter(os.Stdout)
}

func (w *LineWriter) Write(_ context.Context, line []byte) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

// FileWriter writes lines to a file it owns.
type FileWriter struct {
	*LineWriter
	f *os.File
}

// NewFileWriter creates or truncates path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &FileWriter{LineWriter: NewLineWriter(f), f: f}, nil
}

// Close flushes the file to disk and closes it.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return multierr.Append(w.f.Sync(), w.f.Close())
}

// BufferWriter keeps lines in memory.
type BufferWriter struct {
	mu    sync.Mutex
	lines []string
}

// NewBufferWriter returns an empty BufferWriter.
func NewBufferWriter() *BufferWriter {
	return &BufferWriter{}
}

func (w *BufferWriter) Write(_ context.Context, line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, string(line))
	return nil
}

// Lines returns a copy of the lines written so far.
func (w *BufferWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// String returns the buffered stream as NDJSON.
func (w *BufferWriter) String() string {
	lines := w.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// MultiWriter fans every line out to all writers. Every writer is tried;
// the failures are combined. When at least one writer accepted the line
// and another failed, the error is a *PartialWriteError.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter returns a MultiWriter over writers, tried in order.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(ctx context.Context, line []byte) error {
	var (
		err     error
		written int
		failed  int
	)
	for _, w := range m.writers {
		if werr := w.Write(ctx, line); werr != nil {
			err = multierr.Append(err, werr)
			failed++
			continue
		}
		written++
	}
	if err != nil && written > 0 {
		return &PartialWriteError{Written: written, Failed: failed, Err: err}
	}
	return err
}

// PartialWriteError reports a line that some writers of a MultiWriter
// accepted and others rejected. The line is on the stream of the writers
// that accepted it.
type PartialWriteError struct {
	Written int
	Failed  int
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("line written to %d of %d writers: %v", e.Written, e.Written+e.Failed, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, line []byte) error

func (f WriterFunc) Write(ctx context.Context, line []byte) error {
	return f(ctx, line)
}
