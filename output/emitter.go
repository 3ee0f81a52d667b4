package output

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/roach88/ocptv/internal/logging"
	"github.com/roach88/ocptv/internal/schema"
)

// Emitter is the single writer for one output stream. It owns the Sequencer
// and the Writer and serializes every emission through one critical
// section: reserve sequence number, encode, write, commit.
//
// The first artifact an Emitter writes is always the schemaVersion
// declaration, at sequence number 0. It is written lazily, right before the
// first artifact a run emits.
//
// Thread-safety: Emitter is safe for concurrent use. Emissions from several
// goroutines are serialized; sequence order equals write order.
type Emitter struct {
	mu          sync.Mutex
	seq         *Sequencer
	writer      Writer
	logger      Logger
	versionSent bool
}

// EmitterOption configures an Emitter.
type EmitterOption func(*emitterConfig)

type emitterConfig struct {
	writer Writer
	clock  Clock
	logger Logger
}

// WithWriter sets the sink. Default: NewStdoutWriter().
func WithWriter(w Writer) EmitterOption {
	return func(c *emitterConfig) {
		c.writer = w
	}
}

// WithClock sets the timestamp source. Default: SystemClock.
func WithClock(clock Clock) EmitterOption {
	return func(c *emitterConfig) {
		c.clock = clock
	}
}

// WithLogger sets the diagnostics logger. Default: discard.
func WithLogger(l Logger) EmitterOption {
	return func(c *emitterConfig) {
		c.logger = l
	}
}

// NewEmitter creates an Emitter. Emitters are independent: each has its
// own sequence starting at 0.
func NewEmitter(opts ...EmitterOption) *Emitter {
	cfg := emitterConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.writer == nil {
		cfg.writer = NewStdoutWriter()
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewDevNullLogger()
	}
	return &Emitter{
		seq:    NewSequencer(cfg.clock),
		writer: cfg.writer,
		logger: cfg.logger,
	}
}

// Count returns the number of artifacts written so far.
func (e *Emitter) Count() uint64 {
	return e.seq.Current()
}

// Logger returns the diagnostics logger.
func (e *Emitter) Logger() Logger {
	return e.logger
}

func (e *Emitter) now() time.Time {
	return e.seq.now()
}

// emit stamps root and writes it. The sequence number is consumed only when
// the line was encoded and reached the stream, so a failed emission leaves
// no gap.
//
// written reports whether root consumed its sequence number. It can be true
// together with a sink failure when a MultiWriter delivered the line to some
// of its writers only; the line is then part of the stream and the next
// artifact must not reuse its number.
func (e *Emitter) emit(ctx context.Context, scope string, root *schema.Root) (written bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var versionErr error
	if !e.versionSent {
		versionWritten, err := e.writeLocked(ctx, scope, &schema.Root{SchemaVersion: schema.CurrentVersion()})
		if !versionWritten {
			return false, err
		}
		e.versionSent = true
		versionErr = err
	}
	written, err = e.writeLocked(ctx, scope, root)
	return written, multierr.Append(versionErr, err)
}

func (e *Emitter) writeLocked(ctx context.Context, scope string, root *schema.Root) (bool, error) {
	seq, ts := e.seq.reserve()
	root.SequenceNumber = seq
	root.Timestamp = ts

	line, err := schema.Encode(root)
	if err != nil {
		e.logger.Warn("artifact encoding failed", "scope", scope, "seq", seq, "error", err)
		return false, NewSerializationFailure(scope, err)
	}
	if err := e.writer.Write(ctx, line); err != nil {
		var partial *PartialWriteError
		if errors.As(err, &partial) && partial.Written > 0 {
			e.seq.commit(ts)
			e.logger.Warn("artifact reached some writers only", "scope", scope, "seq", seq,
				"written", partial.Written, "failed", partial.Failed, "error", err)
			return true, NewSinkFailure(scope, err)
		}
		e.logger.Warn("artifact write failed", "scope", scope, "seq", seq, "error", err)
		return false, NewSinkFailure(scope, err)
	}
	e.seq.commit(ts)

	e.logger.Debug("artifact emitted", "scope", scope, "seq", seq, "kind", string(root.Kind()))
	return true, nil
}
