package output

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/roach88/ocptv/internal/schema"
	"github.com/roach88/ocptv/internal/testutil"
)

func TestLineWriter_AppendsNewline(t *testing.T) {
	var out bytes.Buffer
	w := NewLineWriter(&out)

	require.NoError(t, w.Write(context.Background(), []byte(`{"a":1}`)))
	require.NoError(t, w.Write(context.Background(), []byte(`{"b":2}`)))
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", out.String())
}

func TestLineWriter_ConcurrentLinesDoNotInterleave(t *testing.T) {
	var out bytes.Buffer
	w := NewLineWriter(&out)
	const goroutines = 20
	line := strings.Repeat("x", 512)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Write(context.Background(), []byte(line)))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, goroutines)
	for _, l := range lines {
		assert.Equal(t, line, l)
	}
}

type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }

func TestLineWriter_PropagatesError(t *testing.T) {
	boom := errors.New("disk full")
	err := NewLineWriter(errWriter{boom}).Write(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, boom)
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := NewFileWriter(path)
	require.NoError(t, err)

	e := NewEmitter(WithWriter(w))
	require.NoError(t, newTestRun(e).Scope(context.Background(), NewDutInfo("dut0"), completeRun(passed)))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `{"sequenceNumber":0,"schemaVersion"`))
}

func TestFileWriter_BadPath(t *testing.T) {
	_, err := NewFileWriter(filepath.Join(t.TempDir(), "missing", "out.jsonl"))
	assert.Error(t, err)
}

func TestBufferWriter_String(t *testing.T) {
	w := NewBufferWriter()
	assert.Equal(t, "", w.String())
	require.NoError(t, w.Write(context.Background(), []byte("a")))
	require.NoError(t, w.Write(context.Background(), []byte("b")))
	assert.Equal(t, "a\nb\n", w.String())
}

func TestMultiWriter_TriesEveryWriter(t *testing.T) {
	first := NewBufferWriter()
	second := NewBufferWriter()
	boom := errors.New("boom")
	failing := WriterFunc(func(context.Context, []byte) error { return boom })

	err := NewMultiWriter(first, failing, second).Write(context.Background(), []byte("line"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"line"}, first.Lines())
	assert.Equal(t, []string{"line"}, second.Lines())

	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Written)
	assert.Equal(t, 1, partial.Failed)
	assert.Len(t, multierr.Errors(partial.Err), 1)
	assert.Contains(t, err.Error(), "line written to 2 of 3 writers")
}

func TestMultiWriter_AllFailingIsNotPartial(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	err := NewMultiWriter(
		WriterFunc(func(context.Context, []byte) error { return errA }),
		WriterFunc(func(context.Context, []byte) error { return errB }),
	).Write(context.Background(), []byte("line"))

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	var partial *PartialWriteError
	assert.False(t, errors.As(err, &partial))
}

func TestEmitter_PartialWriteConsumesSequenceNumber(t *testing.T) {
	healthy := NewBufferWriter()
	flaky := WriterFunc(func(context.Context, []byte) error { return errors.New("disk full") })
	e := NewEmitter(WithWriter(NewMultiWriter(healthy, flaky)), WithClock(testutil.NewEpochClock()))
	ctx := context.Background()

	started, err := newTestRun(e).Start(ctx, NewDutInfo("dut0"))
	require.NotNil(t, started, "a run reaching one writer is started")
	assert.True(t, IsSinkFailure(err), "got %v", err)

	err = started.AddLog(ctx, LogSeverityInfo, "a")
	assert.True(t, IsSinkFailure(err), "got %v", err)
	err = started.End(ctx, TestStatusComplete, TestResultPass)
	assert.True(t, IsSinkFailure(err), "got %v", err)

	roots := decodeLines(t, healthy.Lines())
	assert.Equal(t, []schema.Kind{
		schema.KindSchemaVersion,
		schema.KindTestRunStart,
		schema.KindLog,
		schema.KindTestRunEnd,
	}, kinds(roots))
	for i, r := range roots {
		assert.Equal(t, uint64(i), r.SequenceNumber)
	}
	assert.True(t, IsScopeOrderingViolation(started.End(ctx, TestStatusComplete, TestResultPass)), "run ended")
}
