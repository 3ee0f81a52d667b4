package output

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ocptv/internal/schema"
	"github.com/roach88/ocptv/internal/testutil"
)

func TestEmitter_SchemaVersionFirstAndOnce(t *testing.T) {
	e, buf := newTestEmitter()
	ctx := context.Background()

	assert.Empty(t, buf.Lines(), "nothing is written before the first run starts")

	require.NoError(t, newTestRun(e).Scope(ctx, NewDutInfo("dut0"), completeRun(passed)))
	require.NoError(t, newTestRun(e).Scope(ctx, NewDutInfo("dut1"), completeRun(passed)))

	lines := buf.Lines()
	require.Len(t, lines, 5)
	assert.Equal(t, `{"sequenceNumber":0,"schemaVersion":{"major":2,"minor":0},`+epochTS+`}`, lines[0])

	roots := decodeLines(t, lines)
	assert.Equal(t, []schema.Kind{
		schema.KindSchemaVersion,
		schema.KindTestRunStart, schema.KindTestRunEnd,
		schema.KindTestRunStart, schema.KindTestRunEnd,
	}, kinds(roots))
	assert.Equal(t, uint64(5), e.Count())
}

func TestEmitter_IndependentSequences(t *testing.T) {
	e1, buf1 := newTestEmitter()
	e2, buf2 := newTestEmitter()
	ctx := context.Background()

	require.NoError(t, newTestRun(e1).Scope(ctx, NewDutInfo("dut0"), completeRun(passed)))
	require.NoError(t, newTestRun(e2).Scope(ctx, NewDutInfo("dut0"), completeRun(passed)))

	assert.Equal(t, buf1.Lines(), buf2.Lines())
}

func TestEmitter_SinkFailureLeavesNoGap(t *testing.T) {
	w := testutil.NewFailingWriter(1)
	e := NewEmitter(WithWriter(w), WithClock(testutil.NewEpochClock()))
	run := newTestRun(e)
	ctx := context.Background()

	_, err := run.Start(ctx, NewDutInfo("dut0"))
	require.Error(t, err)
	assert.True(t, IsSinkFailure(err))
	assert.ErrorIs(t, err, testutil.ErrSinkClosed)
	assert.Equal(t, uint64(1), e.Count(), "only the schema version was written")

	w.Accept(10)
	started, err := run.Start(ctx, NewDutInfo("dut0"))
	require.NoError(t, err, "a failed start leaves the run unstarted")
	require.NoError(t, started.End(ctx, TestStatusComplete, TestResultPass))

	roots := decodeLines(t, w.Lines())
	require.Len(t, roots, 3)
	for i, r := range roots {
		assert.Equal(t, uint64(i), r.SequenceNumber)
	}
}

func TestEmitter_SchemaVersionFailureIsRetried(t *testing.T) {
	w := testutil.NewFailingWriter(0)
	e := NewEmitter(WithWriter(w), WithClock(testutil.NewEpochClock()))
	run := newTestRun(e)
	ctx := context.Background()

	_, err := run.Start(ctx, NewDutInfo("dut0"))
	assert.True(t, IsSinkFailure(err))

	w.Accept(10)
	_, err = run.Start(ctx, NewDutInfo("dut0"))
	require.NoError(t, err)

	roots := decodeLines(t, w.Lines())
	assert.Equal(t, []schema.Kind{schema.KindSchemaVersion, schema.KindTestRunStart}, kinds(roots))
	assert.Equal(t, uint64(0), roots[0].SequenceNumber)
}

func TestEmitter_SerializationFailureLeavesNoGap(t *testing.T) {
	e, buf := newTestEmitter()
	ctx := context.Background()

	err := newTestRun(e).Scope(ctx, NewDutInfo("dut0"), func(ctx context.Context, r *StartedTestRun) (TestRunOutcome, error) {
		err := r.AddStep("s").Scope(ctx, func(ctx context.Context, s *StartedTestStep) (TestStatus, error) {
			err := s.AddMeasurement(ctx, "temp", math.NaN())
			assert.True(t, IsSerializationFailure(err), "got %v", err)
			return TestStatusComplete, s.AddMeasurement(ctx, "temp", 41.5)
		})
		return passed, err
	})
	require.NoError(t, err)

	roots := decodeLines(t, buf.Lines())
	require.Len(t, roots, 6)
	for i, r := range roots {
		assert.Equal(t, uint64(i), r.SequenceNumber)
	}
	require.Equal(t, schema.KindMeasurement, roots[3].Kind())
	assert.Equal(t, 41.5, roots[3].TestStepArtifact.Measurement.Value)
}

func TestEmitter_CancelledContextEmitsNothing(t *testing.T) {
	e, buf := newTestEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRun(e).Start(ctx, NewDutInfo("dut0"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.Lines())
}

func TestEmitter_ConcurrentRunsSerialize(t *testing.T) {
	e, buf := newTestEmitter()
	ctx := context.Background()
	const runs = 8
	const logsPerRun = 25

	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run := NewTestRun(fmt.Sprintf("r%d", i), "1.0", WithEmitter(e), WithCommandLine(""))
			err := run.Scope(ctx, NewDutInfo("dut"), func(ctx context.Context, r *StartedTestRun) (TestRunOutcome, error) {
				for j := 0; j < logsPerRun; j++ {
					if err := r.AddLog(ctx, LogSeverityInfo, fmt.Sprintf("log %d", j)); err != nil {
						return TestRunOutcome{}, err
					}
				}
				return passed, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	roots := decodeLines(t, buf.Lines())
	require.Len(t, roots, 1+runs*(logsPerRun+2))
	for i, r := range roots {
		assert.Equal(t, uint64(i), r.SequenceNumber, "write order must equal sequence order")
	}
}
