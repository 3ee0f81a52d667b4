package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ocptv/internal/schema"
	"github.com/roach88/ocptv/internal/testutil"
)

const epochTS = `"timestamp":"1970-01-01T00:00:00.000Z"`

// newTestEmitter returns an emitter pinned to the epoch, writing to memory.
func newTestEmitter(opts ...EmitterOption) (*Emitter, *BufferWriter) {
	buf := NewBufferWriter()
	opts = append([]EmitterOption{WithWriter(buf), WithClock(testutil.NewEpochClock())}, opts...)
	return NewEmitter(opts...), buf
}

func newTestRun(e *Emitter) *TestRun {
	return NewTestRun("r", "1.0", WithEmitter(e), WithCommandLine(""))
}

func decodeLines(t *testing.T, lines []string) []*schema.Root {
	t.Helper()
	roots := make([]*schema.Root, len(lines))
	for i, line := range lines {
		root, err := schema.Decode([]byte(line))
		require.NoError(t, err, "line %d: %s", i, line)
		roots[i] = root
	}
	return roots
}

func kinds(roots []*schema.Root) []schema.Kind {
	out := make([]schema.Kind, len(roots))
	for i, r := range roots {
		out[i] = r.Kind()
	}
	return out
}

func completeRun(outcome TestRunOutcome) func(context.Context, *StartedTestRun) (TestRunOutcome, error) {
	return func(context.Context, *StartedTestRun) (TestRunOutcome, error) {
		return outcome, nil
	}
}

var passed = TestRunOutcome{Status: TestStatusComplete, Result: TestResultPass}
