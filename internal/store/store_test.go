package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ocptv/internal/testutil"
	"github.com/roach88/ocptv/output"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// emitOneStep writes a run with one step into w and returns the lines as
// seen by an in-memory buffer.
func emitOneStep(t *testing.T, w output.Writer, runName string) []string {
	t.Helper()
	buf := output.NewBufferWriter()
	e := output.NewEmitter(
		output.WithWriter(output.NewMultiWriter(w, buf)),
		output.WithClock(testutil.NewEpochClock()),
	)
	run := output.NewTestRun(runName, "1.0", output.WithEmitter(e), output.WithCommandLine(""))
	err := run.Scope(context.Background(), output.NewDutInfo("dut0"),
		func(ctx context.Context, r *output.StartedTestRun) (output.TestRunOutcome, error) {
			err := r.AddStep("fan-check").Scope(ctx, func(ctx context.Context, s *output.StartedTestStep) (output.TestStatus, error) {
				return output.TestStatusComplete, s.AddMeasurement(ctx, "temp", 40)
			})
			return output.TestRunOutcome{Status: output.TestStatusComplete, Result: output.TestResultPass}, err
		})
	require.NoError(t, err)
	return buf.Lines()
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"streams", "artifacts", "runs"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestStreamWriter_ReplayIsByteIdentical(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	w, err := s.Stream(ctx, "nightly")
	require.NoError(t, err)
	emitted := emitOneStep(t, w, "mem")

	artifacts, err := s.ReadArtifacts(ctx, "nightly")
	require.NoError(t, err)
	require.Len(t, artifacts, len(emitted))
	for i, a := range artifacts {
		assert.Equal(t, uint64(i), a.Seq)
		assert.Equal(t, emitted[i], a.Line)
		assert.Equal(t, "1970-01-01T00:00:00.000Z", a.Timestamp)
	}
	assert.Equal(t, "schemaVersion", artifacts[0].Kind)
	assert.Equal(t, "measurement", artifacts[3].Kind)
	assert.Equal(t, "step0", artifacts[3].StepID)
}

func TestStreamWriter_IndexesRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	w, err := s.Stream(ctx, "nightly")
	require.NoError(t, err)
	emitOneStep(t, w, "mem")

	runs, err := s.ListRuns(ctx, "nightly")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, uint64(1), r.StartSeq)
	assert.Equal(t, "mem", r.Name)
	assert.Equal(t, "1.0", r.Version)
	assert.Equal(t, "dut0", r.DutInfoID)
	require.NotNil(t, r.EndSeq)
	assert.Equal(t, uint64(5), *r.EndSeq)
	assert.Equal(t, "COMPLETE", r.Status)
	assert.Equal(t, "PASS", r.Result)
}

func TestStreamWriter_OpenRunHasNoEnd(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	w, err := s.Stream(ctx, "crashed")
	require.NoError(t, err)
	e := output.NewEmitter(output.WithWriter(w), output.WithClock(testutil.NewEpochClock()))
	_, err = output.NewTestRun("mem", "1.0", output.WithEmitter(e)).Start(ctx, output.NewDutInfo("dut0"))
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, "crashed")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].EndSeq)
	assert.Empty(t, runs[0].Status)
}

func TestStreamWriter_DuplicateSeqIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w, err := s.Stream(ctx, "dup")
	require.NoError(t, err)

	line := []byte(`{"sequenceNumber":0,"schemaVersion":{"major":2,"minor":0},"timestamp":"1970-01-01T00:00:00.000Z"}`)
	require.NoError(t, w.Write(ctx, line))
	require.NoError(t, w.Write(ctx, line))

	artifacts, err := s.ReadArtifacts(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, artifacts, 1)
}

func TestStreamWriter_RejectsMalformedLine(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w, err := s.Stream(ctx, "bad")
	require.NoError(t, err)

	assert.Error(t, w.Write(ctx, []byte(`{"sequenceNumber":0}`)))
	assert.Error(t, w.Write(ctx, []byte(`not json`)))

	artifacts, err := s.ReadArtifacts(ctx, "bad")
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestStore_ReadStep(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w, err := s.Stream(ctx, "nightly")
	require.NoError(t, err)
	emitOneStep(t, w, "mem")

	step, err := s.ReadStep(ctx, "nightly", "step0")
	require.NoError(t, err)
	require.Len(t, step, 3)
	assert.Equal(t, []string{"testStepStart", "measurement", "testStepEnd"},
		[]string{step[0].Kind, step[1].Kind, step[2].Kind})

	none, err := s.ReadStep(ctx, "nightly", "step9")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_ListStreams(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b, err := s.Stream(ctx, "b")
	require.NoError(t, err)
	emitOneStep(t, b, "mem")
	_, err = s.Stream(ctx, "a")
	require.NoError(t, err)

	streams, err := s.ListStreams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StreamSummary{
		{Name: "a", Artifacts: 0, Runs: 0},
		{Name: "b", Artifacts: 6, Runs: 1},
	}, streams)
}

func TestStore_StreamNameInUseGetsSuffix(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Stream(ctx, "fans")
	require.NoError(t, err)
	assert.Equal(t, "fans", first.Name())
	emitOneStep(t, first, "first")

	second, err := s.Stream(ctx, "fans")
	require.NoError(t, err)
	require.NotEqual(t, "fans", second.Name())
	assert.True(t, strings.HasPrefix(second.Name(), "fans-"), second.Name())
	emitOneStep(t, second, "second")

	for name, run := range map[string]string{"fans": "first", second.Name(): "second"} {
		artifacts, err := s.ReadArtifacts(ctx, name)
		require.NoError(t, err)
		assert.Len(t, artifacts, 6, name)

		runs, err := s.ListRuns(ctx, name)
		require.NoError(t, err)
		require.Len(t, runs, 1, name)
		assert.Equal(t, run, runs[0].Name)
	}
}

func TestStore_EmptyStreamIsReused(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Stream(ctx, "fans")
	require.NoError(t, err)
	w, err := s.Stream(ctx, "fans")
	require.NoError(t, err)
	assert.Equal(t, "fans", w.Name())
}

func TestStreamWriter_ConflictingLineIsRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w, err := s.Stream(ctx, "fans")
	require.NoError(t, err)
	emitted := emitOneStep(t, w, "first")

	// A second writer on the same stream replays seq 1 with another run name.
	other := &StreamWriter{store: s, stream: "fans"}
	line := strings.Replace(emitted[1], `"name":"first"`, `"name":"second"`, 1)
	require.NotEqual(t, emitted[1], line)
	err = other.Write(ctx, []byte(line))
	assert.ErrorIs(t, err, ErrSeqConflict)

	artifacts, err := s.ReadArtifacts(ctx, "fans")
	require.NoError(t, err)
	assert.Equal(t, emitted[1], artifacts[1].Line)
}
