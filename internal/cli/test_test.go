package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	harnessScenarios = "../harness/testdata/scenarios"
	harnessGolden    = "../harness/testdata/golden"
)

func TestTest_HarnessScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓ minimal-run")
	assert.Contains(t, stdout, "✓ thermal-full")
	assert.Contains(t, stdout, "6 passed, 0 failed, 6 total")
}

func TestTest_Filter(t *testing.T) {
	stdout, _, err := execute(t, "test", harnessScenarios, "--filter", "step-*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	golden := filepath.Join(dir, "golden")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "minimal.yaml"), []byte(minimalScenario), 0o644))

	_, _, err := execute(t, "test", scenarios, "--golden", golden, "--update")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(golden, "minimal-run.golden"))
	require.NoError(t, err)
	assert.Equal(t, minimalStream, string(data))

	_, _, err = execute(t, "test", scenarios, "--golden", golden)
	require.NoError(t, err)
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	golden := filepath.Join(dir, "golden")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.MkdirAll(golden, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "minimal.yaml"), []byte(minimalScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(golden, "minimal-run.golden"), []byte(droppedStart()), 0o644))

	stdout, _, err := execute(t, "test", scenarios, "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ minimal-run")
	assert.Contains(t, stdout, "golden mismatch at line 2")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`name: wrong-count
run: {name: r, version: "1.0"}
dut: {id: dut0}
expect:
  artifacts: 4
`), 0o644))

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "0 passed, 1 failed, 1 total")
}

func TestTest_Errors(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "test", t.TempDir(), "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_NoScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestCompareGolden(t *testing.T) {
	path := writeFile(t, "x.golden", "a\nb\nc\n")

	assert.Empty(t, compareGolden(path, []byte("a\nb\nc\n")))
	assert.Contains(t, compareGolden(path, []byte("a\nx\nc\n")), "golden mismatch at line 2")
	assert.Contains(t, compareGolden(path, []byte("a\nb\n")), "golden mismatch at line 3")
	assert.Contains(t, compareGolden(filepath.Join(t.TempDir(), "none"), nil), "failed to read golden file")
}
