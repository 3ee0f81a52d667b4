package output

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/roach88/ocptv/internal/schema"
)

// TestRun is an unstarted test run. Start it with Scope (preferred) or Start.
//
// Thread-safety: all methods of TestRun and StartedTestRun are safe for
// concurrent use. Steps under one run are sequential: at most one step may
// be started at a time.
type TestRun struct {
	name        string
	version     string
	commandLine string
	parameters  map[string]any
	metadata    map[string]any
	emitter     *Emitter

	mu         sync.Mutex
	state      scopeState
	nextStepID int
	activeStep *TestStep
}

// TestRunOption configures a TestRun.
type TestRunOption func(*TestRun)

// WithEmitter sets the emitter the run writes through. Runs sharing an
// emitter share its sequence. Default: a new stdout Emitter.
func WithEmitter(e *Emitter) TestRunOption {
	return func(r *TestRun) {
		r.emitter = e
	}
}

// WithCommandLine overrides the command line reported in testRunStart.
// Default: the process arguments after the program name.
func WithCommandLine(cmdline string) TestRunOption {
	return func(r *TestRun) {
		r.commandLine = cmdline
	}
}

// WithParameter adds a key to the parameters reported in testRunStart.
func WithParameter(key string, value any) TestRunOption {
	return func(r *TestRun) {
		r.parameters[key] = value
	}
}

// WithMetadata adds a key to the metadata reported in testRunStart.
func WithMetadata(key string, value any) TestRunOption {
	return func(r *TestRun) {
		if r.metadata == nil {
			r.metadata = make(map[string]any)
		}
		r.metadata[key] = value
	}
}

// NewTestRun creates an unstarted run identified by name and version.
func NewTestRun(name, version string, opts ...TestRunOption) *TestRun {
	r := &TestRun{
		name:        name,
		version:     version,
		commandLine: strings.Join(os.Args[1:], " "),
		parameters:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.emitter == nil {
		r.emitter = NewEmitter()
	}
	return r
}

// Name returns the run name.
func (r *TestRun) Name() string { return r.name }

// Version returns the run version.
func (r *TestRun) Version() string { return r.version }

// Start emits testRunStart, preceded by the schemaVersion declaration if
// this is the emitter's first artifact. Starting a run twice is a scope
// ordering violation.
//
// If testRunStart reached only some writers of a MultiWriter, the run is
// started and the handle comes back together with the sink failure.
//
// A run started this way must be ended with StartedTestRun.End. Nothing
// ends it automatically; prefer Scope.
func (r *TestRun) Start(ctx context.Context, dut *DutInfo) (*StartedTestRun, error) {
	if dut == nil {
		return nil, errors.New("test run requires a DutInfo")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateUnstarted {
		return nil, NewScopeOrderingViolation(r.scope(), "cannot start run: run is %s", r.state)
	}

	written, err := r.emitter.emit(ctx, r.scope(), &schema.Root{
		TestRunArtifact: &schema.TestRunArtifact{TestRunStart: &schema.TestRunStart{
			Name:        r.name,
			Version:     r.version,
			CommandLine: r.commandLine,
			Parameters:  maps.Clone(r.parameters),
			DutInfo:     dut.toSchema(),
			Metadata:    maps.Clone(r.metadata),
		}},
	})
	if !written {
		return nil, err
	}
	r.state = stateStarted
	return &StartedTestRun{run: r}, err
}

// Scope starts the run, calls fn, and ends the run however fn exits.
//
// When fn returns nil the run ends with fn's outcome. When fn returns an
// error, panics or the goroutine exits, the run ends with status ERROR and
// result FAIL. An outcome outside the status and result vocabularies also
// ends the run with ERROR and FAIL, and the rejection is returned. The
// returned error combines fn's error with any failure to end the run; a
// panic is resumed after the end artifact was written.
func (r *TestRun) Scope(
	ctx context.Context,
	dut *DutInfo,
	fn func(ctx context.Context, run *StartedTestRun) (TestRunOutcome, error),
) error {
	started, startErr := r.Start(ctx, dut)
	if started == nil {
		return startErr
	}

	var outcome TestRunOutcome
	return multierr.Append(startErr, guard(ctx, r.emitter.logger, r.scope(),
		func(ctx context.Context) error {
			var err error
			outcome, err = fn(ctx, started)
			return err
		},
		func(ctx context.Context, failed bool) error {
			if failed {
				return started.End(ctx, TestStatusError, TestResultFail)
			}
			if err := validateOutcome(r.scope(), outcome.Status, outcome.Result); err != nil {
				r.emitter.logger.Warn("run outcome rejected, closing with error status", "scope", r.scope(), "error", err)
				return multierr.Append(err, started.End(ctx, TestStatusError, TestResultFail))
			}
			return started.End(ctx, outcome.Status, outcome.Result)
		},
	))
}

func (r *TestRun) scope() string {
	return "run:" + r.name
}

// StartedTestRun is the handle of a started run. Once the run ended every
// method fails with a scope ordering violation.
type StartedTestRun struct {
	run *TestRun
}

// End emits testRunEnd. Ending a run while one of its steps is still
// started is a scope ordering violation and leaves the run started, and so
// does a status or result outside the wire vocabulary (a serialization
// failure).
func (s *StartedTestRun) End(ctx context.Context, status TestStatus, result TestResult) error {
	r := s.run
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateStarted {
		return NewScopeOrderingViolation(r.scope(), "cannot end run: run is %s", r.state)
	}
	if r.activeStep != nil {
		return NewScopeOrderingViolation(r.scope(), "cannot end run: step %s is still started", r.activeStep.id)
	}
	if err := validateOutcome(r.scope(), status, result); err != nil {
		return err
	}

	written, err := r.emitter.emit(ctx, r.scope(), &schema.Root{
		TestRunArtifact: &schema.TestRunArtifact{TestRunEnd: &schema.TestRunEnd{
			Status: status,
			Result: result,
		}},
	})
	if !written {
		return err
	}
	r.state = stateEnded
	return err
}

// AddStep allocates the next step id (step0, step1, ...) and returns the
// unstarted step.
func (s *StartedTestRun) AddStep(name string) *TestStep {
	r := s.run
	r.mu.Lock()
	defer r.mu.Unlock()

	id := "step" + strconv.Itoa(r.nextStepID)
	r.nextStepID++
	return &TestStep{id: id, name: name, run: r}
}

// AddLog emits a run-level log.
func (s *StartedTestRun) AddLog(ctx context.Context, severity LogSeverity, message string) error {
	return s.AddLogDetail(ctx, Log{Severity: severity, Message: message})
}

// AddLogDetail emits a run-level log.
func (s *StartedTestRun) AddLogDetail(ctx context.Context, log Log) error {
	return s.emitRunArtifact(ctx, &schema.TestRunArtifact{Log: log.toSchema()})
}

// AddError emits a run-level error.
func (s *StartedTestRun) AddError(ctx context.Context, symptom string) error {
	return s.AddErrorDetail(ctx, Error{Symptom: symptom})
}

// AddErrorMsg emits a run-level error with a message.
func (s *StartedTestRun) AddErrorMsg(ctx context.Context, symptom, message string) error {
	return s.AddErrorDetail(ctx, Error{Symptom: symptom, Message: message})
}

// AddErrorDetail emits a run-level error.
func (s *StartedTestRun) AddErrorDetail(ctx context.Context, e Error) error {
	return s.emitRunArtifact(ctx, &schema.TestRunArtifact{Error: e.toSchema()})
}

func (s *StartedTestRun) emitRunArtifact(ctx context.Context, a *schema.TestRunArtifact) error {
	r := s.run
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateStarted {
		return NewScopeOrderingViolation(r.scope(), "cannot emit artifact: run is %s", r.state)
	}
	_, err := r.emitter.emit(ctx, r.scope(), &schema.Root{TestRunArtifact: a})
	return err
}

// validateOutcome rejects a status or result outside the wire vocabulary.
func validateOutcome(scope string, status TestStatus, result TestResult) error {
	if err := validateStatus(scope, status); err != nil {
		return err
	}
	if !result.Valid() {
		return NewSerializationFailure(scope, fmt.Errorf("invalid test result %q", result))
	}
	return nil
}

func validateStatus(scope string, status TestStatus) error {
	if !status.Valid() {
		return NewSerializationFailure(scope, fmt.Errorf("invalid test status %q", status))
	}
	return nil
}
