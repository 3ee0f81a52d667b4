package output

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/roach88/ocptv/internal/schema"
)

// TestStep is an unstarted step of a run, created by StartedTestRun.AddStep.
type TestStep struct {
	id   string
	name string
	run  *TestRun

	// Lock order: series.mu, then step.mu, then run.mu.
	mu           sync.Mutex
	state        scopeState
	nextSeriesID int
	openSeries   int
}

// ID returns the step id referenced by the step's artifacts.
func (s *TestStep) ID() string { return s.id }

// Name returns the step name.
func (s *TestStep) Name() string { return s.name }

// Start emits testStepStart. The parent run must be started and must have
// no other started step.
//
// If testStepStart reached only some writers of a MultiWriter, the step is
// started and the handle comes back together with the sink failure.
//
// A step started this way must be ended with StartedTestStep.End. Nothing
// ends it automatically; prefer Scope.
func (s *TestStep) Start(ctx context.Context) (*StartedTestStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateUnstarted {
		return nil, NewScopeOrderingViolation(s.id, "cannot start step: step is %s", s.state)
	}

	r := s.run
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateStarted {
		return nil, NewScopeOrderingViolation(s.id, "cannot start step: run is %s", r.state)
	}
	if r.activeStep != nil {
		return nil, NewScopeOrderingViolation(s.id, "cannot start step: step %s is still started", r.activeStep.id)
	}

	written, err := r.emitter.emit(ctx, s.id, &schema.Root{
		TestStepArtifact: &schema.TestStepArtifact{
			TestStepID:    s.id,
			TestStepStart: &schema.TestStepStart{Name: s.name},
		},
	})
	if !written {
		return nil, err
	}
	s.state = stateStarted
	r.activeStep = s
	return &StartedTestStep{step: s}, err
}

// Scope starts the step, calls fn, and ends the step however fn exits.
//
// When fn returns nil the step ends with the status fn returned. When fn
// returns an error, panics or the goroutine exits, the step ends with
// status ERROR before the failure propagates. A status outside the
// vocabulary also ends the step with ERROR, and the rejection is returned.
// The returned error combines fn's error with any failure to end the step.
func (s *TestStep) Scope(
	ctx context.Context,
	fn func(ctx context.Context, step *StartedTestStep) (TestStatus, error),
) error {
	started, startErr := s.Start(ctx)
	if started == nil {
		return startErr
	}

	var status TestStatus
	return multierr.Append(startErr, guard(ctx, s.run.emitter.logger, s.id,
		func(ctx context.Context) error {
			var err error
			status, err = fn(ctx, started)
			return err
		},
		func(ctx context.Context, failed bool) error {
			if failed {
				return started.End(ctx, TestStatusError)
			}
			if err := validateStatus(s.id, status); err != nil {
				s.run.emitter.logger.Warn("step status rejected, closing with error status", "scope", s.id, "error", err)
				return multierr.Append(err, started.End(ctx, TestStatusError))
			}
			return started.End(ctx, status)
		},
	))
}

// StartedTestStep is the handle of a started step. Once the step ended
// every method fails with a scope ordering violation.
type StartedTestStep struct {
	step *TestStep
}

// ID returns the step id.
func (h *StartedTestStep) ID() string { return h.step.id }

// End emits testStepEnd. Ending a step with a measurement series still
// started is a scope ordering violation and leaves the step started, and so
// does a status outside the wire vocabulary (a serialization failure).
func (h *StartedTestStep) End(ctx context.Context, status TestStatus) error {
	s := h.step
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateStarted {
		return NewScopeOrderingViolation(s.id, "cannot end step: step is %s", s.state)
	}
	if s.openSeries > 0 {
		return NewScopeOrderingViolation(s.id, "cannot end step: %d measurement series still started", s.openSeries)
	}
	if err := validateStatus(s.id, status); err != nil {
		return err
	}

	written, err := s.run.emitter.emit(ctx, s.id, &schema.Root{
		TestStepArtifact: &schema.TestStepArtifact{
			TestStepID:  s.id,
			TestStepEnd: &schema.TestStepEnd{Status: status},
		},
	})
	if !written {
		return err
	}
	s.state = stateEnded

	s.run.mu.Lock()
	if s.run.activeStep == s {
		s.run.activeStep = nil
	}
	s.run.mu.Unlock()
	return err
}

// AddMeasurement emits a measurement with just a name and a value.
func (h *StartedTestStep) AddMeasurement(ctx context.Context, name string, value any) error {
	return h.AddMeasurementDetail(ctx, Measurement{Name: name, Value: value})
}

// AddMeasurementDetail emits a measurement with unit, validators and references.
func (h *StartedTestStep) AddMeasurementDetail(ctx context.Context, m Measurement) error {
	return h.emitStepArtifact(ctx, &schema.TestStepArtifact{Measurement: m.toSchema()})
}

// AddDiagnosis emits a diagnosis with just a verdict and a type.
func (h *StartedTestStep) AddDiagnosis(ctx context.Context, verdict string, typ DiagnosisType) error {
	return h.AddDiagnosisDetail(ctx, Diagnosis{Verdict: verdict, Type: typ})
}

// AddDiagnosisHere is AddDiagnosis with the caller's source location attached.
func (h *StartedTestStep) AddDiagnosisHere(ctx context.Context, verdict string, typ DiagnosisType) error {
	return h.AddDiagnosisDetail(ctx, Diagnosis{Verdict: verdict, Type: typ, SourceLocation: callerLocation(2)})
}

// AddDiagnosisDetail emits a diagnosis with message, references and source location.
func (h *StartedTestStep) AddDiagnosisDetail(ctx context.Context, d Diagnosis) error {
	return h.emitStepArtifact(ctx, &schema.TestStepArtifact{Diagnosis: d.toSchema()})
}

// AddLog emits a step-level log.
func (h *StartedTestStep) AddLog(ctx context.Context, severity LogSeverity, message string) error {
	return h.AddLogDetail(ctx, Log{Severity: severity, Message: message})
}

// AddLogHere is AddLog with the caller's source location attached.
func (h *StartedTestStep) AddLogHere(ctx context.Context, severity LogSeverity, message string) error {
	return h.AddLogDetail(ctx, Log{Severity: severity, Message: message, SourceLocation: callerLocation(2)})
}

// AddLogDetail emits a step-level log with an optional source location.
func (h *StartedTestStep) AddLogDetail(ctx context.Context, l Log) error {
	return h.emitStepArtifact(ctx, &schema.TestStepArtifact{Log: l.toSchema()})
}

// AddError emits a step-level error.
func (h *StartedTestStep) AddError(ctx context.Context, symptom string) error {
	return h.AddErrorDetail(ctx, Error{Symptom: symptom})
}

// AddErrorMsg emits a step-level error with a message.
func (h *StartedTestStep) AddErrorMsg(ctx context.Context, symptom, message string) error {
	return h.AddErrorDetail(ctx, Error{Symptom: symptom, Message: message})
}

// AddErrorDetail emits a step-level error referencing software infos.
func (h *StartedTestStep) AddErrorDetail(ctx context.Context, e Error) error {
	return h.emitStepArtifact(ctx, &schema.TestStepArtifact{Error: e.toSchema()})
}

// AddFile emits a file artifact referencing uri.
func (h *StartedTestStep) AddFile(ctx context.Context, name, uri string) error {
	return h.AddFileDetail(ctx, File{Name: name, URI: uri})
}

// AddFileDetail emits a file artifact with content type, description and metadata.
func (h *StartedTestStep) AddFileDetail(ctx context.Context, f File) error {
	return h.emitStepArtifact(ctx, &schema.TestStepArtifact{File: f.toSchema()})
}

// AddExtension emits an extension artifact. content must be JSON-encodable.
func (h *StartedTestStep) AddExtension(ctx context.Context, name string, content any) error {
	return h.emitStepArtifact(ctx, &schema.TestStepArtifact{
		Extension: &schema.Extension{Name: name, Content: content},
	})
}

// AddMeasurementSeries allocates the next series id (series_0, series_1, ...)
// and returns the unstarted series.
func (h *StartedTestStep) AddMeasurementSeries(name string) *MeasurementSeries {
	return h.AddMeasurementSeriesDetail(MeasurementSeriesDetail{Name: name})
}

// AddMeasurementSeriesDetail is AddMeasurementSeries with unit, validators and references.
func (h *StartedTestStep) AddMeasurementSeriesDetail(detail MeasurementSeriesDetail) *MeasurementSeries {
	s := h.step
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "series_" + strconv.Itoa(s.nextSeriesID)
	s.nextSeriesID++
	return &MeasurementSeries{id: id, detail: detail, step: s}
}

func (h *StartedTestStep) emitStepArtifact(ctx context.Context, a *schema.TestStepArtifact) error {
	s := h.step
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateStarted {
		return NewScopeOrderingViolation(s.id, "cannot emit artifact: step is %s", s.state)
	}
	a.TestStepID = s.id
	_, err := s.run.emitter.emit(ctx, s.id, &schema.Root{TestStepArtifact: a})
	return err
}
