package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/ocptv/internal/logging"
	"github.com/roach88/ocptv/internal/schema"
	"github.com/roach88/ocptv/internal/testutil"
	"github.com/roach88/ocptv/internal/validate"
	"github.com/roach88/ocptv/output"
)

// Option configures a scenario execution.
type Option func(*config)

type config struct {
	clock  output.Clock
	writer output.Writer
	logger logging.Logger
}

// WithClock replaces the default epoch clock.
func WithClock(c output.Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithWriter mirrors the stream into w in addition to the in-memory copy.
func WithWriter(w output.Writer) Option {
	return func(cfg *config) { cfg.writer = w }
}

// WithLogger sets the logger handed to the emitter and the checker.
func WithLogger(l logging.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

var shapeValidator = sync.OnceValues(validate.NewShapeValidator)

// Run executes a scenario and returns the result.
//
// Each scenario gets its own emitter. By default timestamps are pinned to
// the epoch and auto-generated DUT ids count from "id0", so the emitted
// stream is byte-identical across runs.
//
// The returned error is non-nil only when the scenario could not be
// executed at all; run failures and unmet expectations are in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		clock:  testutil.NewEpochClock(),
		logger: logging.NewDevNullLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	shape, err := shapeValidator()
	if err != nil {
		return nil, err
	}

	buf := output.NewBufferWriter()
	var w output.Writer = buf
	if cfg.writer != nil {
		w = output.NewMultiWriter(buf, cfg.writer)
	}
	emitter := output.NewEmitter(
		output.WithWriter(w),
		output.WithClock(cfg.clock),
		output.WithLogger(cfg.logger),
	)

	logger := cfg.logger.With("scenario", scenario.Name)
	logger.Debug("running scenario")

	result := NewResult()
	panicked, runErr := execute(ctx, emitter, scenario)
	if runErr != nil {
		result.Error = runErr.Error()
		var rerr *output.RuntimeError
		if errors.As(runErr, &rerr) {
			result.ErrorCode = string(rerr.Code)
		}
	}
	if panicked != nil {
		var sp *output.ScopePanic
		if p, ok := panicked.(error); ok && errors.As(p, &sp) {
			panicked = sp.Value
		}
		result.Panic = fmt.Sprint(panicked)
	}

	result.Lines = buf.Lines()
	for i, line := range result.Lines {
		root, err := schema.Decode([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("decode emitted line %d: %w", i, err)
		}
		result.Kinds = append(result.Kinds, root.Kind())
	}

	checker := validate.NewChecker(validate.WithShape(shape), validate.WithLogger(logger))
	lines := make([][]byte, len(result.Lines))
	for i, l := range result.Lines {
		lines[i] = []byte(l)
	}
	result.Report = checker.CheckLines(lines)

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	logger.Debug("scenario finished", "artifacts", len(result.Lines), "pass", result.Pass)
	return result, nil
}

// execute drives the run scope and recovers a panic that escapes it.
func execute(ctx context.Context, emitter *output.Emitter, sc *Scenario) (panicked any, err error) {
	defer func() {
		if p := recover(); p != nil {
			panicked = p
		}
	}()

	dut := buildDut(sc.Dut)
	opts := []output.TestRunOption{
		output.WithEmitter(emitter),
		output.WithCommandLine(sc.Run.CommandLine),
	}
	for k, v := range sc.Run.Parameters {
		opts = append(opts, output.WithParameter(k, v))
	}
	for k, v := range sc.Run.Metadata {
		opts = append(opts, output.WithMetadata(k, v))
	}
	run := output.NewTestRun(sc.Run.Name, sc.Run.Version, opts...)

	outcome := output.TestRunOutcome{
		Status: orDefault(output.TestStatus(sc.Outcome.Status), output.TestStatusComplete),
		Result: orDefault(output.TestResult(sc.Outcome.Result), output.TestResultPass),
	}
	x := &executor{dut: dut}
	err = run.Scope(ctx, dut, func(ctx context.Context, r *output.StartedTestRun) (output.TestRunOutcome, error) {
		for _, a := range sc.Actions {
			if err := x.runAction(ctx, r, a); err != nil {
				return output.TestRunOutcome{}, err
			}
		}
		return outcome, nil
	})
	return nil, err
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func buildDut(spec DutSpec) *output.DutInfo {
	opts := []output.DutInfoOption{output.WithIDGenerator(testutil.NewCountingIDGenerator("id"))}
	if spec.Name != "" {
		opts = append(opts, output.WithDutName(spec.Name))
	}
	for k, v := range spec.Metadata {
		opts = append(opts, output.WithDutMetadata(k, v))
	}
	dut := output.NewDutInfo(spec.ID, opts...)
	for _, p := range spec.Platform {
		dut.AddPlatformInfo(p)
	}
	for _, sw := range spec.Software {
		dut.AddSoftwareInfo(output.SoftwareInfo{
			ID:       sw.ID,
			Name:     sw.Name,
			Version:  sw.Version,
			Revision: sw.Revision,
			Type:     output.SoftwareType(sw.Type),
		})
	}
	for _, hw := range spec.Hardware {
		dut.AddHardwareInfo(output.HardwareInfo{
			ID:           hw.ID,
			Name:         hw.Name,
			Version:      hw.Version,
			Location:     hw.Location,
			SerialNumber: hw.SerialNumber,
			PartNumber:   hw.PartNumber,
			Manufacturer: hw.Manufacturer,
		})
	}
	return dut
}

type executor struct {
	dut *output.DutInfo
}

func (x *executor) runAction(ctx context.Context, r *output.StartedTestRun, a Action) error {
	switch {
	case a.Log != nil:
		return r.AddLog(ctx, output.LogSeverity(a.Log.Severity), a.Log.Message)
	case a.Error != nil:
		e, err := x.errorDetail(a.Error)
		if err != nil {
			return err
		}
		return r.AddErrorDetail(ctx, e)
	case a.Step != nil:
		return x.runStep(ctx, r, a.Step)
	}
	return fmt.Errorf("unsupported run action")
}

func (x *executor) runStep(ctx context.Context, r *output.StartedTestRun, spec *StepSpec) error {
	var handle *output.StartedTestStep
	err := r.AddStep(spec.Name).Scope(ctx, func(ctx context.Context, s *output.StartedTestStep) (output.TestStatus, error) {
		handle = s
		for _, a := range spec.Actions {
			if err := x.stepAction(ctx, s, a); err != nil {
				return output.TestStatusError, err
			}
		}
		if spec.Panic != "" {
			panic(spec.Panic)
		}
		if spec.Fail != "" {
			return output.TestStatusError, errors.New(spec.Fail)
		}
		return orDefault(output.TestStatus(spec.Status), output.TestStatusComplete), nil
	})
	if err != nil {
		return err
	}
	for _, a := range spec.AfterEnd {
		if err := x.stepAction(ctx, handle, a); err != nil {
			return err
		}
	}
	return nil
}

func (x *executor) stepAction(ctx context.Context, s *output.StartedTestStep, a Action) error {
	switch {
	case a.Log != nil:
		return s.AddLog(ctx, output.LogSeverity(a.Log.Severity), a.Log.Message)
	case a.Error != nil:
		e, err := x.errorDetail(a.Error)
		if err != nil {
			return err
		}
		return s.AddErrorDetail(ctx, e)
	case a.Measurement != nil:
		m := a.Measurement
		hw, err := x.hardware(m.Hardware)
		if err != nil {
			return err
		}
		return s.AddMeasurementDetail(ctx, output.Measurement{
			Name:         m.Name,
			Value:        m.Value,
			Unit:         m.Unit,
			Validators:   validators(m.Validators),
			HardwareInfo: hw,
			Subcomponent: subcomponent(m.Subcomponent),
		})
	case a.Diagnosis != nil:
		d := a.Diagnosis
		hw, err := x.hardware(d.Hardware)
		if err != nil {
			return err
		}
		return s.AddDiagnosisDetail(ctx, output.Diagnosis{
			Verdict:      d.Verdict,
			Type:         output.DiagnosisType(d.Type),
			Message:      d.Message,
			HardwareInfo: hw,
			Subcomponent: subcomponent(d.Subcomponent),
		})
	case a.File != nil:
		f := a.File
		return s.AddFileDetail(ctx, output.File{
			Name:        f.Name,
			URI:         f.URI,
			IsSnapshot:  f.Snapshot,
			Description: f.Description,
			ContentType: f.ContentType,
		})
	case a.Extension != nil:
		return s.AddExtension(ctx, a.Extension.Name, a.Extension.Content)
	case a.Series != nil:
		spec := a.Series
		hw, err := x.hardware(spec.Hardware)
		if err != nil {
			return err
		}
		series := s.AddMeasurementSeriesDetail(output.MeasurementSeriesDetail{
			Name:         spec.Name,
			Unit:         spec.Unit,
			Validators:   validators(spec.Validators),
			HardwareInfo: hw,
		})
		return series.Scope(ctx, func(ctx context.Context, ms *output.StartedMeasurementSeries) error {
			for _, v := range spec.Elements {
				if err := ms.AddElement(ctx, v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return fmt.Errorf("unsupported step action")
}

// hardware resolves a reference to a hardware info of the DUT. An empty id
// is no reference.
func (x *executor) hardware(id string) (*output.HardwareInfo, error) {
	if id == "" {
		return nil, nil
	}
	hw, ok := x.dut.HardwareInfo(id)
	if !ok {
		return nil, fmt.Errorf("unknown hardware info %q", id)
	}
	return hw, nil
}

func (x *executor) errorDetail(spec *ErrorSpec) (output.Error, error) {
	e := output.Error{Symptom: spec.Symptom, Message: spec.Message}
	for _, id := range spec.Software {
		sw, ok := x.dut.SoftwareInfo(id)
		if !ok {
			return output.Error{}, fmt.Errorf("unknown software info %q", id)
		}
		e.SoftwareInfos = append(e.SoftwareInfos, sw)
	}
	return e, nil
}

func validators(specs []ValidatorSpec) []output.Validator {
	if len(specs) == 0 {
		return nil
	}
	out := make([]output.Validator, len(specs))
	for i, v := range specs {
		out[i] = output.Validator{Name: v.Name, Type: output.ValidatorType(v.Type), Value: v.Value}
	}
	return out
}

func subcomponent(spec *SubcomponentSpec) *output.Subcomponent {
	if spec == nil {
		return nil
	}
	return &output.Subcomponent{
		Type:     output.SubcomponentType(spec.Type),
		Name:     spec.Name,
		Location: spec.Location,
	}
}
