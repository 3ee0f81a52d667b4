package output

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/roach88/ocptv/internal/schema"
)

// MeasurementSeries is an unstarted series of measurements within a step.
type MeasurementSeries struct {
	id     string
	detail MeasurementSeriesDetail
	step   *TestStep

	mu        sync.Mutex
	state     scopeState
	nextIndex uint64
}

// ID returns the measurementSeriesId.
func (m *MeasurementSeries) ID() string { return m.id }

// Start emits measurementSeriesStart. The owning step must be started.
//
// A series started this way must be ended with StartedMeasurementSeries.End;
// until then the step cannot end. Prefer Scope.
func (m *MeasurementSeries) Start(ctx context.Context) (*StartedMeasurementSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateUnstarted {
		return nil, NewScopeOrderingViolation(m.scope(), "cannot start series: series is %s", m.state)
	}

	s := m.step
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateStarted {
		return nil, NewScopeOrderingViolation(m.scope(), "cannot start series: step is %s", s.state)
	}

	d := m.detail
	written, err := s.run.emitter.emit(ctx, m.scope(), &schema.Root{
		TestStepArtifact: &schema.TestStepArtifact{
			TestStepID: s.id,
			MeasurementSeriesStart: &schema.MeasurementSeriesStart{
				Name:                d.Name,
				Unit:                d.Unit,
				MeasurementSeriesID: m.id,
				Validators:          validatorsToSchema(d.Validators),
				HardwareInfoID:      hardwareID(d.HardwareInfo),
				Subcomponent:        d.Subcomponent.toSchema(),
				Metadata:            d.Metadata,
			},
		},
	})
	if !written {
		return nil, err
	}
	m.state = stateStarted
	s.openSeries++
	return &StartedMeasurementSeries{series: m}, err
}

// Scope starts the series, calls fn, and ends the series however fn exits.
// The returned error combines fn's error with any failure to end the series.
func (m *MeasurementSeries) Scope(
	ctx context.Context,
	fn func(ctx context.Context, series *StartedMeasurementSeries) error,
) error {
	started, startErr := m.Start(ctx)
	if started == nil {
		return startErr
	}
	return multierr.Append(startErr, guard(ctx, m.step.run.emitter.logger, m.scope(),
		func(ctx context.Context) error {
			return fn(ctx, started)
		},
		func(ctx context.Context, _ bool) error {
			return started.End(ctx)
		},
	))
}

func (m *MeasurementSeries) scope() string {
	return m.step.id + "/" + m.id
}

// StartedMeasurementSeries is the handle of a started series.
type StartedMeasurementSeries struct {
	series *MeasurementSeries
}

// ID returns the measurementSeriesId.
func (h *StartedMeasurementSeries) ID() string { return h.series.id }

// AddElement emits the next element, timestamped now.
func (h *StartedMeasurementSeries) AddElement(ctx context.Context, value any) error {
	return h.AddElementDetail(ctx, MeasurementElement{Value: value})
}

// AddElementDetail emits the next element. Indexes start at 0 and only
// advance when the element reached the stream.
func (h *StartedMeasurementSeries) AddElementDetail(ctx context.Context, el MeasurementElement) error {
	m := h.series
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateStarted {
		return NewScopeOrderingViolation(m.scope(), "cannot add element: series is %s", m.state)
	}

	emitter := m.step.run.emitter
	ts := el.Timestamp
	if ts.IsZero() {
		ts = emitter.now()
	}
	written, err := emitter.emit(ctx, m.scope(), &schema.Root{
		TestStepArtifact: &schema.TestStepArtifact{
			TestStepID: m.step.id,
			MeasurementSeriesElement: &schema.MeasurementSeriesElement{
				Index:               m.nextIndex,
				Value:               el.Value,
				Timestamp:           schema.NewTimestamp(ts),
				MeasurementSeriesID: m.id,
				Metadata:            el.Metadata,
			},
		},
	})
	if written {
		m.nextIndex++
	}
	return err
}

// End emits measurementSeriesEnd with the number of elements written.
func (h *StartedMeasurementSeries) End(ctx context.Context) error {
	m := h.series
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateStarted {
		return NewScopeOrderingViolation(m.scope(), "cannot end series: series is %s", m.state)
	}

	s := m.step
	written, err := s.run.emitter.emit(ctx, m.scope(), &schema.Root{
		TestStepArtifact: &schema.TestStepArtifact{
			TestStepID: s.id,
			MeasurementSeriesEnd: &schema.MeasurementSeriesEnd{
				MeasurementSeriesID: m.id,
				TotalCount:          m.nextIndex,
			},
		},
	})
	if !written {
		return err
	}
	m.state = stateEnded

	s.mu.Lock()
	s.openSeries--
	s.mu.Unlock()
	return err
}
