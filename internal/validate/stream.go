package validate

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/roach88/ocptv/internal/logging"
	"github.com/roach88/ocptv/internal/schema"
)

// maxLineSize bounds a single artifact line read by Check.
const maxLineSize = 16 << 20

// Checker follows an artifact stream and reports ordering and pairing
// problems. A Checker is stateless between calls and safe for concurrent use
// as long as its ShapeValidator is.
type Checker struct {
	shape  *ShapeValidator
	logger logging.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithShape also checks every line against the CUE schema.
func WithShape(v *ShapeValidator) CheckerOption {
	return func(c *Checker) { c.shape = v }
}

// WithLogger sets the logger used for per-problem debug records.
func WithLogger(logger logging.Logger) CheckerOption {
	return func(c *Checker) { c.logger = logger }
}

// NewChecker returns a Checker. Without options only the stream rules run.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{logger: logging.NewDevNullLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check reads newline-delimited artifacts from r. The returned error is
// non-nil only when r itself fails; problems in the stream go in the Report.
func (c *Checker) Check(r io.Reader) (*Report, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	st := c.newState()
	for scanner.Scan() {
		st.line(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return st.finish(), nil
}

// CheckLines checks lines already split, without trailing newlines.
func (c *Checker) CheckLines(lines [][]byte) *Report {
	st := c.newState()
	for _, l := range lines {
		st.line(l)
	}
	return st.finish()
}

type runState struct {
	seq      uint64
	hardware map[string]bool
	software map[string]bool
	stepIDs  map[string]bool
	step     *stepState
}

type stepState struct {
	id        string
	seriesIDs map[string]bool
	open      map[string]*seriesState
}

type seriesState struct {
	next uint64
}

type state struct {
	c      *Checker
	report Report

	lineNo      int
	seen        int
	nextSeq     uint64
	versionSeen bool
	lastTime    schema.Timestamp
	run         *runState
}

func (c *Checker) newState() *state {
	return &state{c: c, report: Report{Problems: []Problem{}}}
}

func (s *state) problem(code string, seq uint64, format string, args ...any) {
	p := Problem{Code: code, Line: s.lineNo, Seq: seq, Message: fmt.Sprintf(format, args...)}
	s.c.logger.Debug("stream problem", "code", p.Code, "line", p.Line, "seq", p.Seq, "message", p.Message)
	s.report.Problems = append(s.report.Problems, p)
}

func (s *state) line(raw []byte) {
	s.lineNo++
	raw = bytes.TrimRight(raw, "\r")
	if len(bytes.TrimSpace(raw)) == 0 {
		s.problem(CodeDecode, 0, "empty line")
		return
	}
	if s.c.shape != nil {
		if err := s.c.shape.Validate(raw); err != nil {
			s.problem(CodeShape, 0, "%v", err)
		}
	}
	root, err := schema.Decode(raw)
	if err != nil {
		s.problem(CodeDecode, 0, "%v", err)
		return
	}
	s.report.Artifacts++
	s.envelope(root)

	switch {
	case root.SchemaVersion != nil:
		s.schemaVersion(root)
	case root.TestRunArtifact != nil:
		s.runArtifact(root)
	case root.TestStepArtifact != nil:
		s.stepArtifact(root)
	}
	s.seen++
}

func (s *state) envelope(root *schema.Root) {
	seq := root.SequenceNumber
	if seq != s.nextSeq {
		s.problem(CodeSequence, seq, "sequence number %d, want %d", seq, s.nextSeq)
	}
	s.nextSeq = seq + 1

	ts := root.Timestamp.Time()
	if s.seen > 0 && ts.Before(s.lastTime.Time()) {
		s.problem(CodeTimestamp, seq, "timestamp %s is before %s", root.Timestamp, s.lastTime)
	}
	if s.seen == 0 || ts.After(s.lastTime.Time()) {
		s.lastTime = root.Timestamp
	}
}

func (s *state) schemaVersion(root *schema.Root) {
	seq := root.SequenceNumber
	v := root.SchemaVersion
	switch {
	case s.versionSeen:
		s.problem(CodeSchemaVersion, seq, "schemaVersion repeated")
	case s.seen > 0:
		s.problem(CodeSchemaVersion, seq, "schemaVersion is not the first artifact")
	}
	if v.Major != schema.VersionMajor {
		s.problem(CodeSchemaVersion, seq, "unsupported schema version %d.%d", v.Major, v.Minor)
	}
	s.versionSeen = true
}

func (s *state) requireVersion(seq uint64) {
	if !s.versionSeen {
		s.problem(CodeSchemaVersion, seq, "artifact before schemaVersion")
		s.versionSeen = true
	}
}

func (s *state) runArtifact(root *schema.Root) {
	seq := root.SequenceNumber
	s.requireVersion(seq)
	a := root.TestRunArtifact

	switch {
	case a.TestRunStart != nil:
		s.report.Runs++
		if s.run != nil {
			s.problem(CodeRunOverlap, seq, "testRunStart while the run started at seq %d is open", s.run.seq)
		}
		s.run = newRunState(seq, a.TestRunStart.DutInfo)

	case a.TestRunEnd != nil:
		if s.run == nil {
			s.problem(CodeRunNotOpen, seq, "testRunEnd without an open run")
			return
		}
		if s.run.step != nil {
			s.problem(CodeStepNotEnded, seq, "testRunEnd while %s is open", s.run.step.id)
		}
		s.run = nil

	case a.Log != nil:
		if s.run == nil {
			s.problem(CodeLeafOutsideScope, seq, "run log outside a started run")
		}

	case a.Error != nil:
		if s.run == nil {
			s.problem(CodeLeafOutsideScope, seq, "run error outside a started run")
			return
		}
		s.checkSoftware(seq, a.Error.SoftwareInfoIDs)
	}
}

func newRunState(seq uint64, dut schema.DutInfo) *runState {
	r := &runState{
		seq:      seq,
		hardware: make(map[string]bool, len(dut.HardwareInfos)),
		software: make(map[string]bool, len(dut.SoftwareInfos)),
		stepIDs:  make(map[string]bool),
	}
	for _, h := range dut.HardwareInfos {
		r.hardware[h.HardwareInfoID] = true
	}
	for _, sw := range dut.SoftwareInfos {
		r.software[sw.SoftwareInfoID] = true
	}
	return r
}

func (s *state) stepArtifact(root *schema.Root) {
	seq := root.SequenceNumber
	s.requireVersion(seq)
	a := root.TestStepArtifact
	id := a.TestStepID

	if a.TestStepStart != nil {
		s.report.Steps++
		switch {
		case s.run == nil:
			s.problem(CodeStepOutsideRun, seq, "%s started outside a run", id)
			return
		case s.run.stepIDs[id]:
			s.problem(CodeStepDuplicate, seq, "step id %s reused", id)
		case s.run.step != nil:
			s.problem(CodeStepOverlap, seq, "%s started while %s is open", id, s.run.step.id)
		}
		s.run.stepIDs[id] = true
		s.run.step = &stepState{id: id, seriesIDs: make(map[string]bool), open: make(map[string]*seriesState)}
		return
	}

	step := s.openStep(id)
	if a.TestStepEnd != nil {
		if step == nil {
			s.problem(CodeStepNotOpen, seq, "testStepEnd for %s which is not open", id)
			return
		}
		for seriesID := range step.open {
			s.problem(CodeSeriesNotEnded, seq, "%s ended with series %s open", id, seriesID)
		}
		s.run.step = nil
		return
	}

	if step == nil {
		s.problem(CodeLeafOutsideScope, seq, "%s for %s outside a started step", root.Kind(), id)
		return
	}

	switch {
	case a.Measurement != nil:
		s.checkHardware(seq, a.Measurement.HardwareInfoID)
	case a.Diagnosis != nil:
		s.checkHardware(seq, a.Diagnosis.HardwareInfoID)
	case a.Error != nil:
		s.checkSoftware(seq, a.Error.SoftwareInfoIDs)
	case a.MeasurementSeriesStart != nil:
		ms := a.MeasurementSeriesStart
		s.checkHardware(seq, ms.HardwareInfoID)
		if step.seriesIDs[ms.MeasurementSeriesID] {
			s.problem(CodeSeriesOutsideStep, seq, "series id %s reused in %s", ms.MeasurementSeriesID, id)
			return
		}
		step.seriesIDs[ms.MeasurementSeriesID] = true
		step.open[ms.MeasurementSeriesID] = &seriesState{}
	case a.MeasurementSeriesElement != nil:
		el := a.MeasurementSeriesElement
		series := step.open[el.MeasurementSeriesID]
		if series == nil {
			s.problem(CodeSeriesElement, seq, "element for series %s which is not open", el.MeasurementSeriesID)
			return
		}
		if el.Index != series.next {
			s.problem(CodeSeriesElement, seq, "series %s element index %d, want %d", el.MeasurementSeriesID, el.Index, series.next)
		}
		series.next = el.Index + 1
	case a.MeasurementSeriesEnd != nil:
		end := a.MeasurementSeriesEnd
		series := step.open[end.MeasurementSeriesID]
		if series == nil {
			s.problem(CodeSeriesEnd, seq, "end for series %s which is not open", end.MeasurementSeriesID)
			return
		}
		if end.TotalCount != series.next {
			s.problem(CodeSeriesEnd, seq, "series %s totalCount %d, want %d", end.MeasurementSeriesID, end.TotalCount, series.next)
		}
		delete(step.open, end.MeasurementSeriesID)
	}
}

func (s *state) openStep(id string) *stepState {
	if s.run == nil || s.run.step == nil || s.run.step.id != id {
		return nil
	}
	return s.run.step
}

func (s *state) checkHardware(seq uint64, id string) {
	if id == "" || s.run == nil || s.run.hardware[id] {
		return
	}
	s.problem(CodeUnknownReference, seq, "hardwareInfoId %s is not declared by the DUT", id)
}

func (s *state) checkSoftware(seq uint64, ids []string) {
	if s.run == nil {
		return
	}
	for _, id := range ids {
		if !s.run.software[id] {
			s.problem(CodeUnknownReference, seq, "softwareInfoId %s is not declared by the DUT", id)
		}
	}
}

func (s *state) finish() *Report {
	if s.run != nil {
		s.problem(CodeRunNotEnded, s.nextSeq, "stream ended with the run started at seq %d open", s.run.seq)
	}
	return &s.report
}
