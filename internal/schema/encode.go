package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names the concrete payload of a Root.
type Kind string

const (
	KindSchemaVersion            Kind = "schemaVersion"
	KindTestRunStart             Kind = "testRunStart"
	KindTestRunEnd               Kind = "testRunEnd"
	KindTestStepStart            Kind = "testStepStart"
	KindTestStepEnd              Kind = "testStepEnd"
	KindMeasurement              Kind = "measurement"
	KindMeasurementSeriesStart   Kind = "measurementSeriesStart"
	KindMeasurementSeriesElement Kind = "measurementSeriesElement"
	KindMeasurementSeriesEnd     Kind = "measurementSeriesEnd"
	KindDiagnosis                Kind = "diagnosis"
	KindLog                      Kind = "log"
	KindError                    Kind = "error"
	KindFile                     Kind = "file"
	KindExtension                Kind = "extension"
)

// ErrMalformed is wrapped by every structural error returned from Validate.
var ErrMalformed = errors.New("malformed artifact")

// Validate checks that r carries exactly one payload at every union level.
// It does not look at field contents.
func (r *Root) Validate() error {
	n := 0
	if r.SchemaVersion != nil {
		n++
	}
	if r.TestRunArtifact != nil {
		n++
		if c := r.TestRunArtifact.count(); c != 1 {
			return fmt.Errorf("%w: testRunArtifact has %d payloads, want 1", ErrMalformed, c)
		}
	}
	if r.TestStepArtifact != nil {
		n++
		if r.TestStepArtifact.TestStepID == "" {
			return fmt.Errorf("%w: testStepArtifact without testStepId", ErrMalformed)
		}
		if c := r.TestStepArtifact.count(); c != 1 {
			return fmt.Errorf("%w: testStepArtifact has %d payloads, want 1", ErrMalformed, c)
		}
	}
	if n != 1 {
		return fmt.Errorf("%w: envelope has %d payloads, want 1", ErrMalformed, n)
	}
	return nil
}

func (a *TestRunArtifact) count() int {
	return countSet(a.TestRunStart != nil, a.TestRunEnd != nil, a.Log != nil, a.Error != nil)
}

func (a *TestStepArtifact) count() int {
	return countSet(
		a.TestStepStart != nil, a.TestStepEnd != nil,
		a.Measurement != nil,
		a.MeasurementSeriesStart != nil, a.MeasurementSeriesElement != nil, a.MeasurementSeriesEnd != nil,
		a.Diagnosis != nil, a.Log != nil, a.Error != nil, a.File != nil, a.Extension != nil,
	)
}

func countSet(set ...bool) int {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	return n
}

// Kind reports which payload r carries. It returns "" for a malformed root.
func (r *Root) Kind() Kind {
	switch {
	case r.SchemaVersion != nil:
		return KindSchemaVersion
	case r.TestRunArtifact != nil:
		a := r.TestRunArtifact
		switch {
		case a.TestRunStart != nil:
			return KindTestRunStart
		case a.TestRunEnd != nil:
			return KindTestRunEnd
		case a.Log != nil:
			return KindLog
		case a.Error != nil:
			return KindError
		}
	case r.TestStepArtifact != nil:
		a := r.TestStepArtifact
		switch {
		case a.TestStepStart != nil:
			return KindTestStepStart
		case a.TestStepEnd != nil:
			return KindTestStepEnd
		case a.Measurement != nil:
			return KindMeasurement
		case a.MeasurementSeriesStart != nil:
			return KindMeasurementSeriesStart
		case a.MeasurementSeriesElement != nil:
			return KindMeasurementSeriesElement
		case a.MeasurementSeriesEnd != nil:
			return KindMeasurementSeriesEnd
		case a.Diagnosis != nil:
			return KindDiagnosis
		case a.Log != nil:
			return KindLog
		case a.Error != nil:
			return KindError
		case a.File != nil:
			return KindFile
		case a.Extension != nil:
			return KindExtension
		}
	}
	return ""
}

// StepID returns the owning step id, or "" for run-level and schemaVersion artifacts.
func (r *Root) StepID() string {
	if r.TestStepArtifact == nil {
		return ""
	}
	return r.TestStepArtifact.TestStepID
}

// Encode renders r as a single JSON line without the trailing newline.
// HTML characters are not escaped and map keys are sorted, so equal values
// always produce identical bytes.
func Encode(r *Root) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Kind(), err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses one line of the stream. Unknown fields are rejected.
func Decode(line []byte) (*Root, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	var r Root
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after artifact", ErrMalformed)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
