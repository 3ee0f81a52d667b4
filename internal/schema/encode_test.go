package schema

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = NewTimestamp(time.Unix(0, 0))

func TestEncode_SchemaVersionLine(t *testing.T) {
	line, err := Encode(&Root{SequenceNumber: 0, SchemaVersion: CurrentVersion(), Timestamp: epoch})
	require.NoError(t, err)
	assert.Equal(t,
		`{"sequenceNumber":0,"schemaVersion":{"major":2,"minor":0},"timestamp":"1970-01-01T00:00:00.000Z"}`,
		string(line))
}

func TestEncode_RunStartAlwaysHasParameters(t *testing.T) {
	line, err := Encode(&Root{
		SequenceNumber: 1,
		TestRunArtifact: &TestRunArtifact{TestRunStart: &TestRunStart{
			Name:       "r",
			Version:    "1.0",
			Parameters: map[string]any{},
			DutInfo:    DutInfo{DutInfoID: "dut0"},
		}},
		Timestamp: epoch,
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"sequenceNumber":1,"testRunArtifact":{"testRunStart":{"name":"r","version":"1.0","commandLine":"","parameters":{},"dutInfo":{"dutInfoId":"dut0"}}},"timestamp":"1970-01-01T00:00:00.000Z"}`,
		string(line))
}

func TestEncode_RunEnd(t *testing.T) {
	line, err := Encode(&Root{
		SequenceNumber:  2,
		TestRunArtifact: &TestRunArtifact{TestRunEnd: &TestRunEnd{Status: TestStatusComplete, Result: TestResultPass}},
		Timestamp:       epoch,
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"sequenceNumber":2,"testRunArtifact":{"testRunEnd":{"status":"COMPLETE","result":"PASS"}},"timestamp":"1970-01-01T00:00:00.000Z"}`,
		string(line))
}

func TestEncode_OptionalFieldsOmitted(t *testing.T) {
	root := &Root{
		SequenceNumber: 3,
		TestStepArtifact: &TestStepArtifact{
			TestStepID: "step0",
			Diagnosis:  &Diagnosis{Verdict: "ok", Type: DiagnosisTypePass},
		},
		Timestamp: epoch,
	}

	line, err := Encode(root)
	require.NoError(t, err)
	assert.Equal(t,
		`{"sequenceNumber":3,"testStepArtifact":{"testStepId":"step0","diagnosis":{"verdict":"ok","type":"PASS"}},"timestamp":"1970-01-01T00:00:00.000Z"}`,
		string(line))
	assert.NotContains(t, string(line), "null")

	root.TestStepArtifact.Diagnosis.SourceLocation = &SourceLocation{File: "main.go", Line: 10}
	line, err = Encode(root)
	require.NoError(t, err)
	assert.Contains(t, string(line), `"diagnosis":{"verdict":"ok","type":"PASS","sourceLocation":{"file":"main.go","line":10}}`)
}

func TestEncode_NoHTMLEscaping(t *testing.T) {
	line, err := Encode(&Root{
		TestRunArtifact: &TestRunArtifact{Log: &Log{Severity: LogSeverityInfo, Message: "a<b&c>"}},
		Timestamp:       epoch,
	})
	require.NoError(t, err)
	assert.Contains(t, string(line), `"message":"a<b&c>"`)
	assert.NotContains(t, string(line), "\n")
}

func TestEncode_NonFiniteValueFails(t *testing.T) {
	_, err := Encode(&Root{
		TestStepArtifact: &TestStepArtifact{
			TestStepID:  "step0",
			Measurement: &Measurement{Name: "temp", Value: math.NaN()},
		},
		Timestamp: epoch,
	})
	require.Error(t, err)

	var unsupported *json.UnsupportedValueError
	assert.True(t, errors.As(err, &unsupported), "expected UnsupportedValueError, got %v", err)
}

func TestEncode_UnknownEnumFails(t *testing.T) {
	_, err := Encode(&Root{
		TestRunArtifact: &TestRunArtifact{TestRunEnd: &TestRunEnd{Status: "DONE", Result: TestResultPass}},
		Timestamp:       epoch,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid testStatus "DONE"`)
}

func TestRoot_Validate(t *testing.T) {
	tests := []struct {
		name string
		root Root
	}{
		{"empty envelope", Root{}},
		{"two envelope payloads", Root{
			SchemaVersion:   CurrentVersion(),
			TestRunArtifact: &TestRunArtifact{TestRunEnd: &TestRunEnd{}},
		}},
		{"empty run artifact", Root{TestRunArtifact: &TestRunArtifact{}}},
		{"two run payloads", Root{TestRunArtifact: &TestRunArtifact{
			TestRunEnd: &TestRunEnd{},
			Log:        &Log{},
		}}},
		{"step without id", Root{TestStepArtifact: &TestStepArtifact{TestStepEnd: &TestStepEnd{}}}},
		{"two step payloads", Root{TestStepArtifact: &TestStepArtifact{
			TestStepID: "step0",
			Log:        &Log{},
			Error:      &Error{},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.root.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestRoot_Kind(t *testing.T) {
	tests := []struct {
		root   Root
		kind   Kind
		stepID string
	}{
		{Root{SchemaVersion: CurrentVersion()}, KindSchemaVersion, ""},
		{Root{TestRunArtifact: &TestRunArtifact{TestRunStart: &TestRunStart{}}}, KindTestRunStart, ""},
		{Root{TestRunArtifact: &TestRunArtifact{Error: &Error{}}}, KindError, ""},
		{Root{TestStepArtifact: &TestStepArtifact{TestStepID: "step1", MeasurementSeriesEnd: &MeasurementSeriesEnd{}}}, KindMeasurementSeriesEnd, "step1"},
		{Root{TestStepArtifact: &TestStepArtifact{TestStepID: "step2", Extension: &Extension{}}}, KindExtension, "step2"},
		{Root{}, "", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.root.Kind())
		assert.Equal(t, tt.stepID, tt.root.StepID())
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	roots := []*Root{
		{SequenceNumber: 0, SchemaVersion: CurrentVersion(), Timestamp: epoch},
		{
			SequenceNumber: 1,
			TestRunArtifact: &TestRunArtifact{TestRunStart: &TestRunStart{
				Name:        "mem",
				Version:     "1.0",
				CommandLine: "mem --fast",
				Parameters:  map[string]any{"iterations": 10.0},
				DutInfo: DutInfo{
					DutInfoID:     "dut0",
					Name:          "host",
					PlatformInfos: []PlatformInfo{{Info: "x86"}},
					SoftwareInfos: []SoftwareInfo{{SoftwareInfoID: "sw0", Name: "bios", SoftwareType: SoftwareTypeFirmware}},
					HardwareInfos: []HardwareInfo{{HardwareInfoID: "hw0", Name: "dimm", SerialNumber: "S1"}},
				},
			}},
			Timestamp: NewTimestamp(time.Date(2024, 3, 1, 12, 0, 0, 123_000_000, time.UTC)),
		},
		{
			SequenceNumber: 3,
			TestStepArtifact: &TestStepArtifact{
				TestStepID: "step0",
				Measurement: &Measurement{
					Name:           "temp",
					Value:          42.5,
					Unit:           "C",
					Validators:     []Validator{{Type: ValidatorTypeLessThan, Value: 80.0}},
					HardwareInfoID: "hw0",
					Subcomponent:   &Subcomponent{Type: SubcomponentTypeBus, Name: "i2c"},
					Metadata:       map[string]any{"sensor": "a"},
				},
			},
			Timestamp: epoch,
		},
		{
			SequenceNumber: 4,
			TestStepArtifact: &TestStepArtifact{
				TestStepID: "step0",
				Error:      &Error{Symptom: "bad", SoftwareInfoIDs: []string{"sw0"}},
			},
			Timestamp: epoch,
		},
		{
			SequenceNumber:  9,
			TestRunArtifact: &TestRunArtifact{TestRunEnd: &TestRunEnd{Status: TestStatusSkip, Result: TestResultNotApplicable}},
			Timestamp:       epoch,
		},
	}

	for _, want := range roots {
		t.Run(string(want.Kind()), func(t *testing.T) {
			line, err := Encode(want)
			require.NoError(t, err)

			got, err := Decode(line)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown field", `{"sequenceNumber":0,"schemaVersion":{"major":2,"minor":0},"timestamp":"1970-01-01T00:00:00.000Z","extra":1}`},
		{"unknown enum", `{"sequenceNumber":2,"testRunArtifact":{"testRunEnd":{"status":"DONE","result":"PASS"}},"timestamp":"1970-01-01T00:00:00.000Z"}`},
		{"bad timestamp", `{"sequenceNumber":0,"schemaVersion":{"major":2,"minor":0},"timestamp":"yesterday"}`},
		{"no payload", `{"sequenceNumber":0,"timestamp":"1970-01-01T00:00:00.000Z"}`},
		{"trailing data", `{"sequenceNumber":0,"schemaVersion":{"major":2,"minor":0},"timestamp":"1970-01-01T00:00:00.000Z"} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			assert.Error(t, err)
		})
	}
}

func TestTimestamp_TruncatesToMillisUTC(t *testing.T) {
	loc := time.FixedZone("X", 2*60*60)
	ts := NewTimestamp(time.Date(2024, 1, 2, 5, 4, 5, 987_654_321, loc))
	assert.Equal(t, "2024-01-02T03:04:05.987Z", ts.String())
}
