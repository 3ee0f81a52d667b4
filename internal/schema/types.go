package schema

// Root is the envelope of one line in the output stream. Exactly one of
// SchemaVersion, TestRunArtifact and TestStepArtifact is set.
//
// Field order matters: encoding/json emits struct fields in declaration
// order and the first line of a stream is expected to read
// {"sequenceNumber":0,"schemaVersion":{...},"timestamp":...}.
type Root struct {
	SequenceNumber   uint64            `json:"sequenceNumber"`
	SchemaVersion    *SchemaVersion    `json:"schemaVersion,omitempty"`
	TestRunArtifact  *TestRunArtifact  `json:"testRunArtifact,omitempty"`
	TestStepArtifact *TestStepArtifact `json:"testStepArtifact,omitempty"`
	Timestamp        Timestamp         `json:"timestamp"`
}

// SchemaVersion declares the version of the format used by the stream.
type SchemaVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// TestRunArtifact carries exactly one run-level payload.
type TestRunArtifact struct {
	TestRunStart *TestRunStart `json:"testRunStart,omitempty"`
	TestRunEnd   *TestRunEnd   `json:"testRunEnd,omitempty"`
	Log          *Log          `json:"log,omitempty"`
	Error        *Error        `json:"error,omitempty"`
}

// TestRunStart opens a test run. Parameters is always present on the wire,
// as {} when the run has none.
type TestRunStart struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	CommandLine string         `json:"commandLine"`
	Parameters  map[string]any `json:"parameters"`
	DutInfo     DutInfo        `json:"dutInfo"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TestRunEnd closes a test run.
type TestRunEnd struct {
	Status TestStatus `json:"status"`
	Result TestResult `json:"result"`
}

// DutInfo describes the device under test.
type DutInfo struct {
	DutInfoID     string         `json:"dutInfoId"`
	Name          string         `json:"name,omitempty"`
	PlatformInfos []PlatformInfo `json:"platformInfos,omitempty"`
	SoftwareInfos []SoftwareInfo `json:"softwareInfos,omitempty"`
	HardwareInfos []HardwareInfo `json:"hardwareInfos,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type PlatformInfo struct {
	Info string `json:"info"`
}

type SoftwareInfo struct {
	SoftwareInfoID string       `json:"softwareInfoId"`
	Name           string       `json:"name"`
	Version        string       `json:"version,omitempty"`
	Revision       string       `json:"revision,omitempty"`
	SoftwareType   SoftwareType `json:"softwareType,omitempty"`
	ComputerSystem string       `json:"computerSystem,omitempty"`
}

type HardwareInfo struct {
	HardwareInfoID         string `json:"hardwareInfoId"`
	Name                   string `json:"name"`
	Version                string `json:"version,omitempty"`
	Revision               string `json:"revision,omitempty"`
	Location               string `json:"location,omitempty"`
	SerialNumber           string `json:"serialNumber,omitempty"`
	PartNumber             string `json:"partNumber,omitempty"`
	Manufacturer           string `json:"manufacturer,omitempty"`
	ManufacturerPartNumber string `json:"manufacturerPartNumber,omitempty"`
	OdataID                string `json:"odataId,omitempty"`
	ComputerSystem         string `json:"computerSystem,omitempty"`
	Manager                string `json:"manager,omitempty"`
}

// Subcomponent narrows a measurement or diagnosis to part of a hardware item.
type Subcomponent struct {
	Type     SubcomponentType `json:"type,omitempty"`
	Name     string           `json:"name"`
	Location string           `json:"location,omitempty"`
	Version  string           `json:"version,omitempty"`
	Revision string           `json:"revision,omitempty"`
}

// SourceLocation points at the line of code that produced an artifact.
type SourceLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

type Log struct {
	Severity       LogSeverity     `json:"severity"`
	Message        string          `json:"message"`
	SourceLocation *SourceLocation `json:"sourceLocation,omitempty"`
}

type Error struct {
	Symptom         string          `json:"symptom"`
	Message         string          `json:"message,omitempty"`
	SoftwareInfoIDs []string        `json:"softwareInfoIds,omitempty"`
	SourceLocation  *SourceLocation `json:"sourceLocation,omitempty"`
}

// TestStepArtifact carries the owning step id and exactly one step-level payload.
type TestStepArtifact struct {
	TestStepID string `json:"testStepId"`

	TestStepStart            *TestStepStart            `json:"testStepStart,omitempty"`
	TestStepEnd              *TestStepEnd              `json:"testStepEnd,omitempty"`
	Measurement              *Measurement              `json:"measurement,omitempty"`
	MeasurementSeriesStart   *MeasurementSeriesStart   `json:"measurementSeriesStart,omitempty"`
	MeasurementSeriesElement *MeasurementSeriesElement `json:"measurementSeriesElement,omitempty"`
	MeasurementSeriesEnd     *MeasurementSeriesEnd     `json:"measurementSeriesEnd,omitempty"`
	Diagnosis                *Diagnosis                `json:"diagnosis,omitempty"`
	Log                      *Log                      `json:"log,omitempty"`
	Error                    *Error                    `json:"error,omitempty"`
	File                     *File                     `json:"file,omitempty"`
	Extension                *Extension                `json:"extension,omitempty"`
}

type TestStepStart struct {
	Name string `json:"name"`
}

type TestStepEnd struct {
	Status TestStatus `json:"status"`
}

// Measurement is a single named value, optionally checked by validators.
// Value is any JSON value (number, string, bool, list or object).
type Measurement struct {
	Name           string         `json:"name"`
	Value          any            `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	Validators     []Validator    `json:"validators,omitempty"`
	HardwareInfoID string         `json:"hardwareInfoId,omitempty"`
	Subcomponent   *Subcomponent  `json:"subcomponent,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type Validator struct {
	Name     string         `json:"name,omitempty"`
	Type     ValidatorType  `json:"type"`
	Value    any            `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type MeasurementSeriesStart struct {
	Name                string         `json:"name"`
	Unit                string         `json:"unit,omitempty"`
	MeasurementSeriesID string         `json:"measurementSeriesId"`
	Validators          []Validator    `json:"validators,omitempty"`
	HardwareInfoID      string         `json:"hardwareInfoId,omitempty"`
	Subcomponent        *Subcomponent  `json:"subcomponent,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type MeasurementSeriesElement struct {
	Index               uint64         `json:"index"`
	Value               any            `json:"value"`
	Timestamp           Timestamp      `json:"timestamp"`
	MeasurementSeriesID string         `json:"measurementSeriesId"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type MeasurementSeriesEnd struct {
	MeasurementSeriesID string `json:"measurementSeriesId"`
	TotalCount          uint64 `json:"totalCount"`
}

// Diagnosis is a verdict about the DUT reached by a step.
type Diagnosis struct {
	Verdict        string          `json:"verdict"`
	Type           DiagnosisType   `json:"type"`
	Message        string          `json:"message,omitempty"`
	HardwareInfoID string          `json:"hardwareInfoId,omitempty"`
	Subcomponent   *Subcomponent   `json:"subcomponent,omitempty"`
	SourceLocation *SourceLocation `json:"sourceLocation,omitempty"`
}

// File references an out-of-band attachment by URI.
type File struct {
	Name        string         `json:"name"`
	URI         string         `json:"uri"`
	IsSnapshot  bool           `json:"isSnapshot"`
	Description string         `json:"description,omitempty"`
	ContentType string         `json:"contentType,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Extension carries free-form content under a caller-chosen name.
type Extension struct {
	Name    string `json:"name"`
	Content any    `json:"content"`
}
