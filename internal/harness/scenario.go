package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ocptv/internal/schema"
)

// Scenario describes one test run to drive through the emitter: the run
// header, the DUT, the actions performed inside the run and the expected
// shape of the resulting stream.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	Run RunSpec `yaml:"run"`
	Dut DutSpec `yaml:"dut"`

	// Actions run in order inside the run scope. Only log, error and step
	// are allowed at run level.
	Actions []Action `yaml:"actions,omitempty"`

	// Outcome is returned by the run body when every action succeeded.
	// Defaults to COMPLETE / PASS.
	Outcome OutcomeSpec `yaml:"outcome,omitempty"`

	Expect Expect `yaml:"expect,omitempty"`
}

// RunSpec is the testRunStart header.
type RunSpec struct {
	Name        string         `yaml:"name"`
	Version     string         `yaml:"version"`
	CommandLine string         `yaml:"command_line,omitempty"`
	Parameters  map[string]any `yaml:"parameters,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
}

// DutSpec describes the device under test.
type DutSpec struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name,omitempty"`
	Platform []string       `yaml:"platform,omitempty"`
	Software []SoftwareSpec `yaml:"software,omitempty"`
	Hardware []HardwareSpec `yaml:"hardware,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type SoftwareSpec struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Version  string `yaml:"version,omitempty"`
	Revision string `yaml:"revision,omitempty"`
	Type     string `yaml:"type,omitempty"`
}

type HardwareSpec struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Version      string `yaml:"version,omitempty"`
	Location     string `yaml:"location,omitempty"`
	SerialNumber string `yaml:"serial_number,omitempty"`
	PartNumber   string `yaml:"part_number,omitempty"`
	Manufacturer string `yaml:"manufacturer,omitempty"`
}

type OutcomeSpec struct {
	Status string `yaml:"status,omitempty"`
	Result string `yaml:"result,omitempty"`
}

// Action is one operation. Exactly one field is set.
type Action struct {
	Log         *LogSpec         `yaml:"log,omitempty"`
	Error       *ErrorSpec       `yaml:"error,omitempty"`
	Step        *StepSpec        `yaml:"step,omitempty"`
	Measurement *MeasurementSpec `yaml:"measurement,omitempty"`
	Diagnosis   *DiagnosisSpec   `yaml:"diagnosis,omitempty"`
	File        *FileSpec        `yaml:"file,omitempty"`
	Extension   *ExtensionSpec   `yaml:"extension,omitempty"`
	Series      *SeriesSpec      `yaml:"series,omitempty"`
}

// StepSpec runs a step scope.
type StepSpec struct {
	Name string `yaml:"name"`

	// Status is returned by the step body when every action succeeded.
	// Defaults to COMPLETE.
	Status string `yaml:"status,omitempty"`

	Actions []Action `yaml:"actions,omitempty"`

	// Fail makes the body return an error with this message after its actions.
	Fail string `yaml:"fail,omitempty"`

	// Panic makes the body panic with this value after its actions.
	Panic string `yaml:"panic,omitempty"`

	// AfterEnd actions are attempted on the step handle after the step ended.
	AfterEnd []Action `yaml:"after_end,omitempty"`
}

type LogSpec struct {
	Severity string `yaml:"severity"`
	Message  string `yaml:"message"`
}

type ErrorSpec struct {
	Symptom  string   `yaml:"symptom"`
	Message  string   `yaml:"message,omitempty"`
	Software []string `yaml:"software,omitempty"`
}

type ValidatorSpec struct {
	Name  string `yaml:"name,omitempty"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

type SubcomponentSpec struct {
	Type     string `yaml:"type,omitempty"`
	Name     string `yaml:"name"`
	Location string `yaml:"location,omitempty"`
}

type MeasurementSpec struct {
	Name         string            `yaml:"name"`
	Value        any               `yaml:"value"`
	Unit         string            `yaml:"unit,omitempty"`
	Hardware     string            `yaml:"hardware,omitempty"`
	Subcomponent *SubcomponentSpec `yaml:"subcomponent,omitempty"`
	Validators   []ValidatorSpec   `yaml:"validators,omitempty"`
}

type DiagnosisSpec struct {
	Verdict      string            `yaml:"verdict"`
	Type         string            `yaml:"type"`
	Message      string            `yaml:"message,omitempty"`
	Hardware     string            `yaml:"hardware,omitempty"`
	Subcomponent *SubcomponentSpec `yaml:"subcomponent,omitempty"`
}

type FileSpec struct {
	Name        string `yaml:"name"`
	URI         string `yaml:"uri"`
	Snapshot    bool   `yaml:"snapshot,omitempty"`
	Description string `yaml:"description,omitempty"`
	ContentType string `yaml:"content_type,omitempty"`
}

type ExtensionSpec struct {
	Name    string `yaml:"name"`
	Content any    `yaml:"content"`
}

type SeriesSpec struct {
	Name       string          `yaml:"name"`
	Unit       string          `yaml:"unit,omitempty"`
	Hardware   string          `yaml:"hardware,omitempty"`
	Validators []ValidatorSpec `yaml:"validators,omitempty"`
	Elements   []any           `yaml:"elements"`
}

// Expect describes the stream the scenario must produce. Unset fields are
// not checked.
type Expect struct {
	// Artifacts is the exact number of lines.
	Artifacts *int `yaml:"artifacts,omitempty"`

	// Kinds lists the payload kind of every line, in order.
	Kinds []string `yaml:"kinds,omitempty"`

	// Error is a runtime error code (e.g. SCOPE_ORDERING_VIOLATION) or a
	// substring of the error returned by the run.
	Error string `yaml:"error,omitempty"`

	// Panic is the value the run panicked with.
	Panic string `yaml:"panic,omitempty"`

	// Statuses lists the status of every testStepEnd, in order.
	Statuses []string `yaml:"statuses,omitempty"`

	// RunEnd is the expected testRunEnd payload.
	RunEnd *OutcomeSpec `yaml:"run_end,omitempty"`

	// Problems lists the checker codes the stream must produce.
	// Defaults to none.
	Problems []string `yaml:"problems,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "action:" vs "actions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields, enum values and DUT references.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Run.Name == "" {
		return fmt.Errorf("run.name is required")
	}
	if s.Dut.ID == "" {
		return fmt.Errorf("dut.id is required")
	}

	refs := dutRefs{software: map[string]bool{}, hardware: map[string]bool{}}
	for i, sw := range s.Dut.Software {
		if sw.ID == "" || sw.Name == "" {
			return fmt.Errorf("dut.software[%d]: id and name are required", i)
		}
		if sw.Type != "" && !schema.SoftwareType(sw.Type).Valid() {
			return fmt.Errorf("dut.software[%d]: unknown type %q", i, sw.Type)
		}
		refs.software[sw.ID] = true
	}
	for i, hw := range s.Dut.Hardware {
		if hw.ID == "" || hw.Name == "" {
			return fmt.Errorf("dut.hardware[%d]: id and name are required", i)
		}
		refs.hardware[hw.ID] = true
	}

	if s.Outcome.Status != "" && !schema.TestStatus(s.Outcome.Status).Valid() {
		return fmt.Errorf("outcome: unknown status %q", s.Outcome.Status)
	}
	if s.Outcome.Result != "" && !schema.TestResult(s.Outcome.Result).Valid() {
		return fmt.Errorf("outcome: unknown result %q", s.Outcome.Result)
	}

	for i := range s.Actions {
		if err := refs.validateAction(fmt.Sprintf("actions[%d]", i), &s.Actions[i], true); err != nil {
			return err
		}
	}

	for i, k := range s.Expect.Kinds {
		if !knownKinds[schema.Kind(k)] {
			return fmt.Errorf("expect.kinds[%d]: unknown kind %q", i, k)
		}
	}
	return nil
}

var knownKinds = map[schema.Kind]bool{
	schema.KindSchemaVersion:            true,
	schema.KindTestRunStart:             true,
	schema.KindTestRunEnd:               true,
	schema.KindTestStepStart:            true,
	schema.KindTestStepEnd:              true,
	schema.KindMeasurement:              true,
	schema.KindMeasurementSeriesStart:   true,
	schema.KindMeasurementSeriesElement: true,
	schema.KindMeasurementSeriesEnd:     true,
	schema.KindDiagnosis:                true,
	schema.KindLog:                      true,
	schema.KindError:                    true,
	schema.KindFile:                     true,
	schema.KindExtension:                true,
}

type dutRefs struct {
	software map[string]bool
	hardware map[string]bool
}

func (r dutRefs) validateAction(path string, a *Action, runLevel bool) error {
	set := 0
	for _, p := range []bool{
		a.Log != nil, a.Error != nil, a.Step != nil, a.Measurement != nil,
		a.Diagnosis != nil, a.File != nil, a.Extension != nil, a.Series != nil,
	} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%s: exactly one action is required, got %d", path, set)
	}

	switch {
	case a.Log != nil:
		if !schema.LogSeverity(a.Log.Severity).Valid() {
			return fmt.Errorf("%s.log: unknown severity %q", path, a.Log.Severity)
		}
	case a.Error != nil:
		if a.Error.Symptom == "" {
			return fmt.Errorf("%s.error: symptom is required", path)
		}
		for _, id := range a.Error.Software {
			if !r.software[id] {
				return fmt.Errorf("%s.error: unknown software %q", path, id)
			}
		}
	case a.Step != nil:
		if !runLevel {
			return fmt.Errorf("%s: steps cannot be nested", path)
		}
		return r.validateStep(path+".step", a.Step)
	case runLevel:
		return fmt.Errorf("%s: only log, error and step are allowed in a run", path)
	case a.Measurement != nil:
		if a.Measurement.Name == "" {
			return fmt.Errorf("%s.measurement: name is required", path)
		}
		if err := r.validateHardware(path+".measurement", a.Measurement.Hardware); err != nil {
			return err
		}
		if err := validateSubcomponent(path+".measurement", a.Measurement.Subcomponent); err != nil {
			return err
		}
		return validateValidators(path+".measurement", a.Measurement.Validators)
	case a.Diagnosis != nil:
		if a.Diagnosis.Verdict == "" {
			return fmt.Errorf("%s.diagnosis: verdict is required", path)
		}
		if !schema.DiagnosisType(a.Diagnosis.Type).Valid() {
			return fmt.Errorf("%s.diagnosis: unknown type %q", path, a.Diagnosis.Type)
		}
		if err := r.validateHardware(path+".diagnosis", a.Diagnosis.Hardware); err != nil {
			return err
		}
		return validateSubcomponent(path+".diagnosis", a.Diagnosis.Subcomponent)
	case a.File != nil:
		if a.File.Name == "" || a.File.URI == "" {
			return fmt.Errorf("%s.file: name and uri are required", path)
		}
	case a.Extension != nil:
		if a.Extension.Name == "" {
			return fmt.Errorf("%s.extension: name is required", path)
		}
	case a.Series != nil:
		if a.Series.Name == "" {
			return fmt.Errorf("%s.series: name is required", path)
		}
		if err := r.validateHardware(path+".series", a.Series.Hardware); err != nil {
			return err
		}
		return validateValidators(path+".series", a.Series.Validators)
	}
	return nil
}

func (r dutRefs) validateStep(path string, s *StepSpec) error {
	if s.Name == "" {
		return fmt.Errorf("%s: name is required", path)
	}
	if s.Status != "" && !schema.TestStatus(s.Status).Valid() {
		return fmt.Errorf("%s: unknown status %q", path, s.Status)
	}
	if s.Fail != "" && s.Panic != "" {
		return fmt.Errorf("%s: fail and panic are exclusive", path)
	}
	for i := range s.Actions {
		if err := r.validateAction(fmt.Sprintf("%s.actions[%d]", path, i), &s.Actions[i], false); err != nil {
			return err
		}
	}
	for i := range s.AfterEnd {
		if err := r.validateAction(fmt.Sprintf("%s.after_end[%d]", path, i), &s.AfterEnd[i], false); err != nil {
			return err
		}
	}
	return nil
}

func (r dutRefs) validateHardware(path, id string) error {
	if id != "" && !r.hardware[id] {
		return fmt.Errorf("%s: unknown hardware %q", path, id)
	}
	return nil
}

func validateSubcomponent(path string, sc *SubcomponentSpec) error {
	if sc == nil {
		return nil
	}
	if sc.Name == "" {
		return fmt.Errorf("%s.subcomponent: name is required", path)
	}
	if sc.Type != "" && !schema.SubcomponentType(sc.Type).Valid() {
		return fmt.Errorf("%s.subcomponent: unknown type %q", path, sc.Type)
	}
	return nil
}

func validateValidators(path string, vs []ValidatorSpec) error {
	for i, v := range vs {
		if !schema.ValidatorType(v.Type).Valid() {
			return fmt.Errorf("%s.validators[%d]: unknown type %q", path, i, v.Type)
		}
	}
	return nil
}
