package schema

import (
	"encoding/json"
	"fmt"
)

// TestStatus is the execution status reported by testRunEnd and testStepEnd.
type TestStatus string

const (
	TestStatusComplete TestStatus = "COMPLETE"
	TestStatusError    TestStatus = "ERROR"
	TestStatusSkip     TestStatus = "SKIP"
)

// TestResult is the overall outcome reported by testRunEnd.
type TestResult string

const (
	TestResultPass          TestResult = "PASS"
	TestResultFail          TestResult = "FAIL"
	TestResultNotApplicable TestResult = "NOT_APPLICABLE"
)

// DiagnosisType is the verdict class of a diagnosis.
type DiagnosisType string

const (
	DiagnosisTypePass    DiagnosisType = "PASS"
	DiagnosisTypeFail    DiagnosisType = "FAIL"
	DiagnosisTypeUnknown DiagnosisType = "UNKNOWN"
)

// LogSeverity is the severity of a log artifact.
type LogSeverity string

const (
	LogSeverityDebug   LogSeverity = "DEBUG"
	LogSeverityInfo    LogSeverity = "INFO"
	LogSeverityWarning LogSeverity = "WARNING"
	LogSeverityError   LogSeverity = "ERROR"
	LogSeverityFatal   LogSeverity = "FATAL"
)

// ValidatorType is the comparison a validator applies to a measurement.
type ValidatorType string

const (
	ValidatorTypeEqual              ValidatorType = "EQUAL"
	ValidatorTypeNotEqual           ValidatorType = "NOT_EQUAL"
	ValidatorTypeLessThan           ValidatorType = "LESS_THAN"
	ValidatorTypeLessThanOrEqual    ValidatorType = "LESS_THAN_OR_EQUAL"
	ValidatorTypeGreaterThan        ValidatorType = "GREATER_THAN"
	ValidatorTypeGreaterThanOrEqual ValidatorType = "GREATER_THAN_OR_EQUAL"
	ValidatorTypeRegexMatch         ValidatorType = "REGEX_MATCH"
	ValidatorTypeRegexNoMatch       ValidatorType = "REGEX_NO_MATCH"
	ValidatorTypeInSet              ValidatorType = "IN_SET"
	ValidatorTypeNotInSet           ValidatorType = "NOT_IN_SET"
)

// SubcomponentType classifies a subcomponent of a hardware element.
type SubcomponentType string

const (
	SubcomponentTypeUnspecified   SubcomponentType = "UNSPECIFIED"
	SubcomponentTypeASIC          SubcomponentType = "ASIC"
	SubcomponentTypeASICSubsystem SubcomponentType = "ASIC-SUBSYSTEM"
	SubcomponentTypeBus           SubcomponentType = "BUS"
	SubcomponentTypeFunction      SubcomponentType = "FUNCTION"
	SubcomponentTypeConnector     SubcomponentType = "CONNECTOR"
)

// SoftwareType classifies a software component of the DUT.
type SoftwareType string

const (
	SoftwareTypeUnspecified SoftwareType = "UNSPECIFIED"
	SoftwareTypeFirmware    SoftwareType = "FIRMWARE"
	SoftwareTypeSystem      SoftwareType = "SYSTEM"
	SoftwareTypeApplication SoftwareType = "APPLICATION"
)

var (
	testStatuses = map[TestStatus]bool{
		TestStatusComplete: true, TestStatusError: true, TestStatusSkip: true,
	}
	testResults = map[TestResult]bool{
		TestResultPass: true, TestResultFail: true, TestResultNotApplicable: true,
	}
	diagnosisTypes = map[DiagnosisType]bool{
		DiagnosisTypePass: true, DiagnosisTypeFail: true, DiagnosisTypeUnknown: true,
	}
	logSeverities = map[LogSeverity]bool{
		LogSeverityDebug: true, LogSeverityInfo: true, LogSeverityWarning: true,
		LogSeverityError: true, LogSeverityFatal: true,
	}
	validatorTypes = map[ValidatorType]bool{
		ValidatorTypeEqual: true, ValidatorTypeNotEqual: true,
		ValidatorTypeLessThan: true, ValidatorTypeLessThanOrEqual: true,
		ValidatorTypeGreaterThan: true, ValidatorTypeGreaterThanOrEqual: true,
		ValidatorTypeRegexMatch: true, ValidatorTypeRegexNoMatch: true,
		ValidatorTypeInSet: true, ValidatorTypeNotInSet: true,
	}
	subcomponentTypes = map[SubcomponentType]bool{
		SubcomponentTypeUnspecified: true, SubcomponentTypeASIC: true,
		SubcomponentTypeASICSubsystem: true, SubcomponentTypeBus: true,
		SubcomponentTypeFunction: true, SubcomponentTypeConnector: true,
	}
	softwareTypes = map[SoftwareType]bool{
		SoftwareTypeUnspecified: true, SoftwareTypeFirmware: true,
		SoftwareTypeSystem: true, SoftwareTypeApplication: true,
	}
)

// Valid reports whether s is a member of the vocabulary.
func (s TestStatus) Valid() bool { return testStatuses[s] }

// Valid reports whether r is a member of the vocabulary.
func (r TestResult) Valid() bool { return testResults[r] }

// Valid reports whether d is a member of the vocabulary.
func (d DiagnosisType) Valid() bool { return diagnosisTypes[d] }

// Valid reports whether s is a member of the vocabulary.
func (s LogSeverity) Valid() bool { return logSeverities[s] }

// Valid reports whether v is a member of the vocabulary.
func (v ValidatorType) Valid() bool { return validatorTypes[v] }

// Valid reports whether s is a member of the vocabulary.
func (s SubcomponentType) Valid() bool { return subcomponentTypes[s] }

// Valid reports whether s is a member of the vocabulary.
func (s SoftwareType) Valid() bool { return softwareTypes[s] }

func (s TestStatus) MarshalJSON() ([]byte, error) { return marshalEnum("testStatus", s, testStatuses) }
func (s *TestStatus) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("testStatus", b, testStatuses, s)
}

func (r TestResult) MarshalJSON() ([]byte, error) { return marshalEnum("testResult", r, testResults) }
func (r *TestResult) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("testResult", b, testResults, r)
}

func (d DiagnosisType) MarshalJSON() ([]byte, error) {
	return marshalEnum("diagnosis type", d, diagnosisTypes)
}
func (d *DiagnosisType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("diagnosis type", b, diagnosisTypes, d)
}

func (s LogSeverity) MarshalJSON() ([]byte, error) { return marshalEnum("severity", s, logSeverities) }
func (s *LogSeverity) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("severity", b, logSeverities, s)
}

func (v ValidatorType) MarshalJSON() ([]byte, error) {
	return marshalEnum("validator type", v, validatorTypes)
}
func (v *ValidatorType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("validator type", b, validatorTypes, v)
}

func (s SubcomponentType) MarshalJSON() ([]byte, error) {
	return marshalEnum("subcomponent type", s, subcomponentTypes)
}
func (s *SubcomponentType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("subcomponent type", b, subcomponentTypes, s)
}

func (s SoftwareType) MarshalJSON() ([]byte, error) {
	return marshalEnum("softwareType", s, softwareTypes)
}
func (s *SoftwareType) UnmarshalJSON(b []byte) error {
	return unmarshalEnum("softwareType", b, softwareTypes, s)
}

func marshalEnum[T ~string](kind string, v T, valid map[T]bool) ([]byte, error) {
	if !valid[v] {
		return nil, fmt.Errorf("invalid %s %q", kind, string(v))
	}
	return json.Marshal(string(v))
}

func unmarshalEnum[T ~string](kind string, data []byte, valid map[T]bool, out *T) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	if !valid[T(s)] {
		return fmt.Errorf("invalid %s %q", kind, s)
	}
	*out = T(s)
	return nil
}
