package output

import "github.com/roach88/ocptv/internal/schema"

// Enumerations of the wire format. Values outside these sets fail to encode.
type (
	TestStatus       = schema.TestStatus
	TestResult       = schema.TestResult
	DiagnosisType    = schema.DiagnosisType
	LogSeverity      = schema.LogSeverity
	ValidatorType    = schema.ValidatorType
	SubcomponentType = schema.SubcomponentType
	SoftwareType     = schema.SoftwareType
)

const (
	TestStatusComplete = schema.TestStatusComplete
	TestStatusError    = schema.TestStatusError
	TestStatusSkip     = schema.TestStatusSkip
)

const (
	TestResultPass          = schema.TestResultPass
	TestResultFail          = schema.TestResultFail
	TestResultNotApplicable = schema.TestResultNotApplicable
)

const (
	DiagnosisPass    = schema.DiagnosisTypePass
	DiagnosisFail    = schema.DiagnosisTypeFail
	DiagnosisUnknown = schema.DiagnosisTypeUnknown
)

const (
	LogSeverityDebug   = schema.LogSeverityDebug
	LogSeverityInfo    = schema.LogSeverityInfo
	LogSeverityWarning = schema.LogSeverityWarning
	LogSeverityError   = schema.LogSeverityError
	LogSeverityFatal   = schema.LogSeverityFatal
)

const (
	ValidatorEqual              = schema.ValidatorTypeEqual
	ValidatorNotEqual           = schema.ValidatorTypeNotEqual
	ValidatorLessThan           = schema.ValidatorTypeLessThan
	ValidatorLessThanOrEqual    = schema.ValidatorTypeLessThanOrEqual
	ValidatorGreaterThan        = schema.ValidatorTypeGreaterThan
	ValidatorGreaterThanOrEqual = schema.ValidatorTypeGreaterThanOrEqual
	ValidatorRegexMatch         = schema.ValidatorTypeRegexMatch
	ValidatorRegexNoMatch       = schema.ValidatorTypeRegexNoMatch
	ValidatorInSet              = schema.ValidatorTypeInSet
	ValidatorNotInSet           = schema.ValidatorTypeNotInSet
)

const (
	SubcomponentUnspecified   = schema.SubcomponentTypeUnspecified
	SubcomponentASIC          = schema.SubcomponentTypeASIC
	SubcomponentASICSubsystem = schema.SubcomponentTypeASICSubsystem
	SubcomponentBus           = schema.SubcomponentTypeBus
	SubcomponentFunction      = schema.SubcomponentTypeFunction
	SubcomponentConnector     = schema.SubcomponentTypeConnector
)

const (
	SoftwareUnspecified = schema.SoftwareTypeUnspecified
	SoftwareFirmware    = schema.SoftwareTypeFirmware
	SoftwareSystem      = schema.SoftwareTypeSystem
	SoftwareApplication = schema.SoftwareTypeApplication
)

// TestRunOutcome is what a run scope body reports on normal completion.
type TestRunOutcome struct {
	Status TestStatus
	Result TestResult
}
