package validate

import "fmt"

// Problem codes (V100-V199)
const (
	// Line-level problems (V100-V109)
	CodeDecode = "V100" // line is not a decodable artifact
	CodeShape  = "V101" // line does not match the schema

	// Stream-level problems (V110-V119)
	CodeSchemaVersion = "V110" // schemaVersion missing, misplaced or unsupported
	CodeSequence      = "V111" // sequence number gap or repeat
	CodeTimestamp     = "V112" // timestamp went backwards

	// Run pairing (V120-V129)
	CodeRunOverlap  = "V120" // run started while another run is open
	CodeRunNotOpen  = "V121" // run end without an open run
	CodeRunNotEnded = "V122" // stream ended with a run still open

	// Step pairing and nesting (V130-V139)
	CodeStepOutsideRun = "V130" // step started without an open run
	CodeStepOverlap    = "V131" // step started while a sibling is open
	CodeStepDuplicate  = "V132" // step id reused within a run
	CodeStepNotOpen    = "V133" // step end for a step that is not open
	CodeStepNotEnded   = "V134" // run ended with a step still open

	// Containment (V140-V149)
	CodeLeafOutsideScope = "V140" // leaf artifact outside its started scope

	// Measurement series (V150-V159)
	CodeSeriesOutsideStep = "V150" // series start outside its step, or id reused
	CodeSeriesElement     = "V151" // element for a series that is not open, or index out of order
	CodeSeriesEnd         = "V152" // series end not matching an open series or its element count
	CodeSeriesNotEnded    = "V153" // step ended with a series still open

	// References (V160-V169)
	CodeUnknownReference = "V160" // hardware or software id not declared in the DUT info
)

// Problem is one violation found in a stream.
type Problem struct {
	Code    string `json:"code"`
	Line    int    `json:"line"`
	Seq     uint64 `json:"seq"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (p Problem) Error() string {
	return fmt.Sprintf("[%s] line %d (seq %d): %s", p.Code, p.Line, p.Seq, p.Message)
}

// Report summarizes a checked stream.
type Report struct {
	Artifacts int       `json:"artifacts"`
	Runs      int       `json:"runs"`
	Steps     int       `json:"steps"`
	Problems  []Problem `json:"problems"`
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}
