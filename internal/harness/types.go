package harness

import (
	"github.com/roach88/ocptv/internal/schema"
	"github.com/roach88/ocptv/internal/validate"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Lines is the emitted stream, one artifact per entry.
	Lines []string `json:"lines"`

	// Kinds is the payload kind of every line.
	Kinds []schema.Kind `json:"kinds"`

	// Report is the stream checker's verdict on Lines.
	Report *validate.Report `json:"report"`

	// Error is the error returned by the run scope, if any.
	Error string `json:"error,omitempty"`

	// ErrorCode is the runtime error code found in Error's chain.
	ErrorCode string `json:"error_code,omitempty"`

	// Panic is the value the run panicked with, if any.
	Panic string `json:"panic,omitempty"`

	// Errors contains expectation failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Lines:  []string{},
		Kinds:  []schema.Kind{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
