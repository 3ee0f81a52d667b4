package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ocptv/internal/schema"
)

// AssertionError is returned when an expectation fails.
// It includes the emitted stream to help debug the failure.
type AssertionError struct {
	Type     string   // expectation name, e.g. "kinds"
	Expected string   // human-readable expected outcome
	Actual   string   // human-readable actual outcome
	Lines    []string // full stream for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Lines) > 0 {
		fmt.Fprintf(&buf, "\nStream:\n")
		for _, line := range e.Lines {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

func assertArtifacts(result *Result, want int) error {
	if got := len(result.Lines); got != want {
		return &AssertionError{
			Type:     "artifacts",
			Expected: fmt.Sprintf("%d artifacts", want),
			Actual:   fmt.Sprintf("%d artifacts", got),
			Lines:    result.Lines,
		}
	}
	return nil
}

func assertKinds(result *Result, want []string) error {
	got := make([]string, len(result.Kinds))
	for i, k := range result.Kinds {
		got[i] = string(k)
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     "kinds",
			Expected: strings.Join(want, ", "),
			Actual:   strings.Join(got, ", "),
			Lines:    result.Lines,
		}
	}
	return nil
}

// assertError matches want against the runtime error code first, then as
// a substring of the error text.
func assertError(result *Result, want string) error {
	if result.Error != "" && (result.ErrorCode == want || strings.Contains(result.Error, want)) {
		return nil
	}
	actual := "no error"
	if result.Error != "" {
		actual = fmt.Sprintf("%q (code %q)", result.Error, result.ErrorCode)
	}
	return &AssertionError{
		Type:     "error",
		Expected: fmt.Sprintf("error matching %q", want),
		Actual:   actual,
	}
}

func assertNoError(result *Result) error {
	if result.Error == "" {
		return nil
	}
	return &AssertionError{
		Type:     "error",
		Expected: "no error",
		Actual:   result.Error,
	}
}

func assertPanic(result *Result, want string) error {
	if result.Panic != want {
		return &AssertionError{
			Type:     "panic",
			Expected: fmt.Sprintf("panic %q", want),
			Actual:   fmt.Sprintf("panic %q", result.Panic),
		}
	}
	return nil
}

func assertStatuses(result *Result, want []string) error {
	var got []string
	for _, root := range decoded(result) {
		if a := root.TestStepArtifact; a != nil && a.TestStepEnd != nil {
			got = append(got, string(a.TestStepEnd.Status))
		}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     "statuses",
			Expected: strings.Join(want, ", "),
			Actual:   strings.Join(got, ", "),
			Lines:    result.Lines,
		}
	}
	return nil
}

func assertRunEnd(result *Result, want OutcomeSpec) error {
	for _, root := range decoded(result) {
		if a := root.TestRunArtifact; a != nil && a.TestRunEnd != nil {
			if string(a.TestRunEnd.Status) == want.Status && string(a.TestRunEnd.Result) == want.Result {
				return nil
			}
			return &AssertionError{
				Type:     "run_end",
				Expected: fmt.Sprintf("%s/%s", want.Status, want.Result),
				Actual:   fmt.Sprintf("%s/%s", a.TestRunEnd.Status, a.TestRunEnd.Result),
			}
		}
	}
	return &AssertionError{
		Type:     "run_end",
		Expected: fmt.Sprintf("%s/%s", want.Status, want.Result),
		Actual:   "no testRunEnd in stream",
		Lines:    result.Lines,
	}
}

func assertProblems(result *Result, want []string) error {
	got := []string{}
	if result.Report != nil {
		for _, p := range result.Report.Problems {
			got = append(got, p.Code)
		}
	}
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		var details []string
		if result.Report != nil {
			for _, p := range result.Report.Problems {
				details = append(details, p.Error())
			}
		}
		return &AssertionError{
			Type:     "problems",
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v %s", got, strings.Join(details, "; ")),
		}
	}
	return nil
}

// decoded re-reads the stream. Lines were decoded once by Run, so errors
// are not expected here; undecodable lines are skipped.
func decoded(result *Result) []*schema.Root {
	roots := make([]*schema.Root, 0, len(result.Lines))
	for _, line := range result.Lines {
		root, err := schema.Decode([]byte(line))
		if err != nil {
			continue
		}
		roots = append(roots, root)
	}
	return roots
}

// EvaluateExpectations checks the result against expect.
// Returns a slice of error messages for failed expectations.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var errs []error

	if expect.Artifacts != nil {
		errs = append(errs, assertArtifacts(result, *expect.Artifacts))
	}
	if expect.Kinds != nil {
		errs = append(errs, assertKinds(result, expect.Kinds))
	}
	if expect.Error != "" {
		errs = append(errs, assertError(result, expect.Error))
	} else if expect.Panic == "" {
		errs = append(errs, assertNoError(result))
	}
	errs = append(errs, assertPanic(result, expect.Panic))
	if expect.Statuses != nil {
		errs = append(errs, assertStatuses(result, expect.Statuses))
	}
	if expect.RunEnd != nil {
		errs = append(errs, assertRunEnd(result, *expect.RunEnd))
	}
	errs = append(errs, assertProblems(result, expect.Problems))

	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}
