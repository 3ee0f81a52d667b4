// Package output emits OCP Test & Validation artifacts as newline-delimited
// JSON.
//
// A program builds a TestRun, enters its scope, opens steps inside it and
// emits leaf artifacts (measurements, diagnoses, logs, errors, files,
// extensions, measurement series) against the innermost started scope:
//
//	emitter := output.NewEmitter(output.WithWriter(output.NewStdoutWriter()))
//	run := output.NewTestRun("memtest", "1.0", output.WithEmitter(emitter))
//	dut := output.NewDutInfo("dut0")
//
//	err := run.Scope(ctx, dut, func(ctx context.Context, r *output.StartedTestRun) (output.TestRunOutcome, error) {
//		err := r.AddStep("fan-check").Scope(ctx, func(ctx context.Context, s *output.StartedTestStep) (output.TestStatus, error) {
//			return output.TestStatusComplete, s.AddDiagnosis(ctx, "ok", output.DiagnosisPass)
//		})
//		return output.TestRunOutcome{Status: output.TestStatusComplete, Result: output.TestResultPass}, err
//	})
//
// ARCHITECTURE:
//
// Every run, step and series moves through unstarted, started and ended.
// Start emits the start artifact, End emits the end artifact, and leaf
// artifacts are accepted only while their scope is started. Anything else
// fails with a scope ordering violation and writes nothing.
//
// Scope is the primary entry point: it guarantees the end artifact is
// emitted exactly once on every exit path of the body, including errors,
// panics and cancellation of ctx. Start and End are also exported for
// callers that manage the lifecycle themselves; nothing compensates if
// such a caller forgets End.
//
// All artifacts go through one Emitter, which assigns sequence numbers and
// timestamps and writes the line inside a single critical section.
//
// ERRORS:
//
// Failures are *RuntimeError values with one of three codes: scope ordering
// violation, serialization failure, sink failure. When a scope body fails
// and closing the scope fails too, both errors are returned together.
package output
