// Package harness runs YAML scenarios through the output package.
//
// A scenario declares a test run, its DUT and the actions performed inside
// the run: run-level logs and errors, and steps with measurements, series,
// diagnoses, files and extensions. Steps can also fail, panic, or keep
// using their handle after they ended.
//
// Execution is deterministic by default: timestamps are pinned to the
// epoch and auto-generated DUT ids count up, so the emitted stream can be
// compared byte for byte against golden files.
//
// Every emitted stream is checked with validate.Checker. Unless a scenario
// lists the problems it expects, the stream must be clean.
//
// # Scenario Format
//
//	name: one-step-diagnosis
//	description: a run with one step emitting one diagnosis
//	run: {name: r, version: "1.0"}
//	dut: {id: dut0}
//	actions:
//	  - step:
//	      name: fan-check
//	      actions:
//	        - diagnosis: {verdict: fan-ok, type: PASS}
//	expect:
//	  artifacts: 6
//	  kinds: [schemaVersion, testRunStart, testStepStart, diagnosis, testStepEnd, testRunEnd]
package harness
