// Package schema provides the wire types of the OCP Test & Validation output
// format (schema version 2.0).
//
// This package contains type definitions and their JSON encoding only. It
// knows nothing about scopes, sequencing or sinks; the output package builds
// Root values and hands them to Encode.
//
// Key design constraints:
//   - Field names and casing match the published JSON schema exactly
//   - Optional fields are omitted when unset, never emitted as null
//   - Each union (Root, TestRunArtifact, TestStepArtifact) carries exactly
//     one non-nil payload pointer; Validate enforces this before encoding
//   - Enumerations are closed string vocabularies; unknown values fail to
//     encode and fail to decode
package schema
