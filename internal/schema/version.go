package schema

// Version of the output schema produced by this package.
const (
	VersionMajor = 2
	VersionMinor = 0
)

// CurrentVersion returns the schemaVersion payload for VersionMajor.VersionMinor.
func CurrentVersion() *SchemaVersion {
	return &SchemaVersion{Major: VersionMajor, Minor: VersionMinor}
}
