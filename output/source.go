package output

import (
	"path/filepath"
	"runtime"
)

// SourceLocation points at a line of code.
type SourceLocation struct {
	File string
	Line int
}

// Here returns the location of its caller.
func Here() *SourceLocation {
	return callerLocation(2)
}

// callerLocation reports the location skip frames above itself. The file
// is trimmed to its last two path elements.
func callerLocation(skip int) *SourceLocation {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}
	dir := filepath.Base(filepath.Dir(file))
	return &SourceLocation{File: dir + "/" + filepath.Base(file), Line: line}
}
