package discovery

import "fmt"

// TopNotFoundError is raised when FindTop walks upward from a starting
// path without ever finding a directory containing the controls
// manifest.
type TopNotFoundError struct {
	Start    string
	Manifest string
}

func (e *TopNotFoundError) Error() string {
	return fmt.Sprintf("no %s found walking up from %s", e.Manifest, e.Start)
}

// NewTopNotFoundError creates a new TopNotFoundError.
func NewTopNotFoundError(start, manifest string) *TopNotFoundError {
	return &TopNotFoundError{Start: start, Manifest: manifest}
}

// Diagnostic is a non-fatal discovery problem: an unreadable directory,
// a file that failed a validation check, a symlink loop. Discovery
// collects these instead of aborting, per spec.md §4.B ("discovery
// errors are captured as diagnostic strings — never fatal to the run").
type Diagnostic struct {
	Path    string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

func diag(path, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Path: path, Message: fmt.Sprintf(format, args...)}
}
