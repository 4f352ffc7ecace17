package compiler

import "fmt"

// ValidationError is one error found while compiling a specification. The
// compiler collects every ValidationError it finds in one pass rather than
// stopping at the first (§7: "the compiler does not stop at the first
// error").
type ValidationError struct {
	Section string
	Path    string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Section, e.Path, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Section, e.Reason)
}

func newValidationError(section, path, reason string) *ValidationError {
	return &ValidationError{Section: section, Path: path, Reason: reason}
}
