package jsengine

import "fmt"

// ErrorKind classifies a ScriptError the way the host driver needs to sort
// failures into its error taxonomy.
type ErrorKind string

const (
	SyntaxError    ErrorKind = "SyntaxError"
	RuntimeError   ErrorKind = "RuntimeError"
	ReferenceError ErrorKind = "ReferenceError"
	TypeErrorKind  ErrorKind = "TypeError"
	ThrownError    ErrorKind = "ThrownError"
	ImportError    ErrorKind = "ImportError"
)

// ScriptError carries file/line/column so the driver can report exactly
// where, inside an entrypoint, compilation or execution failed.
type ScriptError struct {
	Kind    ErrorKind
	File    string
	Line    int
	Column  int
	Message string
	// Thrown holds the original script-level value when Kind is
	// ThrownError (e.g. the argument to a JS `throw`), for callers that
	// want more than its string form.
	Thrown Value
}

func (e *ScriptError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s (at %s:%d:%d)", e.Kind, e.Message, e.File, e.Line, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newRuntimeErr(kind ErrorKind, file string, line, col int, format string, args ...interface{}) *ScriptError {
	return &ScriptError{Kind: kind, File: file, Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}
