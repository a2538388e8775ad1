// Package hostlog sets up the CLI-level charmbracelet/log logger and
// defines CompileError, the structured error the driver reports for
// every failed entrypoint. It is distinct from package hostops, which
// bridges one script's console.* calls into the same kind of logger but
// scoped to a single running entrypoint.
package hostlog

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"senc/internal/jsengine"
)

// CompileError is the one structured message printed for a failed
// entrypoint: the entrypoint itself, the offending source location when
// known, and a one-line cause, grounded on the teacher's convention of
// carrying file/line/column/message/kind on every reported error.
type CompileError struct {
	Entrypoint string
	Kind       string
	File       string
	Line       int
	Column     int
	Message    string
}

func (e *CompileError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s: %s:%d:%d: %s: %s", e.Entrypoint, e.File, e.Line, e.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Entrypoint, e.Kind, e.Message)
}

// FromError classifies err into a CompileError. *jsengine.ScriptError
// carries its own location; everything else (resolution failures,
// containment violations, planner/schema errors) is reported with just
// its message.
func FromError(entrypoint string, err error) *CompileError {
	var se *jsengine.ScriptError
	if errors.As(err, &se) {
		return &CompileError{
			Entrypoint: entrypoint,
			Kind:       string(se.Kind),
			File:       se.File,
			Line:       se.Line,
			Column:     se.Column,
			Message:    se.Message,
		}
	}
	var tv *jsengine.ThrownValue
	if errors.As(err, &tv) {
		return &CompileError{Entrypoint: entrypoint, Kind: "ThrownError", Message: tv.Error()}
	}
	return &CompileError{Entrypoint: entrypoint, Kind: "Error", Message: err.Error()}
}

// NewLogger builds the process-wide logger, threshold set from the
// CLI's --loglevel flag. charmbracelet/log has no distinct trace level;
// "trace" maps to its lowest available level, Debug, which is the
// closest faithful mapping.
func NewLogger(level string, w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           parseLevel(level),
	})
	return logger
}

func parseLevel(level string) log.Level {
	switch level {
	case "trace", "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
