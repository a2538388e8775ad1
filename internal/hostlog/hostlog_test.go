package hostlog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"senc/internal/jsengine"
)

func TestFromErrorExtractsScriptErrorLocation(t *testing.T) {
	se := &jsengine.ScriptError{Kind: jsengine.RuntimeError, File: "a.ts", Line: 3, Column: 7, Message: "boom"}
	ce := FromError("a.sen.ts", se)
	require.Equal(t, "a.ts", ce.File)
	require.Equal(t, 3, ce.Line)
	require.Contains(t, ce.Error(), "boom")
}

func TestFromErrorWrapsThrownValue(t *testing.T) {
	tv := &jsengine.ThrownValue{Val: "custom failure"}
	ce := FromError("a.sen.ts", tv)
	require.Equal(t, "ThrownError", ce.Kind)
	require.Contains(t, ce.Error(), "custom failure")
}

func TestFromErrorFallsBackToPlainMessage(t *testing.T) {
	ce := FromError("a.sen.ts", errors.New("disk full"))
	require.Equal(t, "Error", ce.Kind)
	require.Contains(t, ce.Error(), "disk full")
}

func TestNewLoggerRespectsThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("error", &buf)
	logger.Info("should be dropped")
	logger.Error("should appear")
	require.NotContains(t, buf.String(), "should be dropped")
	require.Contains(t, buf.String(), "should appear")
}
