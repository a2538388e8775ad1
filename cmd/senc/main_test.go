package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmdCompilesSimpleEntrypoint(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "a.sen.ts")
	require.NoError(t, os.WriteFile(entry, []byte(`export function main() { return { id: 5 }; }`), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	body, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	require.Contains(t, string(body), `"id": 5`)
}

func TestRootCmdFailsOnScriptError(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "a.sen.ts")
	require.NoError(t, os.WriteFile(entry, []byte(`export function main() { throw "boom"; }`), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir})
	require.Error(t, cmd.Execute())
}

func TestRootCmdRejectsUnknownLogLevel(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--loglevel", "verbose", dir})
	require.Error(t, cmd.Execute())
}

func TestRootCmdHonoursOutFlag(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	entry := filepath.Join(dir, "a.sen.ts")
	require.NoError(t, os.WriteFile(entry, []byte(`export function main() { return { ok: true }; }`), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"-o", outDir, dir})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(outDir, "a.json"))
	require.NoError(t, err)
}
