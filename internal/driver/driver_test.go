package driver

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestOpts(t *testing.T, files map[string]string) (Options, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	var buf bytes.Buffer
	return Options{
		Fs:          fs,
		ProjectRoot: "/proj",
		OutRoot:     "/out",
		Logger:      log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}),
	}, &buf
}

func TestRunWritesSimpleObjectEntrypoint(t *testing.T) {
	opts, _ := newTestOpts(t, map[string]string{
		"/proj/a.sen.ts": `export function main() { return { id: 5, msg: "hello world" }; }`,
	})
	errs := Run(opts)
	require.Empty(t, errs)

	body, err := afero.ReadFile(opts.Fs, "/out/a.json")
	require.NoError(t, err)
	require.Contains(t, string(body), `"id": 5`)
}

func TestRunDetectsCrossEntrypointCollision(t *testing.T) {
	opts, _ := newTestOpts(t, map[string]string{
		"/proj/a.sen.ts": `export function main() { return senc.OutData({ data: {}, out_path: "shared.json" }); }`,
		"/proj/b.sen.ts": `export function main() { return senc.OutData({ data: {}, out_path: "shared.json" }); }`,
	})
	errs := Run(opts)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Kind == "CollisionError" {
			found = true
		}
	}
	require.True(t, found)

	exists, err := afero.Exists(opts.Fs, "/out/shared.json")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRunOneEntrypointFailureDoesNotBlockOthers(t *testing.T) {
	opts, _ := newTestOpts(t, map[string]string{
		"/proj/a.sen.ts": `export function main() { return { ok: true }; }`,
		"/proj/b.sen.ts": `export function main() { throw "boom"; }`,
	})
	errs := Run(opts)
	require.Len(t, errs, 1)

	exists, err := afero.Exists(opts.Fs, "/out/a.json")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRunRejectsEscapingImport(t *testing.T) {
	opts, _ := newTestOpts(t, map[string]string{
		"/proj/a.sen.ts": `import data from "../../../etc/passwd"; export function main() { return data; }`,
	})
	errs := Run(opts)
	require.NotEmpty(t, errs)

	exists, err := afero.Exists(opts.Fs, "/out/a.json")
	require.NoError(t, err)
	require.False(t, exists)
}
