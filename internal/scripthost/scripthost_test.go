package scripthost

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestHost(t *testing.T, files map[string]string) (*Host, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	h, err := New(fs, "/proj", "entry.sen.ts", logger)
	require.NoError(t, err)
	return h, &buf
}

func TestRunEvaluatesTypeScriptEntrypoint(t *testing.T) {
	h, _ := newTestHost(t, map[string]string{
		"/proj/entry.sen.ts": `
interface Config { name: string; count: number }
function build(): Config {
  return { name: "widget", count: 3 };
}
export function main() {
  return build();
}
`,
	})
	v, err := h.Run("/proj/entry.sen.ts")
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestRunRejectsEntrypointOutsideRoot(t *testing.T) {
	h, _ := newTestHost(t, map[string]string{
		"/proj/entry.sen.ts": `export function main() { return null; }`,
	})
	_, err := h.Run("/other/entry.sen.ts")
	require.Error(t, err)
}

func TestImportYAMLRoundTripsOrderedKeys(t *testing.T) {
	h, _ := newTestHost(t, map[string]string{
		"/proj/entry.sen.js": `
export function main() {
  const cfg = senc.import_yaml("./data.yaml");
  return cfg.first + "-" + cfg.second;
}
`,
		"/proj/data.yaml": "first: a\nsecond: b\n",
	})
	v, err := h.Run("/proj/entry.sen.js")
	require.NoError(t, err)
	require.Equal(t, "a-b", v)
}

func TestConsoleLogIsTaggedWithEntrypoint(t *testing.T) {
	h, buf := newTestHost(t, map[string]string{
		"/proj/entry.sen.js": `export function main() { console.log("hi"); return null; }`,
	})
	_, err := h.Run("/proj/entry.sen.js")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "entry.sen.ts")
}
