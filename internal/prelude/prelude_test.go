package prelude

import (
	"testing"

	"github.com/stretchr/testify/require"

	"senc/internal/jsengine"
)

type fakeLoader struct {
	files map[string]string
	kinds map[string]jsengine.MediaKind
}

func (f *fakeLoader) Resolve(fromFile, specifier string, hasJSONAttribute bool) (jsengine.ResolvedModule, error) {
	return jsengine.ResolvedModule{Path: specifier, Kind: f.kinds[specifier]}, nil
}

func (f *fakeLoader) ReadFile(path string) (string, error) { return f.files[path], nil }

type fakeOps struct{ logs []string }

func (f *fakeOps) Log(level, msg string)                       { f.logs = append(f.logs, level+":"+msg) }
func (f *fakeOps) RelPath(base, target string) (string, error) { return target, nil }

func newTestInterp(files map[string]string, kinds map[string]jsengine.MediaKind, ops *fakeOps) *jsengine.Interp {
	i := jsengine.NewInterp("/proj", &fakeLoader{files: files, kinds: kinds}, ops)
	Install(i)
	return i
}

func TestConsoleLogRoutesThroughOps(t *testing.T) {
	ops := &fakeOps{}
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() { console.log("hello", 1); return null; }`,
	}, nil, ops)
	_, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	require.Contains(t, ops.logs, "info:hello 1")
}

func TestOutDataMarkerIsSet(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() {
  return senc.OutData({ data: { a: 1 }, out_path: "a.json" });
}`,
	}, nil, &fakeOps{})
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	obj := v.(*jsengine.Object)
	require.Equal(t, jsengine.MarkerOutData, obj.Marker)
	outPath, _ := obj.Get("out_path")
	require.Equal(t, "a.json", outPath)
}

func TestPlainObjectLiteralHasNoMarker(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() {
  return { data: { a: 1 }, out_path: "a.json" };
}`,
	}, nil, &fakeOps{})
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	obj := v.(*jsengine.Object)
	require.Equal(t, "", obj.Marker)
}

func TestImportJSON(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() {
  const cfg = senc.import_json("./data.json");
  return cfg.name;
}`,
		"./data.json": `{"name": "widget"}`,
	}, map[string]jsengine.MediaKind{"./data.json": jsengine.KindJSON}, &fakeOps{})
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	require.Equal(t, "widget", v)
}
