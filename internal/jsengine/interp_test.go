package jsengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	files map[string]string
	kinds map[string]MediaKind
}

func (f *fakeLoader) Resolve(fromFile, specifier string, hasJSONAttribute bool) (ResolvedModule, error) {
	if _, ok := f.files[specifier]; !ok {
		return ResolvedModule{}, &ScriptError{Kind: ReferenceError, Message: "module not found: " + specifier}
	}
	kind := f.kinds[specifier]
	return ResolvedModule{Path: specifier, Kind: kind}, nil
}

func (f *fakeLoader) ReadFile(path string) (string, error) {
	return f.files[path], nil
}

type fakeOps struct{ logs []string }

func (f *fakeOps) Log(level, msg string) { f.logs = append(f.logs, level+":"+msg) }
func (f *fakeOps) RelPath(base, target string) (string, error) { return target, nil }

func newTestInterp(files map[string]string, kinds map[string]MediaKind) *Interp {
	return NewInterp("/proj", &fakeLoader{files: files, kinds: kinds}, &fakeOps{})
}

func TestRunEntrypointReturnsMainResult(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": "export function main() { return { hello: \"world\" }; }",
	}, nil)
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	obj, ok := v.(*Object)
	require.True(t, ok)
	hello, _ := obj.Get("hello")
	require.Equal(t, "world", hello)
}

func TestRunEntrypointAsyncMainUnwrapsPromise(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": "export async function main() { return 42; }",
	}, nil)
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	require.Equal(t, float64(42), v)
}

func TestImportNamedBinding(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `import { double } from "./lib.js";
export function main() { return double(21); }`,
		"./lib.js": "export function double(x) { return x * 2; }",
	}, map[string]MediaKind{"./lib.js": KindJS})
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	require.Equal(t, float64(42), v)
}

func TestObjectKeyInsertionOrderPreserved(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() {
  const o = {};
  o.z = 1;
  o.a = 2;
  o.m = 3;
  return o;
}`,
	}, nil)
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	obj := v.(*Object)
	require.Equal(t, []string{"z", "a", "m"}, obj.Keys())
}

func TestThrowIsCatchable(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() {
  try {
    throw "boom";
  } catch (e) {
    return "caught:" + e;
  }
}`,
	}, nil)
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	require.Equal(t, "caught:boom", v)
}

func TestUnresolvedImportIsNotCatchable(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `import { x } from "./missing.js";
export function main() { return x; }`,
	}, nil)
	_, err := i.RunEntrypoint("/proj/entry.js")
	require.Error(t, err)
	_, isThrown := err.(*ThrownValue)
	require.False(t, isThrown)
}

func TestTemplateLiteralInterpolation(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() {
  const name = "svc";
  const n = 3;
  return ` + "`${name}-${n * 2}`" + `;
}`,
	}, nil)
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	require.Equal(t, "svc-6", v)
}

func TestArrayMapFilterReduce(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/entry.js": `export function main() {
  const xs = [1, 2, 3, 4];
  const doubled = xs.map(x => x * 2);
  const evens = doubled.filter(x => x % 4 === 0);
  const sum = evens.reduce((a, b) => a + b, 0);
  return sum;
}`,
	}, nil)
	v, err := i.RunEntrypoint("/proj/entry.js")
	require.NoError(t, err)
	require.Equal(t, float64(12), v)
}

func TestCircularImportReturnsPartialExports(t *testing.T) {
	i := newTestInterp(map[string]string{
		"/proj/a.js": `import { b } from "/proj/b.js";
export const a = 1;`,
		"/proj/b.js": `import { a } from "/proj/a.js";
export const b = 2;
export function main() { return a; }`,
	}, map[string]MediaKind{"/proj/b.js": KindJS, "/proj/a.js": KindJS})
	_, err := i.loadModule("/proj/a.js")
	require.NoError(t, err)
}
