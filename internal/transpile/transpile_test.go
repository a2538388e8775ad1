package transpile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripErasesTypeAnnotations(t *testing.T) {
	src := "function greet(name: string, times: number = 1): string {\n  return name;\n}\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.NotContains(t, out, ": string")
	require.NotContains(t, out, ": number")
	require.Contains(t, out, "function greet(name, times = 1) {")
}

func TestStripDropsInterfaceDeclaration(t *testing.T) {
	src := "export interface Config {\n  name: string;\n}\n\nexport function main() {\n  return { ok: true };\n}\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.NotContains(t, out, "interface")
	require.Contains(t, out, "export function main()")
}

func TestStripDropsTypeAlias(t *testing.T) {
	src := "type Port = number;\nconst p: Port = 8080;\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.NotContains(t, out, "type Port")
}

func TestStripPreservesObjectLiteralColons(t *testing.T) {
	src := "const cfg = {\n  out_path: \"a.json\",\n  replicas: 3,\n};\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.Contains(t, out, "out_path: \"a.json\"")
	require.Contains(t, out, "replicas: 3")
}

func TestStripRewritesEnumToConstObject(t *testing.T) {
	src := "enum Level { Low, Medium, High }\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.Contains(t, out, "const Level = {Low: 0, Medium: 1, High: 2};")
}

func TestStripDropsNonNullAssertionAndCasts(t *testing.T) {
	src := "const a = maybe!;\nconst b = value as string;\nconst c = other satisfies Shape;\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.NotContains(t, out, "!;")
	require.NotContains(t, out, " as string")
	require.NotContains(t, out, "satisfies")
}

func TestStripPreservesLineCount(t *testing.T) {
	src := "interface X {\n  a: string;\n}\n\nfunction main() {\n  return 1;\n}\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))
}

func TestStripErasesGenericParameters(t *testing.T) {
	src := "function identity<T>(x: T): T {\n  return x;\n}\nconst xs: Array<string> = [];\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.NotContains(t, out, "<T>")
	require.NotContains(t, out, "Array<string>")
}

func TestStripLeavesComparisonOperatorsAlone(t *testing.T) {
	src := "function lt(a, b) {\n  return a < b && b > 1;\n}\n"
	out, err := Strip(src)
	require.NoError(t, err)
	require.Contains(t, out, "a < b && b > 1")
}
