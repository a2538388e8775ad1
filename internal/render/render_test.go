package render

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"senc/internal/jsengine"
	"senc/internal/planner"
)

func TestRenderJSONPreservesInsertionOrder(t *testing.T) {
	obj := jsengine.NewObject()
	obj.Set("b", float64(1))
	obj.Set("a", float64(2))
	body, err := Render(planner.Artifact{Kind: "json", Data: obj})
	require.NoError(t, err)
	require.Equal(t, "{\n  \"b\": 1,\n  \"a\": 2\n}\n", string(body))
}

func TestRenderYAMLProducesBlockStyle(t *testing.T) {
	obj := jsengine.NewObject()
	obj.Set("foo", "bar")
	body, err := Render(planner.Artifact{Kind: "yaml", Data: obj})
	require.NoError(t, err)
	require.Equal(t, "foo: bar\n", string(body))
}

func TestRenderPrependsPrefixVerbatim(t *testing.T) {
	obj := jsengine.NewObject()
	obj.Set("foo", "bar")
	body, err := Render(planner.Artifact{Kind: "yaml", Data: obj, Prefix: "# header\n"})
	require.NoError(t, err)
	require.Equal(t, "# header\nfoo: bar\n", string(body))
}

func TestWriteCreatesNestedDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	obj := jsengine.NewObject()
	obj.Set("id", float64(5))
	plan := []planner.Artifact{{OutPath: "sub/dir/out.json", Kind: "json", Data: obj}}

	err := Write(fs, "/out", plan, nil)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/out/sub/dir/out.json")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRenderHCLRejectsNonObjectTopLevel(t *testing.T) {
	_, err := Render(planner.Artifact{Kind: "hcl", Data: float64(1)})
	require.Error(t, err)
}

// TestRenderJSONRoundTripsDeepValue exercises the round-trip-of-JSON
// invariant on a nested value: rendering then decoding must reproduce
// the original shape, modulo object key order.
func TestRenderJSONRoundTripsDeepValue(t *testing.T) {
	nested := jsengine.NewObject()
	nested.Set("host", "db.internal")
	nested.Set("port", float64(5432))
	tags := jsengine.NewArrayValue("prod", "primary")
	root := jsengine.NewObject()
	root.Set("name", "widget")
	root.Set("database", nested)
	root.Set("tags", tags)

	body, err := Render(planner.Artifact{Kind: "json", Data: root})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))

	want := map[string]any{
		"name": "widget",
		"database": map[string]any{
			"host": "db.internal",
			"port": float64(5432),
		},
		"tags": []any{"prod", "primary"},
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("rendered JSON round-trip mismatch:\n%s", diff)
	}
}
