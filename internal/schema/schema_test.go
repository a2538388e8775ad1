package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"senc/internal/jsengine"
)

func TestValidateAcceptsConformingData(t *testing.T) {
	v, err := Compile([]byte(`{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`))
	require.NoError(t, err)
	require.NoError(t, v.Validate(map[string]any{"name": "widget"}))
}

func TestValidateRejectsExtraProperty(t *testing.T) {
	v, err := Compile([]byte(`{"type": "object", "additionalProperties": false}`))
	require.NoError(t, err)
	err = v.Validate(map[string]any{"shouldNotHave": true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema validation failed")
}

func TestToPlainDataPreservesValuesThroughJSONBridge(t *testing.T) {
	obj := jsengine.NewObject()
	obj.Set("count", float64(3))
	nested := jsengine.NewArrayValue("a", "b")
	obj.Set("tags", nested)

	plain, err := ToPlainData(obj)
	require.NoError(t, err)

	m, ok := plain.(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(3), m["count"])
	require.Equal(t, []any{"a", "b"}, m["tags"])
}
