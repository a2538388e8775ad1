package scripthost

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"senc/internal/jsengine"
)

// parseYAML decodes YAML text into the engine's own Value model. Decoding
// into a bare map[string]any would lose the source key order that the
// rest of the pipeline depends on, so this decodes into yaml.MapSlice
// (which keeps document order) and walks that instead.
func parseYAML(data string) (jsengine.Value, error) {
	var decoded any
	if err := yaml.UnmarshalWithOptions([]byte(data), &decoded, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	return yamlToValue(decoded)
}

func yamlToValue(v any) (jsengine.Value, error) {
	switch x := v.(type) {
	case nil:
		return jsengine.TheNull, nil
	case bool, string, float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case []any:
		arr := jsengine.NewArrayValue()
		for _, e := range x {
			ev, err := yamlToValue(e)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, ev)
		}
		return arr, nil
	case yaml.MapSlice:
		obj := jsengine.NewObject()
		for _, item := range x {
			val, err := yamlToValue(item.Value)
			if err != nil {
				return nil, err
			}
			obj.Set(fmt.Sprint(item.Key), val)
		}
		return obj, nil
	default:
		return fmt.Sprintf("%v", x), nil
	}
}
