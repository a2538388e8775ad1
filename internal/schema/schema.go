// Package schema wraps kaptinlin/jsonschema to validate a script's
// returned data against an optional JSON Schema document before the
// planner accepts it as an artifact.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"senc/internal/jsengine"
)

// Validator holds one compiled schema, ready to check arbitrary decoded
// values against it.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile parses and compiles a JSON Schema document. The schema itself is
// plain JSON text, not a script value — it is read from the project tree
// for each artifact that names it, never generated by the sandboxed script.
func Compile(schemaJSON []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	s, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// ValidationError collects every schema violation found for one artifact,
// so a script author sees all of them instead of stopping at the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Violations, "; "))
}

// Validate checks v (already converted to plain Go data by the caller)
// against the compiled schema.
func (val *Validator) Validate(data any) error {
	result := val.schema.Validate(data)
	if result.IsValid() {
		return nil
	}
	var violations []string
	for field, errs := range result.Errors {
		for _, e := range errs {
			violations = append(violations, fmt.Sprintf("%s: %s", field, e))
		}
	}
	if len(violations) == 0 {
		violations = append(violations, "value does not satisfy schema")
	}
	return &ValidationError{Violations: violations}
}

// ToPlainData converts the engine's Value model into the
// map[string]any/[]any/primitive shape the schema validator expects,
// going through JSON as the one canonical bridge between the two
// representations. The renderer does not use it; it walks jsengine.Value
// directly.
func ToPlainData(v jsengine.Value) (any, error) {
	encoded, err := json.Marshal(toJSONCompatible(v))
	if err != nil {
		return nil, fmt.Errorf("encoding value for schema validation: %w", err)
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toJSONCompatible(v jsengine.Value) any {
	switch x := v.(type) {
	case nil:
		return nil
	case jsengine.Null:
		return nil
	case bool, float64, string:
		return x
	case *jsengine.Array:
		out := make([]any, len(x.Elements))
		for i, e := range x.Elements {
			out[i] = toJSONCompatible(e)
		}
		return out
	case *jsengine.Object:
		out := make(map[string]any, len(x.Keys()))
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			out[k] = toJSONCompatible(val)
		}
		return out
	default:
		return fmt.Sprintf("%v", x)
	}
}
