// Package render serialises planner artifacts to bytes and writes them
// under the output root. JSON and YAML both walk jsengine.Value directly
// rather than going through a generic map[string]any, because Go's
// encoding/json sorts map keys alphabetically on encode and would
// silently violate the insertion-order invariant the rest of the
// pipeline preserves.
package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"

	"senc/internal/jsengine"
	"senc/internal/planner"
)

// Write serialises and writes every artifact in plan under outRoot,
// creating parent directories as needed. Each artifact's OutPath has
// already been checked for uniqueness within its entrypoint; Write asserts
// containment of each full path through assertContained before any
// filesystem mutation.
func Write(fs afero.Fs, outRoot string, plan []planner.Artifact, assertContained func(string) error) error {
	for _, a := range plan {
		if err := writeOne(fs, outRoot, a, assertContained); err != nil {
			return err
		}
	}
	return nil
}

func writeOne(fs afero.Fs, outRoot string, a planner.Artifact, assertContained func(string) error) error {
	body, err := Render(a)
	if err != nil {
		return fmt.Errorf("%s: %w", a.OutPath, err)
	}
	full := filepath.Join(outRoot, filepath.FromSlash(a.OutPath))
	if assertContained != nil {
		if err := assertContained(full); err != nil {
			return err
		}
	}
	if err := fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%s: %w", a.OutPath, err)
	}
	if err := afero.WriteFile(fs, full, body, 0o644); err != nil {
		return fmt.Errorf("%s: %w", a.OutPath, err)
	}
	return nil
}

// Render serialises one artifact's data per its kind and prepends
// out_prefix verbatim ahead of the payload.
func Render(a planner.Artifact) ([]byte, error) {
	var payload []byte
	var err error
	switch a.Kind {
	case "yaml":
		payload, err = renderYAML(a.Data)
	case "hcl":
		payload, err = renderHCL(a.Data)
	default:
		payload, err = renderJSON(a.Data)
	}
	if err != nil {
		return nil, err
	}
	if a.Prefix == "" {
		return payload, nil
	}
	out := make([]byte, 0, len(a.Prefix)+len(payload))
	out = append(out, a.Prefix...)
	out = append(out, payload...)
	return out, nil
}

func renderJSON(data jsengine.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, data, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v jsengine.Value, depth int) error {
	switch x := v.(type) {
	case nil, jsengine.Null:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case float64:
		buf.WriteString(jsonNumber(x))
	case string:
		buf.WriteString(jsonQuote(x))
	case *jsengine.Array:
		return writeJSONArray(buf, x, depth)
	case *jsengine.Object:
		return writeJSONObject(buf, x, depth)
	default:
		return fmt.Errorf("value of type %T is not JSON-serialisable", x)
	}
	return nil
}

func writeJSONArray(buf *bytes.Buffer, arr *jsengine.Array, depth int) error {
	if len(arr.Elements) == 0 {
		buf.WriteString("[]")
		return nil
	}
	buf.WriteString("[\n")
	for i, e := range arr.Elements {
		indent(buf, depth+1)
		if err := writeJSON(buf, e, depth+1); err != nil {
			return err
		}
		if i < len(arr.Elements)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	indent(buf, depth)
	buf.WriteByte(']')
	return nil
}

func writeJSONObject(buf *bytes.Buffer, obj *jsengine.Object, depth int) error {
	keys := obj.Keys()
	if len(keys) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{\n")
	for i, k := range keys {
		val, _ := obj.Get(k)
		indent(buf, depth+1)
		buf.WriteString(jsonQuote(k))
		buf.WriteString(": ")
		if err := writeJSON(buf, val, depth+1); err != nil {
			return err
		}
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	indent(buf, depth)
	buf.WriteByte('}')
	return nil
}

func indent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

func jsonQuote(s string) string {
	return strconv.Quote(s)
}

func jsonNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func renderYAML(data jsengine.Value) ([]byte, error) {
	slice, err := toYAMLValue(data)
	if err != nil {
		return nil, err
	}
	return yaml.MarshalWithOptions(slice, yaml.Indent(2))
}

// toYAMLValue mirrors the JSON walker but produces goccy/go-yaml's
// MapSlice in place of a bare map, which is what keeps object key order
// stable through the YAML encoder too.
func toYAMLValue(v jsengine.Value) (any, error) {
	switch x := v.(type) {
	case nil, jsengine.Null:
		return nil, nil
	case bool, float64, string:
		return x, nil
	case *jsengine.Array:
		out := make([]any, len(x.Elements))
		for i, e := range x.Elements {
			ev, err := toYAMLValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case *jsengine.Object:
		slice := make(yaml.MapSlice, 0, len(x.Keys()))
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			yv, err := toYAMLValue(val)
			if err != nil {
				return nil, err
			}
			slice = append(slice, yaml.MapItem{Key: k, Value: yv})
		}
		return slice, nil
	default:
		return nil, fmt.Errorf("value of type %T is not YAML-serialisable", x)
	}
}

// renderHCL is the additive HCL output path described as an open
// question: scalars and objects map onto HCL attributes directly; arrays
// of objects become repeated blocks is explicitly out of scope, so a
// top-level non-object value is rejected rather than guessed at.
func renderHCL(data jsengine.Value) ([]byte, error) {
	obj, ok := data.(*jsengine.Object)
	if !ok {
		return nil, fmt.Errorf("hcl output requires an object at the top level")
	}
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for _, k := range obj.Keys() {
		val, _ := obj.Get(k)
		ctyVal, err := toCtyValue(val)
		if err != nil {
			return nil, err
		}
		body.SetAttributeValue(k, ctyVal)
	}
	return f.Bytes(), nil
}

func toCtyValue(v jsengine.Value) (cty.Value, error) {
	switch x := v.(type) {
	case nil, jsengine.Null:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case string:
		return cty.StringVal(x), nil
	case *jsengine.Array:
		if len(x.Elements) == 0 {
			return cty.ListValEmpty(cty.DynamicPseudoType), nil
		}
		vals := make([]cty.Value, len(x.Elements))
		for i, e := range x.Elements {
			cv, err := toCtyValue(e)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = cv
		}
		return cty.TupleVal(vals), nil
	case *jsengine.Object:
		fields := make(map[string]cty.Value, len(x.Keys()))
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			cv, err := toCtyValue(val)
			if err != nil {
				return cty.NilVal, err
			}
			fields[k] = cv
		}
		return cty.ObjectVal(fields), nil
	default:
		return cty.NilVal, fmt.Errorf("value of type %T is not HCL-serialisable", x)
	}
}
