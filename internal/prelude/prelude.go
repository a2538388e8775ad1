// Package prelude installs the fixed set of globals every sandboxed
// script sees: console, path, and senc. Nothing else is reachable from
// script code — no require, no process, no fs, no network constructors —
// which is what makes the engine hermetic regardless of what the script
// author writes.
package prelude

import (
	gopath "path"

	"senc/internal/jsengine"
)

// Install defines console, path, and senc on interp's global environment.
// It must run once per Interp, before the entrypoint module is evaluated.
func Install(interp *jsengine.Interp) {
	interp.Globals.Define("console", buildConsole(), true)
	interp.Globals.Define("path", buildPath(), true)
	interp.Globals.Define("senc", buildSenc(), true)
}

func buildConsole() *jsengine.Object {
	o := jsengine.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		lvl := level
		if lvl == "log" {
			lvl = "info"
		}
		o.Set(level, &jsengine.NativeFunction{Name: "console." + level, Fn: func(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
			i.Ops.Log(lvl, joinArgs(args))
			return nil, nil
		}})
	}
	return o
}

func joinArgs(args []jsengine.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = jsengine.ToDisplayString(a)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func buildPath() *jsengine.Object {
	o := jsengine.NewObject()
	o.Set("rel", &jsengine.NativeFunction{Name: "path.rel", Fn: func(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
		if len(args) < 2 {
			return nil, &jsengine.ScriptError{Kind: jsengine.TypeErrorKind, Message: "path.rel requires (base, target)"}
		}
		rel, err := i.Ops.RelPath(jsengine.ToDisplayString(args[0]), jsengine.ToDisplayString(args[1]))
		if err != nil {
			return nil, err
		}
		return rel, nil
	}})
	o.Set("join", &jsengine.NativeFunction{Name: "path.join", Fn: func(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
		parts := make([]string, len(args))
		for idx, a := range args {
			parts[idx] = jsengine.ToDisplayString(a)
		}
		return gopath.Join(parts...), nil
	}})
	o.Set("dirname", &jsengine.NativeFunction{Name: "path.dirname", Fn: func(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
		if len(args) == 0 {
			return "", nil
		}
		return gopath.Dir(jsengine.ToDisplayString(args[0])), nil
	}})
	o.Set("basename", &jsengine.NativeFunction{Name: "path.basename", Fn: func(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
		if len(args) == 0 {
			return "", nil
		}
		return gopath.Base(jsengine.ToDisplayString(args[0])), nil
	}})
	o.Set("ext", &jsengine.NativeFunction{Name: "path.ext", Fn: func(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
		if len(args) == 0 {
			return "", nil
		}
		return gopath.Ext(jsengine.ToDisplayString(args[0])), nil
	}})
	return o
}

func buildSenc() *jsengine.Object {
	o := jsengine.NewObject()
	o.Set("OutData", &jsengine.NativeFunction{Name: "senc.OutData", Fn: newOutData})
	o.Set("OutDataArray", &jsengine.NativeFunction{Name: "senc.OutDataArray", Fn: newOutDataArray})
	o.Set("import_json", &jsengine.NativeFunction{Name: "senc.import_json", Fn: importJSON})
	o.Set("import_yaml", &jsengine.NativeFunction{Name: "senc.import_yaml", Fn: importYAML})
	return o
}

// newOutData constructs a marked OutData value from one attributes object,
// copying only the recognised artifact fields. Only this constructor (and
// its array sibling) may set Object.Marker, which is what makes the marker
// unforgeable from a plain object literal: `{data: ..., out_path: ...}`
// with no call through senc.OutData is never treated as an artifact.
func newOutData(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
	if len(args) == 0 {
		return nil, &jsengine.ScriptError{Kind: jsengine.TypeErrorKind, Message: "senc.OutData requires an attributes argument"}
	}
	attrs, ok := args[0].(*jsengine.Object)
	if !ok {
		return nil, &jsengine.ScriptError{Kind: jsengine.TypeErrorKind, Message: "senc.OutData requires an attributes object"}
	}
	obj := jsengine.NewObject()
	obj.Marker = jsengine.MarkerOutData
	for _, k := range []string{"data", "out_path", "out_ext", "out_type", "out_prefix", "schema_path"} {
		if v, ok := attrs.Get(k); ok {
			obj.Set(k, v)
		}
	}
	return obj, nil
}

func newOutDataArray(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
	if len(args) == 0 {
		return nil, &jsengine.ScriptError{Kind: jsengine.TypeErrorKind, Message: "senc.OutDataArray requires an items argument"}
	}
	arr, ok := args[0].(*jsengine.Array)
	if !ok {
		return nil, &jsengine.ScriptError{Kind: jsengine.TypeErrorKind, Message: "senc.OutDataArray requires an array of OutData items"}
	}
	for _, el := range arr.Elements {
		item, ok := el.(*jsengine.Object)
		if !ok || item.Marker != jsengine.MarkerOutData {
			return nil, &jsengine.ScriptError{Kind: jsengine.TypeErrorKind, Message: "senc.OutDataArray items must each be constructed with senc.OutData"}
		}
	}
	obj := jsengine.NewObject()
	obj.Marker = jsengine.MarkerOutDataArray
	obj.Set("items", arr)
	return obj, nil
}

func importJSON(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
	return importData(i, args, true)
}

func importYAML(i *jsengine.Interp, args []jsengine.Value) (jsengine.Value, error) {
	return importData(i, args, false)
}

func importData(i *jsengine.Interp, args []jsengine.Value, isJSON bool) (jsengine.Value, error) {
	if len(args) == 0 {
		return nil, &jsengine.ScriptError{Kind: jsengine.TypeErrorKind, Message: "senc.import_json/import_yaml requires a path argument"}
	}
	specifier := jsengine.ToDisplayString(args[0])
	resolved, err := i.Loader.Resolve(i.CurrentFile, specifier, isJSON)
	if err != nil {
		return nil, err
	}
	data, err := i.Loader.ReadFile(resolved.Path)
	if err != nil {
		return nil, err
	}
	if isJSON {
		return jsengine.ParseJSON(data)
	}
	if jsengine.ParseYAMLFunc == nil {
		return nil, &jsengine.ScriptError{Kind: jsengine.RuntimeError, Message: "YAML import support is not wired"}
	}
	return jsengine.ParseYAMLFunc(data)
}
