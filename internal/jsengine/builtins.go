package jsengine

import "strings"

// arrayNativeMethod, objectNativeMethod and stringNativeMethod are
// prototype methods bound to a receiver already resolved
// by evalMember; they mirror the script-callable surface offered by
// NativeFunction but fix the receiver type at lookup time.
type arrayNativeMethod func(i *Interp, recv *Array, args []Value) (Value, error)
type objectNativeMethod func(i *Interp, recv *Object, args []Value) (Value, error)
type stringNativeMethod func(i *Interp, recv string, args []Value) (Value, error)

func arrayMethod(name string) (arrayNativeMethod, bool) {
	m, ok := arrayMethods[name]
	return m, ok
}

func objectMethod(name string) (objectNativeMethod, bool) {
	m, ok := objectMethods[name]
	return m, ok
}

func stringMethod(name string) (stringNativeMethod, bool) {
	m, ok := stringMethods[name]
	return m, ok
}

var arrayMethods = map[string]arrayNativeMethod{
	"push": func(i *Interp, recv *Array, args []Value) (Value, error) {
		recv.Elements = append(recv.Elements, args...)
		return float64(len(recv.Elements)), nil
	},
	"pop": func(i *Interp, recv *Array, args []Value) (Value, error) {
		if len(recv.Elements) == 0 {
			return nil, nil
		}
		last := recv.Elements[len(recv.Elements)-1]
		recv.Elements = recv.Elements[:len(recv.Elements)-1]
		return last, nil
	},
	"join": func(i *Interp, recv *Array, args []Value) (Value, error) {
		sep := ","
		if len(args) > 0 {
			sep = ToDisplayString(args[0])
		}
		parts := make([]string, len(recv.Elements))
		for idx, e := range recv.Elements {
			parts[idx] = ToDisplayString(e)
		}
		return strings.Join(parts, sep), nil
	},
	"slice": func(i *Interp, recv *Array, args []Value) (Value, error) {
		start, end := sliceRange(len(recv.Elements), args)
		out := append([]Value{}, recv.Elements[start:end]...)
		return &Array{Elements: out}, nil
	},
	"includes": func(i *Interp, recv *Array, args []Value) (Value, error) {
		if len(args) == 0 {
			return false, nil
		}
		for _, e := range recv.Elements {
			if looseOrStrictEqual(e, args[0]) {
				return true, nil
			}
		}
		return false, nil
	},
	"indexOf": func(i *Interp, recv *Array, args []Value) (Value, error) {
		if len(args) == 0 {
			return float64(-1), nil
		}
		for idx, e := range recv.Elements {
			if looseOrStrictEqual(e, args[0]) {
				return float64(idx), nil
			}
		}
		return float64(-1), nil
	},
	"map": func(i *Interp, recv *Array, args []Value) (Value, error) {
		if len(args) == 0 {
			return nil, &ScriptError{Kind: TypeErrorKind, Message: "Array.map requires a callback"}
		}
		out := &Array{Elements: make([]Value, len(recv.Elements))}
		for idx, e := range recv.Elements {
			v, err := i.Call(args[0], []Value{e, float64(idx)})
			if err != nil {
				return nil, err
			}
			out.Elements[idx] = v
		}
		return out, nil
	},
	"filter": func(i *Interp, recv *Array, args []Value) (Value, error) {
		if len(args) == 0 {
			return nil, &ScriptError{Kind: TypeErrorKind, Message: "Array.filter requires a callback"}
		}
		out := &Array{}
		for idx, e := range recv.Elements {
			v, err := i.Call(args[0], []Value{e, float64(idx)})
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				out.Elements = append(out.Elements, e)
			}
		}
		return out, nil
	},
	"forEach": func(i *Interp, recv *Array, args []Value) (Value, error) {
		if len(args) == 0 {
			return nil, &ScriptError{Kind: TypeErrorKind, Message: "Array.forEach requires a callback"}
		}
		for idx, e := range recv.Elements {
			if _, err := i.Call(args[0], []Value{e, float64(idx)}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	},
	"reduce": func(i *Interp, recv *Array, args []Value) (Value, error) {
		if len(args) == 0 {
			return nil, &ScriptError{Kind: TypeErrorKind, Message: "Array.reduce requires a callback"}
		}
		elems := recv.Elements
		var acc Value
		startIdx := 0
		if len(args) > 1 {
			acc = args[1]
		} else {
			if len(elems) == 0 {
				return nil, &ScriptError{Kind: TypeErrorKind, Message: "Array.reduce of empty array with no initial value"}
			}
			acc = elems[0]
			startIdx = 1
		}
		for idx := startIdx; idx < len(elems); idx++ {
			v, err := i.Call(args[0], []Value{acc, elems[idx], float64(idx)})
			if err != nil {
				return nil, err
			}
			acc = v
		}
		return acc, nil
	},
	"sort": func(i *Interp, recv *Array, args []Value) (Value, error) {
		sortArray(i, recv, args)
		return recv, nil
	},
	"concat": func(i *Interp, recv *Array, args []Value) (Value, error) {
		out := append([]Value{}, recv.Elements...)
		for _, a := range args {
			if arr, ok := a.(*Array); ok {
				out = append(out, arr.Elements...)
			} else {
				out = append(out, a)
			}
		}
		return &Array{Elements: out}, nil
	},
	"flat": func(i *Interp, recv *Array, args []Value) (Value, error) {
		out := &Array{}
		for _, e := range recv.Elements {
			if arr, ok := e.(*Array); ok {
				out.Elements = append(out.Elements, arr.Elements...)
			} else {
				out.Elements = append(out.Elements, e)
			}
		}
		return out, nil
	},
}

func sliceRange(n int, args []Value) (int, int) {
	start, end := 0, n
	if len(args) > 0 {
		start = clampIndex(int(mustFloat(args[0])), n)
	}
	if len(args) > 1 {
		end = clampIndex(int(mustFloat(args[1])), n)
	}
	if end < start {
		end = start
	}
	return start, end
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		idx += n
	}
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

func mustFloat(v Value) float64 {
	f, _ := v.(float64)
	return f
}

func sortArray(i *Interp, recv *Array, args []Value) {
	elems := recv.Elements
	var cmp func(a, b Value) bool
	if len(args) > 0 {
		cb := args[0]
		cmp = func(a, b Value) bool {
			v, err := i.Call(cb, []Value{a, b})
			if err != nil {
				return false
			}
			return mustFloat(v) < 0
		}
	} else {
		cmp = func(a, b Value) bool { return ToDisplayString(a) < ToDisplayString(b) }
	}
	// insertion sort: stable, avoids pulling in sort.Slice's interface churn
	// for what are always small config-generation arrays.
	for idx := 1; idx < len(elems); idx++ {
		j := idx
		for j > 0 && cmp(elems[j], elems[j-1]) {
			elems[j], elems[j-1] = elems[j-1], elems[j]
			j--
		}
	}
}

var objectMethods = map[string]objectNativeMethod{
	"keys": func(i *Interp, recv *Object, args []Value) (Value, error) {
		out := &Array{}
		for _, k := range recv.Keys() {
			out.Elements = append(out.Elements, k)
		}
		return out, nil
	},
	"values": func(i *Interp, recv *Object, args []Value) (Value, error) {
		out := &Array{}
		for _, k := range recv.Keys() {
			v, _ := recv.Get(k)
			out.Elements = append(out.Elements, v)
		}
		return out, nil
	},
	"entries": func(i *Interp, recv *Object, args []Value) (Value, error) {
		out := &Array{}
		for _, k := range recv.Keys() {
			v, _ := recv.Get(k)
			out.Elements = append(out.Elements, &Array{Elements: []Value{k, v}})
		}
		return out, nil
	},
	"hasOwnProperty": func(i *Interp, recv *Object, args []Value) (Value, error) {
		if len(args) == 0 {
			return false, nil
		}
		_, ok := recv.Get(ToDisplayString(args[0]))
		return ok, nil
	},
}

var stringMethods = map[string]stringNativeMethod{
	"toUpperCase": func(i *Interp, recv string, args []Value) (Value, error) { return strings.ToUpper(recv), nil },
	"toLowerCase": func(i *Interp, recv string, args []Value) (Value, error) { return strings.ToLower(recv), nil },
	"trim":        func(i *Interp, recv string, args []Value) (Value, error) { return strings.TrimSpace(recv), nil },
	"split": func(i *Interp, recv string, args []Value) (Value, error) {
		sep := ""
		if len(args) > 0 {
			sep = ToDisplayString(args[0])
		}
		var parts []string
		if sep == "" {
			for _, r := range recv {
				parts = append(parts, string(r))
			}
		} else {
			parts = strings.Split(recv, sep)
		}
		out := &Array{}
		for _, p := range parts {
			out.Elements = append(out.Elements, p)
		}
		return out, nil
	},
	"includes": func(i *Interp, recv string, args []Value) (Value, error) {
		if len(args) == 0 {
			return false, nil
		}
		return strings.Contains(recv, ToDisplayString(args[0])), nil
	},
	"startsWith": func(i *Interp, recv string, args []Value) (Value, error) {
		if len(args) == 0 {
			return false, nil
		}
		return strings.HasPrefix(recv, ToDisplayString(args[0])), nil
	},
	"endsWith": func(i *Interp, recv string, args []Value) (Value, error) {
		if len(args) == 0 {
			return false, nil
		}
		return strings.HasSuffix(recv, ToDisplayString(args[0])), nil
	},
	"replace": func(i *Interp, recv string, args []Value) (Value, error) {
		if len(args) < 2 {
			return recv, nil
		}
		return strings.Replace(recv, ToDisplayString(args[0]), ToDisplayString(args[1]), 1), nil
	},
	"replaceAll": func(i *Interp, recv string, args []Value) (Value, error) {
		if len(args) < 2 {
			return recv, nil
		}
		return strings.ReplaceAll(recv, ToDisplayString(args[0]), ToDisplayString(args[1])), nil
	},
	"slice": func(i *Interp, recv string, args []Value) (Value, error) {
		runes := []rune(recv)
		start, end := sliceRange(len(runes), args)
		return string(runes[start:end]), nil
	},
	"padStart": func(i *Interp, recv string, args []Value) (Value, error) {
		return padString(recv, args, true), nil
	},
	"padEnd": func(i *Interp, recv string, args []Value) (Value, error) {
		return padString(recv, args, false), nil
	},
	"concat": func(i *Interp, recv string, args []Value) (Value, error) {
		out := recv
		for _, a := range args {
			out += ToDisplayString(a)
		}
		return out, nil
	},
}

func padString(s string, args []Value, start bool) string {
	if len(args) == 0 {
		return s
	}
	targetLen := int(mustFloat(args[0]))
	pad := " "
	if len(args) > 1 {
		pad = ToDisplayString(args[1])
	}
	if pad == "" || len(s) >= targetLen {
		return s
	}
	var sb strings.Builder
	for sb.Len() < targetLen-len(s) {
		sb.WriteString(pad)
	}
	padding := sb.String()[:targetLen-len(s)]
	if start {
		return padding + s
	}
	return s + padding
}
