package jsengine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func (i *Interp) eval(env *Env, e Expr) (Value, error) {
	switch n := e.(type) {
	case *NumberLit:
		return n.Value, nil
	case *StringLit:
		return n.Value, nil
	case *BoolLit:
		return n.Value, nil
	case *NullLit:
		return TheNull, nil
	case *UndefinedLit:
		return nil, nil
	case *TemplateLit:
		return i.evalTemplate(env, n)
	case *Identifier:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, &ScriptError{Kind: ReferenceError, Line: n.Line, Column: n.Col, Message: fmt.Sprintf("%s is not defined", n.Name)}
		}
		return v, nil
	case *ArrayLit:
		return i.evalArrayLit(env, n)
	case *ObjectLit:
		return i.evalObjectLit(env, n)
	case *FunctionLit:
		return i.makeFunction(n, env), nil
	case *UnaryExpr:
		return i.evalUnary(env, n)
	case *BinaryExpr:
		return i.evalBinary(env, n)
	case *LogicalExpr:
		return i.evalLogical(env, n)
	case *ConditionalExpr:
		cond, err := i.eval(env, n.Cond)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return i.eval(env, n.Then)
		}
		return i.eval(env, n.Else)
	case *AssignExpr:
		return i.evalAssign(env, n)
	case *CallExpr:
		return i.evalCall(env, n)
	case *NewExpr:
		return i.evalNew(env, n)
	case *MemberExpr:
		v, _, err := i.evalMember(env, n)
		return v, err
	case *AwaitExpr:
		v, err := i.eval(env, n.Operand)
		if err != nil {
			return nil, err
		}
		return i.resolveAwaitable(v)
	case *valueLit:
		return n.v, nil
	default:
		return nil, fmt.Errorf("unsupported expression %T", n)
	}
}

func (i *Interp) evalTemplate(env *Env, n *TemplateLit) (Value, error) {
	var sb strings.Builder
	for idx, part := range n.Parts {
		sb.WriteString(part)
		if idx < len(n.Exprs) {
			v, err := i.eval(env, n.Exprs[idx])
			if err != nil {
				return nil, err
			}
			sb.WriteString(ToDisplayString(v))
		}
	}
	return sb.String(), nil
}

func (i *Interp) evalArrayLit(env *Env, n *ArrayLit) (Value, error) {
	arr := &Array{}
	for idx, el := range n.Elements {
		v, err := i.eval(env, el)
		if err != nil {
			return nil, err
		}
		if idx < len(n.Spread) && n.Spread[idx] {
			src, ok := v.(*Array)
			if !ok {
				return nil, &ScriptError{Kind: TypeErrorKind, Message: "spread target is not an array"}
			}
			arr.Elements = append(arr.Elements, src.Elements...)
			continue
		}
		arr.Elements = append(arr.Elements, v)
	}
	return arr, nil
}

func (i *Interp) evalObjectLit(env *Env, n *ObjectLit) (Value, error) {
	obj := NewObject()
	for _, p := range n.Props {
		if p.Spread {
			v, err := i.eval(env, p.Value)
			if err != nil {
				return nil, err
			}
			src, ok := v.(*Object)
			if !ok {
				return nil, &ScriptError{Kind: TypeErrorKind, Message: "spread target is not an object"}
			}
			for _, k := range src.Keys() {
				val, _ := src.Get(k)
				obj.Set(k, val)
			}
			continue
		}
		key := p.Key
		if p.Computed {
			kv, err := i.eval(env, p.KeyExpr)
			if err != nil {
				return nil, err
			}
			key = ToDisplayString(kv)
		}
		v, err := i.eval(env, p.Value)
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	return obj, nil
}

func (i *Interp) evalUnary(env *Env, n *UnaryExpr) (Value, error) {
	v, err := i.eval(env, n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "!":
		return !Truthy(v), nil
	case "-":
		f, err := toNumber(v, n.Line, n.Col)
		if err != nil {
			return nil, err
		}
		return -f, nil
	case "+":
		return toNumber(v, n.Line, n.Col)
	case "typeof":
		return TypeName(v), nil
	default:
		return nil, fmt.Errorf("unsupported unary operator %q", n.Operator)
	}
}

func toNumber(v Value, line, col int) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case nil:
		return math.NaN(), nil
	case Null:
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN(), nil
		}
		return f, nil
	default:
		return 0, &ScriptError{Kind: TypeErrorKind, Line: line, Column: col, Message: fmt.Sprintf("cannot convert %s to number", TypeName(v))}
	}
}

func (i *Interp) evalBinary(env *Env, n *BinaryExpr) (Value, error) {
	l, err := i.eval(env, n.Left)
	if err != nil {
		return nil, err
	}
	r, err := i.eval(env, n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "+":
		ls, lok := l.(string)
		rs, rok := r.(string)
		if lok || rok {
			if !lok {
				ls = ToDisplayString(l)
			}
			if !rok {
				rs = ToDisplayString(r)
			}
			return ls + rs, nil
		}
		lf, err := toNumber(l, n.Line, n.Col)
		if err != nil {
			return nil, err
		}
		rf, err := toNumber(r, n.Line, n.Col)
		if err != nil {
			return nil, err
		}
		return lf + rf, nil
	case "-", "*", "/", "%":
		lf, err := toNumber(l, n.Line, n.Col)
		if err != nil {
			return nil, err
		}
		rf, err := toNumber(r, n.Line, n.Col)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			return lf / rf, nil
		case "%":
			return math.Mod(lf, rf), nil
		}
	case "==", "===":
		return looseOrStrictEqual(l, r), nil
	case "!=", "!==":
		return !looseOrStrictEqual(l, r), nil
	case "<", "<=", ">", ">=":
		return compareValues(l, r, n.Operator, n.Line, n.Col)
	case "in":
		obj, ok := r.(*Object)
		if !ok {
			return nil, &ScriptError{Kind: TypeErrorKind, Line: n.Line, Column: n.Col, Message: "right-hand side of 'in' is not an object"}
		}
		_, found := obj.Get(ToDisplayString(l))
		return found, nil
	}
	return nil, fmt.Errorf("unsupported binary operator %q", n.Operator)
}

func looseOrStrictEqual(l, r Value) bool {
	if l == nil && r == nil {
		return true
	}
	switch lv := l.(type) {
	case float64:
		rv, ok := r.(float64)
		return ok && lv == rv
	case string:
		rv, ok := r.(string)
		return ok && lv == rv
	case bool:
		rv, ok := r.(bool)
		return ok && lv == rv
	case Null:
		_, ok := r.(Null)
		return ok
	default:
		return l == r
	}
}

func compareValues(l, r Value, op string, line, col int) (Value, error) {
	lf, err := toNumber(l, line, col)
	if err != nil {
		return nil, err
	}
	rf, err := toNumber(r, line, col)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	case ">=":
		return lf >= rf, nil
	}
	return nil, fmt.Errorf("unsupported comparison operator %q", op)
}

func (i *Interp) evalLogical(env *Env, n *LogicalExpr) (Value, error) {
	l, err := i.eval(env, n.Left)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "&&":
		if !Truthy(l) {
			return l, nil
		}
		return i.eval(env, n.Right)
	case "||":
		if Truthy(l) {
			return l, nil
		}
		return i.eval(env, n.Right)
	case "??":
		if l != nil {
			if _, isNull := l.(Null); !isNull {
				return l, nil
			}
		}
		return i.eval(env, n.Right)
	default:
		return nil, fmt.Errorf("unsupported logical operator %q", n.Operator)
	}
}

func (i *Interp) evalAssign(env *Env, n *AssignExpr) (Value, error) {
	v, err := i.eval(env, n.Value)
	if err != nil {
		return nil, err
	}
	if n.Operator != "=" {
		cur, err := i.eval(env, n.Target)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "+=":
			v, err = i.evalBinary(env, &BinaryExpr{Operator: "+", Left: litValue(cur), Right: litValue(v)})
		case "-=":
			v, err = i.evalBinary(env, &BinaryExpr{Operator: "-", Left: litValue(cur), Right: litValue(v)})
		}
		if err != nil {
			return nil, err
		}
	}
	switch t := n.Target.(type) {
	case *Identifier:
		if !env.Assign(t.Name, v) {
			return nil, &ScriptError{Kind: TypeErrorKind, Line: t.Line, Column: t.Col, Message: fmt.Sprintf("assignment to constant or undeclared variable %q", t.Name)}
		}
	case *MemberExpr:
		_, setter, err := i.evalMember(env, t)
		if err != nil {
			return nil, err
		}
		if err := setter(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid assignment target %T", t)
	}
	return v, nil
}

// litValue wraps an already-evaluated Value as a pseudo-expression so
// evalBinary's eval(env, expr) calls stay uniform for compound assignment.
type valueLit struct {
	pos
	v Value
}

func (*valueLit) exprNode() {}

func litValue(v Value) Expr { return &valueLit{v: v} }

type memberSetter func(Value) error

func (i *Interp) evalMember(env *Env, n *MemberExpr) (Value, memberSetter, error) {
	obj, err := i.eval(env, n.Object)
	if err != nil {
		return nil, nil, err
	}
	if n.Optional {
		if obj == nil {
			return nil, func(Value) error { return nil }, nil
		}
		if _, isNull := obj.(Null); isNull {
			return nil, func(Value) error { return nil }, nil
		}
	}
	var key string
	if n.Computed {
		kv, err := i.eval(env, n.Index)
		if err != nil {
			return nil, nil, err
		}
		key = ToDisplayString(kv)
	} else {
		key = n.Property
	}
	switch o := obj.(type) {
	case *Object:
		v, _ := o.Get(key)
		setter := func(nv Value) error { o.Set(key, nv); return nil }
		if key == "length" {
			return float64(len(o.Keys())), setter, nil
		}
		if nf, ok := objectMethod(key); ok {
			return &NativeFunction{Name: key, Fn: func(ip *Interp, args []Value) (Value, error) { return nf(ip, o, args) }}, setter, nil
		}
		return v, setter, nil
	case *Array:
		if key == "length" {
			setter := func(nv Value) error { return &ScriptError{Kind: TypeErrorKind, Message: "cannot assign to array length"} }
			return float64(len(o.Elements)), setter, nil
		}
		if idx, ok := arrayIndex(key); ok {
			setter := func(nv Value) error {
				for idx >= len(o.Elements) {
					o.Elements = append(o.Elements, nil)
				}
				o.Elements[idx] = nv
				return nil
			}
			if idx < 0 || idx >= len(o.Elements) {
				return nil, setter, nil
			}
			return o.Elements[idx], setter, nil
		}
		if nf, ok := arrayMethod(key); ok {
			return &NativeFunction{Name: key, Fn: func(ip *Interp, args []Value) (Value, error) { return nf(ip, o, args) }}, noSetter, nil
		}
		return nil, noSetter, nil
	case string:
		if key == "length" {
			return float64(len(o)), noSetter, nil
		}
		if idx, ok := arrayIndex(key); ok {
			rs := []rune(o)
			if idx < 0 || idx >= len(rs) {
				return nil, noSetter, nil
			}
			return string(rs[idx]), noSetter, nil
		}
		if nf, ok := stringMethod(key); ok {
			return &NativeFunction{Name: key, Fn: func(ip *Interp, args []Value) (Value, error) { return nf(ip, o, args) }}, noSetter, nil
		}
		return nil, noSetter, nil
	case nil:
		return nil, nil, &ScriptError{Kind: TypeErrorKind, Line: n.Line, Column: n.Col, Message: fmt.Sprintf("cannot read property %q of undefined", key)}
	default:
		return nil, nil, &ScriptError{Kind: TypeErrorKind, Line: n.Line, Column: n.Col, Message: fmt.Sprintf("cannot read property %q of %s", key, TypeName(obj))}
	}
}

func noSetter(Value) error {
	return &ScriptError{Kind: TypeErrorKind, Message: "value is not assignable"}
}

func arrayIndex(key string) (int, bool) {
	n := 0
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if key == "" {
		return 0, false
	}
	return n, true
}

func (i *Interp) evalCall(env *Env, n *CallExpr) (Value, error) {
	var callee Value
	var err error
	if m, ok := n.Callee.(*MemberExpr); ok {
		callee, _, err = i.evalMember(env, m)
		if err != nil {
			return nil, err
		}
		if n.Optional && callee == nil {
			return nil, nil
		}
	} else {
		callee, err = i.eval(env, n.Callee)
		if err != nil {
			return nil, err
		}
	}
	args, err := i.evalArgs(env, n.Args, n.Spread)
	if err != nil {
		return nil, err
	}
	return i.Call(callee, args)
}

func (i *Interp) evalArgs(env *Env, exprs []Expr, spread []bool) ([]Value, error) {
	var args []Value
	for idx, a := range exprs {
		v, err := i.eval(env, a)
		if err != nil {
			return nil, err
		}
		if idx < len(spread) && spread[idx] {
			arr, ok := v.(*Array)
			if !ok {
				return nil, &ScriptError{Kind: TypeErrorKind, Message: "spread target is not an array"}
			}
			args = append(args, arr.Elements...)
			continue
		}
		args = append(args, v)
	}
	return args, nil
}

func (i *Interp) evalNew(env *Env, n *NewExpr) (Value, error) {
	callee, err := i.eval(env, n.Callee)
	if err != nil {
		return nil, err
	}
	args, err := i.evalArgs(env, n.Args, nil)
	if err != nil {
		return nil, err
	}
	nf, ok := callee.(*NativeFunction)
	if !ok {
		return nil, &ScriptError{Kind: TypeErrorKind, Message: "target of new is not a constructor"}
	}
	return nf.Fn(i, args)
}

// ParseJSON decodes arbitrary JSON text into the engine's Value model,
// preserving object key order as encoding/json's Decoder reports it.
func ParseJSON(data string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	return decodeJSONValue(dec)
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return jsonTokenToValue(dec, tok)
}

func jsonTokenToValue(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := &Array{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Elements = append(arr.Elements, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case string:
		return t, nil
	case bool:
		return t, nil
	case nil:
		return TheNull, nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
