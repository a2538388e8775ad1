package jsengine

import (
	"fmt"
	"path/filepath"
	"sync"
)

// initBuiltinTables runs exactly once per process, before any Interp
// evaluates a line of script. The array/object/string method tables in
// builtins.go are plain package-level vars, already process-global and
// read-only by construction; this Once just makes that one-time-setup
// guarantee explicit at the call site that needs it, the same role
// init_v8() plays once per process in a real embedded-engine host.
var initBuiltinTables sync.Once

func ensureBuiltinTables() {
	initBuiltinTables.Do(func() {
		_ = arrayMethods
		_ = objectMethods
		_ = stringMethods
	})
}

// ThrownValue is the error carrying a user-level `throw`; try/catch is the
// only construct allowed to observe it, everything else propagates it.
type ThrownValue struct {
	Val Value
}

func (t *ThrownValue) Error() string { return ToDisplayString(t.Val) }

type signal int

const (
	sigNormal signal = iota
	sigBreak
	sigContinue
	sigReturn
)

type execResult struct {
	Sig   signal
	Value Value
}

var normalResult = execResult{Sig: sigNormal}

// Interp evaluates one module's AST against a lexical environment chain.
// A fresh Interp is created per script host, so each entrypoint gets an
// isolated engine; within that host, nested module
// evaluation reuses the same Interp so the module cache and globals are
// shared the way ES module graphs are shared within one program.
type Interp struct {
	Globals     *Env
	ProjectRoot string
	Loader      ModuleLoader
	Ops         HostOps

	// CurrentFile is the path of the module whose body is being evaluated,
	// or of the entrypoint while its main runs; prelude builtins like
	// senc.import_json read it to resolve a relative specifier. Functions
	// do not carry their own module path, so a function imported from
	// another module and called from main resolves against the entrypoint.
	CurrentFile string

	moduleCache map[string]*ModuleRecord
	loading     map[string]bool
}

func NewInterp(projectRoot string, loader ModuleLoader, ops HostOps) *Interp {
	ensureBuiltinTables()
	i := &Interp{
		Globals:     NewEnv(nil),
		ProjectRoot: projectRoot,
		Loader:      loader,
		Ops:         ops,
		moduleCache: make(map[string]*ModuleRecord),
		loading:     make(map[string]bool),
	}
	return i
}

// RunEntrypoint parses and evaluates the entrypoint file, then invokes its
// exported `main` with no arguments, unwrapping a returned Promise.
func (i *Interp) RunEntrypoint(path string) (Value, error) {
	rec, err := i.loadModule(path)
	if err != nil {
		return nil, err
	}
	mainFn, ok := rec.Exports["main"]
	if !ok {
		return nil, &ScriptError{Kind: ReferenceError, File: path, Message: "entrypoint does not export a function named main"}
	}
	prevFile := i.CurrentFile
	i.CurrentFile = path
	defer func() { i.CurrentFile = prevFile }()
	result, err := i.Call(mainFn, nil)
	if err != nil {
		return nil, err
	}
	return i.resolveAwaitable(result)
}

func (i *Interp) resolveAwaitable(v Value) (Value, error) {
	if p, ok := v.(*Promise); ok {
		if p.Rejected {
			return nil, &ThrownValue{Val: p.Value}
		}
		return p.Value, nil
	}
	return v, nil
}

// loadModuleByPath reads+evaluates path (already resolved to an absolute,
// policy checked file) exactly once per Interp, caching by canonical path so
// diamond imports share one module instance.
func (i *Interp) loadModuleByPath(path string, kind MediaKind) (*ModuleRecord, error) {
	if rec, ok := i.moduleCache[path]; ok {
		return rec, nil
	}
	if i.loading[path] {
		// Circular import: hand back the in-progress record so the
		// importer sees whatever has been exported so far, matching the
		// engine's documented partial-exports behavior for cycles.
		if rec, ok := i.moduleCache[path]; ok {
			return rec, nil
		}
		rec := &ModuleRecord{Exports: map[string]Value{}}
		i.moduleCache[path] = rec
		return rec, nil
	}
	i.loading[path] = true
	defer delete(i.loading, path)

	rec := &ModuleRecord{Exports: map[string]Value{}}
	i.moduleCache[path] = rec

	switch kind {
	case KindJSON:
		data, err := i.Loader.ReadFile(path)
		if err != nil {
			return nil, err
		}
		val, err := ParseJSON(data)
		if err != nil {
			return nil, &ScriptError{Kind: SyntaxError, File: path, Message: err.Error()}
		}
		rec.Default = val
		rec.Loaded = true
		return rec, nil
	case KindYAML:
		data, err := i.Loader.ReadFile(path)
		if err != nil {
			return nil, err
		}
		val, err := ParseYAMLFunc(data)
		if err != nil {
			return nil, &ScriptError{Kind: SyntaxError, File: path, Message: err.Error()}
		}
		rec.Default = val
		rec.Loaded = true
		return rec, nil
	default:
		src, err := i.Loader.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if kind == KindTS {
			src, err = StripTypesFunc(src)
			if err != nil {
				return nil, &ScriptError{Kind: SyntaxError, File: path, Message: err.Error()}
			}
		}
		if err := i.evalModuleSource(path, src, rec); err != nil {
			return nil, err
		}
		rec.Loaded = true
		return rec, nil
	}
}

func (i *Interp) loadModule(path string) (*ModuleRecord, error) {
	kind := KindJS
	if filepath.Ext(path) == ".ts" {
		kind = KindTS
	}
	return i.loadModuleByPath(path, kind)
}

func (i *Interp) evalModuleSource(path, src string, rec *ModuleRecord) error {
	sc := NewScanner(src, path)
	tokens, err := sc.ScanTokens()
	if err != nil {
		return err
	}
	p := NewParser(tokens, path)
	stmts, err := p.ParseProgram()
	if err != nil {
		return err
	}

	prevFile := i.CurrentFile
	i.CurrentFile = path
	defer func() { i.CurrentFile = prevFile }()

	env := NewEnv(i.Globals)
	env.Define("__projectroot", i.ProjectRoot, true)
	env.Define("__dirname", filepath.Dir(path), true)
	env.Define("__filename", path, true)

	// First pass: handle imports and hoist function declarations so
	// forward references within the module body resolve.
	for _, s := range stmts {
		if imp, ok := s.(*ImportDecl); ok {
			if err := i.bindImport(path, env, imp); err != nil {
				return err
			}
		}
	}
	for _, s := range stmts {
		if fd, ok := s.(*FunctionDecl); ok {
			env.Define(fd.Fn.Name, i.makeFunction(fd.Fn, env), false)
		}
	}

	for _, s := range stmts {
		switch n := s.(type) {
		case *ImportDecl, *FunctionDecl:
			continue
		case *ExportDecl:
			if err := i.execExportDecl(env, n, rec); err != nil {
				return err
			}
		default:
			res, err := i.exec(env, s)
			if err != nil {
				return err
			}
			if res.Sig == sigReturn {
				return &ScriptError{Kind: SyntaxError, File: path, Message: "return outside function"}
			}
		}
	}
	return nil
}

func (i *Interp) execExportDecl(env *Env, n *ExportDecl, rec *ModuleRecord) error {
	switch {
	case n.Fn != nil:
		fn := i.makeFunction(n.Fn.Fn, env)
		env.Define(n.Fn.Fn.Name, fn, false)
		rec.Exports[n.Fn.Fn.Name] = fn
	case n.Var != nil:
		if _, err := i.exec(env, n.Var); err != nil {
			return err
		}
		v, _ := env.Get(n.Var.Name)
		rec.Exports[n.Var.Name] = v
	case n.Default != nil:
		v, err := i.eval(env, n.Default)
		if err != nil {
			return err
		}
		rec.Default = v
	}
	return nil
}

func (i *Interp) bindImport(fromFile string, env *Env, imp *ImportDecl) error {
	hasJSON := imp.Attribute == "json"
	resolved, err := i.Loader.Resolve(fromFile, imp.Path, hasJSON)
	if err != nil {
		return err
	}
	rec, err := i.loadModuleByPath(resolved.Path, resolved.Kind)
	if err != nil {
		return err
	}
	if imp.Namespace != "" {
		ns := NewObject()
		for k, v := range rec.Exports {
			ns.Set(k, v)
		}
		env.Define(imp.Namespace, ns, true)
	}
	if imp.Default != "" {
		def := rec.Default
		if def == nil {
			if v, ok := rec.Exports["default"]; ok {
				def = v
			}
		}
		env.Define(imp.Default, def, true)
	}
	for local, imported := range imp.Named {
		v, ok := rec.Exports[imported]
		// A module still being evaluated (an import cycle) has not exported
		// everything yet; its missing names bind as undefined.
		if !ok && rec.Loaded {
			return &ScriptError{Kind: ReferenceError, File: fromFile, Message: fmt.Sprintf("module %q has no export %q", imp.Path, imported)}
		}
		env.Define(local, v, true)
	}
	return nil
}

// --- statement execution ---

func (i *Interp) exec(env *Env, s Stmt) (execResult, error) {
	switch n := s.(type) {
	case *VarDecl:
		return i.execVarDecl(env, n)
	case *ExprStmt:
		_, err := i.eval(env, n.X)
		return normalResult, err
	case *BlockStmt:
		return i.execBlock(NewEnv(env), n.Stmts)
	case *IfStmt:
		cond, err := i.eval(env, n.Cond)
		if err != nil {
			return normalResult, err
		}
		if Truthy(cond) {
			return i.exec(env, n.Then)
		} else if n.Else != nil {
			return i.exec(env, n.Else)
		}
		return normalResult, nil
	case *WhileStmt:
		for {
			cond, err := i.eval(env, n.Cond)
			if err != nil {
				return normalResult, err
			}
			if !Truthy(cond) {
				return normalResult, nil
			}
			res, err := i.exec(env, n.Body)
			if err != nil {
				return normalResult, err
			}
			if res.Sig == sigBreak {
				return normalResult, nil
			}
			if res.Sig == sigReturn {
				return res, nil
			}
		}
	case *ForStmt:
		return i.execFor(env, n)
	case *ForOfStmt:
		return i.execForOf(env, n)
	case *ReturnStmt:
		var v Value
		if n.Value != nil {
			var err error
			v, err = i.eval(env, n.Value)
			if err != nil {
				return normalResult, err
			}
		}
		return execResult{Sig: sigReturn, Value: v}, nil
	case *BreakStmt:
		return execResult{Sig: sigBreak}, nil
	case *ContinueStmt:
		return execResult{Sig: sigContinue}, nil
	case *ThrowStmt:
		v, err := i.eval(env, n.Value)
		if err != nil {
			return normalResult, err
		}
		return normalResult, &ThrownValue{Val: v}
	case *TryStmt:
		return i.execTry(env, n)
	case *FunctionDecl:
		env.Define(n.Fn.Name, i.makeFunction(n.Fn, env), false)
		return normalResult, nil
	default:
		return normalResult, fmt.Errorf("unsupported statement %T", n)
	}
}

func (i *Interp) execVarDecl(env *Env, n *VarDecl) (execResult, error) {
	var v Value
	if n.Init != nil {
		var err error
		v, err = i.eval(env, n.Init)
		if err != nil {
			return normalResult, err
		}
	}
	constant := n.Kind == "const"
	if len(n.Destructure) > 0 {
		obj, _ := v.(*Object)
		for _, name := range n.Destructure {
			var pv Value
			if obj != nil {
				pv, _ = obj.Get(name)
			}
			env.Define(name, pv, constant)
		}
		return normalResult, nil
	}
	env.Define(n.Name, v, constant)
	return normalResult, nil
}

func (i *Interp) execBlock(env *Env, stmts []Stmt) (execResult, error) {
	for _, s := range stmts {
		res, err := i.exec(env, s)
		if err != nil {
			return normalResult, err
		}
		if res.Sig != sigNormal {
			return res, nil
		}
	}
	return normalResult, nil
}

func (i *Interp) execFor(env *Env, n *ForStmt) (execResult, error) {
	loopEnv := NewEnv(env)
	if n.Init != nil {
		if _, err := i.exec(loopEnv, n.Init); err != nil {
			return normalResult, err
		}
	}
	for {
		if n.Cond != nil {
			cond, err := i.eval(loopEnv, n.Cond)
			if err != nil {
				return normalResult, err
			}
			if !Truthy(cond) {
				return normalResult, nil
			}
		}
		res, err := i.exec(loopEnv, n.Body)
		if err != nil {
			return normalResult, err
		}
		if res.Sig == sigBreak {
			return normalResult, nil
		}
		if res.Sig == sigReturn {
			return res, nil
		}
		if n.Post != nil {
			if _, err := i.exec(loopEnv, n.Post); err != nil {
				return normalResult, err
			}
		}
	}
}

func (i *Interp) execForOf(env *Env, n *ForOfStmt) (execResult, error) {
	iterable, err := i.eval(env, n.Iterable)
	if err != nil {
		return normalResult, err
	}
	items, err := iterate(iterable)
	if err != nil {
		return normalResult, err
	}
	for _, item := range items {
		iterEnv := NewEnv(env)
		iterEnv.Define(n.VarName, item, n.Kind == "const")
		res, err := i.exec(iterEnv, n.Body)
		if err != nil {
			return normalResult, err
		}
		if res.Sig == sigBreak {
			return normalResult, nil
		}
		if res.Sig == sigReturn {
			return res, nil
		}
	}
	return normalResult, nil
}

func iterate(v Value) ([]Value, error) {
	switch x := v.(type) {
	case *Array:
		return x.Elements, nil
	case *Object:
		out := make([]Value, 0, len(x.Keys()))
		for _, k := range x.Keys() {
			out = append(out, k)
		}
		return out, nil
	case string:
		out := make([]Value, 0, len(x))
		for _, r := range x {
			out = append(out, string(r))
		}
		return out, nil
	default:
		return nil, &ScriptError{Kind: TypeErrorKind, Message: fmt.Sprintf("%s is not iterable", TypeName(v))}
	}
}

func (i *Interp) execTry(env *Env, n *TryStmt) (execResult, error) {
	res, err := i.execBlock(NewEnv(env), n.Block.Stmts)
	if err != nil {
		if tv, ok := err.(*ThrownValue); ok && n.CatchBlock != nil {
			catchEnv := NewEnv(env)
			if n.CatchName != "" {
				catchEnv.Define(n.CatchName, tv.Val, false)
			}
			res, err = i.execBlock(catchEnv, n.CatchBlock.Stmts)
		}
	}
	if n.Finally != nil {
		fres, ferr := i.execBlock(NewEnv(env), n.Finally.Stmts)
		if ferr != nil {
			return fres, ferr
		}
		if fres.Sig != sigNormal {
			return fres, nil
		}
	}
	return res, err
}

// --- function calls ---

func (i *Interp) makeFunction(lit *FunctionLit, closure *Env) *Function {
	return &Function{Name: lit.Name, Params: lit.Params, Body: lit.Body, ExprBody: lit.ExprBody, Closure: closure, IsAsync: lit.IsAsync, IsArrow: lit.IsArrow}
}

func (i *Interp) Call(callee Value, args []Value) (Value, error) {
	switch fn := callee.(type) {
	case *NativeFunction:
		return fn.Fn(i, args)
	case *Function:
		return i.callFunction(fn, args)
	default:
		return nil, &ScriptError{Kind: TypeErrorKind, Message: fmt.Sprintf("%s is not a function", TypeName(callee))}
	}
}

func (i *Interp) callFunction(fn *Function, args []Value) (Value, error) {
	env := NewEnv(fn.Closure)
	bindParams(env, fn.Params, args)

	var result Value
	var err error
	if fn.ExprBody != nil {
		result, err = i.eval(env, fn.ExprBody)
	} else {
		var res execResult
		res, err = i.execBlock(env, fn.Body)
		if err == nil && res.Sig == sigReturn {
			result = res.Value
		}
	}
	if fn.IsAsync {
		if err != nil {
			if tv, ok := err.(*ThrownValue); ok {
				return RejectedPromise(tv.Val), nil
			}
			return nil, err
		}
		return ResolvedPromise(result), nil
	}
	return result, err
}

func bindParams(env *Env, params []Param, args []Value) {
	for idx, p := range params {
		if p.Rest {
			rest := &Array{}
			if idx < len(args) {
				rest.Elements = append(rest.Elements, args[idx:]...)
			}
			env.Define(p.Name, rest, false)
			return
		}
		var v Value
		if idx < len(args) {
			v = args[idx]
		}
		env.Define(p.Name, v, false)
	}
}
