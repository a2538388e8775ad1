package jsengine

// StripTypesFunc and ParseYAMLFunc are injection points set by the
// scripthost package during wiring. jsengine itself has no import on
// transpile or a YAML library; it only knows it needs "TS source in, JS
// source out" and "YAML text in, Value out" at the two points a module
// kind requires them. scripthost.New assigns both, once per process,
// before it builds any Interp.
var (
	StripTypesFunc func(src string) (string, error)
	ParseYAMLFunc  func(data string) (Value, error)
)
