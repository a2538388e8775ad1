// Package scripthost owns the lifecycle of one sandboxed script
// execution: it wires a fresh jsengine.Interp to a containment-checked
// resolver.Resolver and a hostops.Ops logger, installs the prelude, and
// wires the transpile/YAML injection points jsengine itself never
// imports directly.
package scripthost

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"senc/internal/hostops"
	"senc/internal/jsengine"
	"senc/internal/pathpolicy"
	"senc/internal/prelude"
	"senc/internal/resolver"
	"senc/internal/transpile"
)

var wireHooksOnce sync.Once

// wireHooks assigns jsengine's package-level injection points exactly
// once per process. It must run before any Interp evaluates a .ts module
// or calls senc.import_yaml; New does this for every caller so nothing
// downstream has to remember to.
func wireHooks() {
	wireHooksOnce.Do(func() {
		jsengine.StripTypesFunc = transpile.Strip
		jsengine.ParseYAMLFunc = parseYAML
	})
}

// Host is one isolated script engine: one Interp, one Resolver rooted at
// the same project, one Ops logger tagged with the entrypoint it serves.
// Per SPEC_FULL, each entrypoint gets its own Host so a script can never
// observe state left behind by another entrypoint's run.
type Host struct {
	Interp   *jsengine.Interp
	Resolver *resolver.Resolver
	Ops      *hostops.Ops
	Policy   *pathpolicy.Policy
}

// New builds a Host rooted at projectRoot, logging through logger tagged
// with entrypoint. fs lets callers substitute an in-memory filesystem in
// tests; production callers pass afero.NewOsFs().
func New(fs afero.Fs, projectRoot, entrypoint string, logger *log.Logger) (*Host, error) {
	wireHooks()

	policy, err := pathpolicy.New(fs, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("building path policy: %w", err)
	}
	res := resolver.New(fs, policy)
	ops := hostops.New(logger, entrypoint)
	interp := jsengine.NewInterp(projectRoot, res, ops)
	prelude.Install(interp)

	return &Host{Interp: interp, Resolver: res, Ops: ops, Policy: policy}, nil
}

// Run executes entrypointPath's exported main and returns whatever value
// (already Promise-unwrapped) it produced.
func (h *Host) Run(entrypointPath string) (jsengine.Value, error) {
	if err := h.Policy.AssertContained(entrypointPath); err != nil {
		return nil, err
	}
	return h.Interp.RunEntrypoint(entrypointPath)
}
