// Package resolver turns an import specifier written inside a sandboxed
// script into an absolute, containment-checked file path and tells the
// caller which kind of source sits there. It is the concrete
// jsengine.ModuleLoader used by package scripthost.
package resolver

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"senc/internal/jsengine"
	"senc/internal/pathpolicy"
)

// Manifest is the subset of a node_modules package manifest this resolver
// honors: only the "module" field selects an ESM entrypoint. "exports",
// "main", "browser", and conditional exports are intentionally ignored,
// matching the narrowed resolution policy a hermetic compiler needs
// instead of full Node resolution.
type Manifest struct {
	Module string `json:"module"`
}

// Resolver implements jsengine.ModuleLoader against a real or in-memory
// filesystem, rooted at a project directory that every resolved path must
// stay inside.
type Resolver struct {
	Fs     afero.Fs
	Policy *pathpolicy.Policy
}

func New(fs afero.Fs, policy *pathpolicy.Policy) *Resolver {
	return &Resolver{Fs: fs, Policy: policy}
}

var _ jsengine.ModuleLoader = (*Resolver)(nil)

// Resolve dispatches on specifier shape: "./"/"../" is relative to the
// importing file, a leading "/" is project-root-relative (never
// filesystem-root-relative — containment makes that meaningless anyway),
// and anything else is a bare specifier resolved by walking node_modules
// directories upward from the importing file.
func (r *Resolver) Resolve(fromFile, specifier string, hasJSONAttribute bool) (jsengine.ResolvedModule, error) {
	switch {
	case strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../"):
		dir := filepath.Dir(fromFile)
		return r.resolveFileSpecifier(filepath.Join(dir, specifier), hasJSONAttribute)
	case strings.HasPrefix(specifier, "/"):
		return r.resolveFileSpecifier(filepath.Join(r.Policy.Root, specifier), hasJSONAttribute)
	default:
		return r.resolveBareSpecifier(fromFile, specifier, hasJSONAttribute)
	}
}

func (r *Resolver) ReadFile(path string) (string, error) {
	if err := r.Policy.AssertContained(path); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(r.Fs, path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// resolveFileSpecifier probes a relative or absolute-by-convention path
// for the file it names, or — if the path is a directory, or has no
// extension and no file matches exactly — for an index module inside it.
func (r *Resolver) resolveFileSpecifier(path string, hasJSONAttribute bool) (jsengine.ResolvedModule, error) {
	if err := r.Policy.AssertContained(path); err != nil {
		return jsengine.ResolvedModule{}, err
	}
	if kind, ok := r.kindForExactPath(path); ok {
		if kind == jsengine.KindJSON && !hasJSONAttribute {
			return jsengine.ResolvedModule{}, &jsengine.ScriptError{Kind: jsengine.ImportError, Message: fmt.Sprintf("importing %q requires an import attribute of type \"json\"", path)}
		}
		return jsengine.ResolvedModule{Path: path, Kind: kind}, nil
	}
	for _, ext := range candidateExtensions {
		candidate := path + ext
		if ok, _ := afero.Exists(r.Fs, candidate); ok {
			return r.resolveFileSpecifier(candidate, hasJSONAttribute)
		}
	}
	for _, base := range []string{"index.ts", "index.js", "index.json", "index.yaml", "index.yml"} {
		candidate := filepath.Join(path, base)
		if ok, _ := afero.Exists(r.Fs, candidate); ok {
			return r.resolveFileSpecifier(candidate, hasJSONAttribute)
		}
	}
	return jsengine.ResolvedModule{}, &jsengine.ScriptError{Kind: jsengine.ImportError, Message: fmt.Sprintf("cannot resolve module at %q", path)}
}

var candidateExtensions = []string{".ts", ".js", ".json", ".yaml", ".yml"}

func (r *Resolver) kindForExactPath(path string) (jsengine.MediaKind, bool) {
	isDir, err := afero.DirExists(r.Fs, path)
	if err == nil && isDir {
		return 0, false
	}
	ok, _ := afero.Exists(r.Fs, path)
	if !ok {
		return 0, false
	}
	return kindForExt(path), true
}

func kindForExt(path string) jsengine.MediaKind {
	switch filepath.Ext(path) {
	case ".ts":
		return jsengine.KindTS
	case ".json":
		return jsengine.KindJSON
	case ".yaml", ".yml":
		return jsengine.KindYAML
	default:
		return jsengine.KindJS
	}
}

// resolveBareSpecifier walks node_modules directories from fromFile's
// directory up to the project root, the same upward-search shape every
// Node-compatible bare resolver uses, stopping at the project root rather
// than continuing past it into the real filesystem.
func (r *Resolver) resolveBareSpecifier(fromFile, specifier string, hasJSONAttribute bool) (jsengine.ResolvedModule, error) {
	pkgName, subpath := splitBareSpecifier(specifier)
	dir := filepath.Dir(fromFile)
	for {
		nm := filepath.Join(dir, "node_modules", pkgName)
		if ok, _ := afero.DirExists(r.Fs, nm); ok {
			entry, err := r.packageEntry(nm, subpath)
			if err != nil {
				return jsengine.ResolvedModule{}, err
			}
			return r.resolveFileSpecifier(entry, hasJSONAttribute)
		}
		if dir == r.Policy.Root || !strings.HasPrefix(dir, r.Policy.Root) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return jsengine.ResolvedModule{}, &jsengine.ScriptError{Kind: jsengine.ImportError, Message: fmt.Sprintf("cannot find package %q in any node_modules under the project root", pkgName)}
}

// splitBareSpecifier separates a package name (optionally @scope/name)
// from an optional "/subpath" tail.
func splitBareSpecifier(specifier string) (pkgName, subpath string) {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			pkgName = parts[0] + "/" + parts[1]
		}
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return pkgName, subpath
	}
	parts := strings.SplitN(specifier, "/", 2)
	pkgName = parts[0]
	if len(parts) == 2 {
		subpath = parts[1]
	}
	return pkgName, subpath
}

// packageEntry requires package.json's "module" field to be present,
// whether the specifier named a subpath or the bare package itself: a
// package without a usable module entry cannot be resolved at all, per
// the narrowed resolution policy (no main/exports/browser fallback).
func (r *Resolver) packageEntry(pkgDir, subpath string) (string, error) {
	manifestPath := filepath.Join(pkgDir, "package.json")
	data, err := afero.ReadFile(r.Fs, manifestPath)
	if err != nil {
		return "", &jsengine.ScriptError{Kind: jsengine.ImportError, Message: fmt.Sprintf("package-missing-module-entry: %q has no readable package.json", pkgDir)}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing %s: %w", manifestPath, err)
	}
	if m.Module == "" {
		return "", &jsengine.ScriptError{Kind: jsengine.ImportError, Message: fmt.Sprintf("package-missing-module-entry: %q has no \"module\" field", manifestPath)}
	}
	if subpath != "" {
		return filepath.Join(pkgDir, subpath), nil
	}
	return filepath.Join(pkgDir, m.Module), nil
}
