// Package pathpolicy implements the containment invariant every resolved
// filesystem path in the compiler must satisfy: nothing outside the
// project root, however a specifier or output path is phrased, may be
// read from or written to.
package pathpolicy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Policy canonicalizes paths against a project root and enforces that they
// stay under it. It holds an afero.Fs so the containment check and the
// eventual read/write both go through the same filesystem seam, which is
// what makes the driver testable against an in-memory tree.
type Policy struct {
	Fs   afero.Fs
	Root string
}

// New canonicalizes root itself before accepting it, so every later
// Canonicalize call can assume Root is already absolute and clean.
func New(fs afero.Fs, root string) (*Policy, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing project root %q: %w", root, err)
	}
	return &Policy{Fs: fs, Root: filepath.Clean(abs)}, nil
}

// Canonicalize resolves path (absolute, or relative to base if given,
// otherwise relative to Root) to a clean absolute path, without yet
// checking containment.
func (p *Policy) Canonicalize(base, path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if base == "" {
		base = p.Root
	}
	return filepath.Clean(filepath.Join(base, path)), nil
}

// AssertContained fails closed: a path equal to Root is allowed, a path
// anywhere outside Root — including one that only textually shares Root as
// a prefix, like "/proj-other" against root "/proj" — is a fatal error.
func (p *Policy) AssertContained(path string) error {
	clean := filepath.Clean(path)
	rel, err := filepath.Rel(p.Root, clean)
	if err != nil {
		return &ContainmentError{Path: path, Root: p.Root}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &ContainmentError{Path: path, Root: p.Root}
	}
	return nil
}

// ContainmentError is fatal and, per the engine's import semantics, is not
// catchable by a script's try/catch: it always propagates out of the host.
type ContainmentError struct {
	Path string
	Root string
}

func (e *ContainmentError) Error() string {
	return fmt.Sprintf("path %q escapes project root %q", e.Path, e.Root)
}

// CanonicalizeAndAssert is the one call sites should use: it combines
// resolution and the containment check so nothing can accidentally skip
// the latter.
func (p *Policy) CanonicalizeAndAssert(base, path string) (string, error) {
	abs, err := p.Canonicalize(base, path)
	if err != nil {
		return "", err
	}
	if err := p.AssertContained(abs); err != nil {
		return "", err
	}
	return abs, nil
}
