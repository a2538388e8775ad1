// Package driver is the project-level entrypoint: it discovers every
// *.sen.ts/*.sen.js file under the project root, runs each through its
// own script host in parallel, plans and renders its output, and
// aggregates every entrypoint's errors plus any cross-entrypoint output
// collisions into the run's final error list.
package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"senc/internal/hostlog"
	"senc/internal/pathpolicy"
	"senc/internal/planner"
	"senc/internal/render"
	"senc/internal/scripthost"
)

// Options configures one compilation run.
type Options struct {
	Fs          afero.Fs
	ProjectRoot string
	OutRoot     string
	Logger      *log.Logger
}

type entrypointResult struct {
	Rel  string
	Plan []planner.Artifact
}

// Run discovers, executes, plans, and renders every entrypoint under
// opts.ProjectRoot. It returns the empty slice on a fully successful
// run; any non-empty result means the process must exit non-zero.
func Run(opts Options) []*hostlog.CompileError {
	entrypoints, err := discover(opts.Fs, opts.ProjectRoot)
	if err != nil {
		return []*hostlog.CompileError{{Entrypoint: opts.ProjectRoot, Kind: "ConfigurationError", Message: err.Error()}}
	}

	policy, err := pathpolicy.New(opts.Fs, opts.ProjectRoot)
	if err != nil {
		return []*hostlog.CompileError{{Entrypoint: opts.ProjectRoot, Kind: "ConfigurationError", Message: err.Error()}}
	}

	outPolicy, err := pathpolicy.New(opts.Fs, opts.OutRoot)
	if err != nil {
		return []*hostlog.CompileError{{Entrypoint: opts.OutRoot, Kind: "ConfigurationError", Message: err.Error()}}
	}

	var (
		mu      sync.Mutex
		errs    []*hostlog.CompileError
		results []entrypointResult
	)

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, rel := range entrypoints {
		rel := rel
		g.Go(func() error {
			plan, err := runOne(opts, policy, rel)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, hostlog.FromError(rel, err))
				return nil
			}
			results = append(results, entrypointResult{Rel: rel, Plan: plan})
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Rel < results[j].Rel })

	toWrite, collisionErrs := resolveCollisions(results)
	errs = append(errs, collisionErrs...)

	for _, r := range toWrite {
		if err := render.Write(opts.Fs, opts.OutRoot, r.Plan, outPolicy.AssertContained); err != nil {
			errs = append(errs, hostlog.FromError(r.Rel, err))
		}
	}

	for _, e := range errs {
		opts.Logger.Error(e.Error())
	}
	return errs
}

// resolveCollisions drops every entrypoint whose output path collides
// with another entrypoint's from the write set and reports a
// CollisionError for each artifact whose path an earlier entrypoint (in
// sorted order) already claimed; entrypoints untouched by any collision
// still write normally even if a sibling entrypoint failed.
func resolveCollisions(results []entrypointResult) ([]entrypointResult, []*hostlog.CompileError) {
	owner := make(map[string]string)
	collided := make(map[string]bool)
	var errs []*hostlog.CompileError

	for _, r := range results {
		for _, a := range r.Plan {
			if existing, ok := owner[a.OutPath]; ok && existing != r.Rel {
				collided[existing] = true
				collided[r.Rel] = true
				errs = append(errs, &hostlog.CompileError{
					Entrypoint: r.Rel,
					Kind:       "CollisionError",
					Message:    fmt.Sprintf("output path %q also written by entrypoint %q", a.OutPath, existing),
				})
				continue
			}
			owner[a.OutPath] = r.Rel
		}
	}

	toWrite := make([]entrypointResult, 0, len(results))
	for _, r := range results {
		if !collided[r.Rel] {
			toWrite = append(toWrite, r)
		}
	}
	return toWrite, errs
}

func runOne(opts Options, policy *pathpolicy.Policy, rel string) ([]planner.Artifact, error) {
	absPath := filepath.Join(opts.ProjectRoot, filepath.FromSlash(rel))
	runLogger := opts.Logger.With("run_id", uuid.NewString())

	host, err := scripthost.New(opts.Fs, opts.ProjectRoot, rel, runLogger)
	if err != nil {
		return nil, err
	}
	result, err := host.Run(absPath)
	if err != nil {
		return nil, err
	}

	req := planner.RunRequest{EntrypointRelPath: rel, OutFileStem: planner.OutFileStem(rel)}
	loader := schemaLoaderFor(opts.Fs, policy, filepath.Dir(absPath))
	return planner.Plan(result, req, loader)
}

func schemaLoaderFor(fs afero.Fs, policy *pathpolicy.Policy, entrypointDir string) planner.SchemaLoader {
	return func(schemaPath string) ([]byte, error) {
		abs, err := policy.Canonicalize(entrypointDir, schemaPath)
		if err != nil {
			return nil, err
		}
		if err := policy.AssertContained(abs); err != nil {
			return nil, err
		}
		return afero.ReadFile(fs, abs)
	}
}

// discover walks opts.ProjectRoot for every *.sen.ts/*.sen.js file,
// returning project-root-relative, slash-separated paths in sorted order
// so run output is deterministic regardless of filesystem iteration
// order.
func discover(fs afero.Fs, root string) ([]string, error) {
	scoped := afero.NewIOFS(afero.NewBasePathFs(fs, root))

	matches := make(map[string]bool)
	for _, pattern := range []string{"**/*.sen.ts", "**/*.sen.js"} {
		hits, err := doublestar.Glob(scoped, pattern)
		if err != nil {
			return nil, fmt.Errorf("discovering entrypoints: %w", err)
		}
		for _, h := range hits {
			matches[h] = true
		}
	}

	out := make([]string, 0, len(matches))
	for m := range matches {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}
