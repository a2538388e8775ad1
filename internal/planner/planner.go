// Package planner turns the value a script's main() returned into a list
// of concrete output artifacts: one element, many elements, or a bare
// wrapped value, each with its output path, serialisation kind, and
// optional schema validated before the renderer ever sees it.
package planner

import (
	"fmt"
	"path"
	"strings"

	"senc/internal/jsengine"
	"senc/internal/schema"
)

// Artifact is one file the renderer will write: an output-root-relative
// path, a serialisation kind, the already-JSON-compatible payload, and an
// optional verbatim prefix.
type Artifact struct {
	OutPath string
	Kind    string // "json", "yaml", or "hcl"
	Data    jsengine.Value
	Prefix  string
}

// RunRequest bundles the two paths every artifact's default derivation
// needs: the entrypoint's path relative to the project root, and that
// same path with its .sen.ts/.sen.js sentinel suffix already stripped.
// The driver computes OutFileStem once per entrypoint so every out_ext
// artifact in that entrypoint reuses it rather than re-deriving it.
type RunRequest struct {
	EntrypointRelPath string
	OutFileStem       string
}

// SchemaLoader reads the raw bytes of the schema file named by an
// artifact's schema_path. Plan passes schema_path exactly as the script
// wrote it; resolving it relative to the entrypoint's directory and
// checking containment are the loader's job.
type SchemaLoader func(schemaPath string) ([]byte, error)

// Plan normalises result (per the three OutData/OutDataArray/raw-value
// shapes) into the ordered artifact list for one entrypoint, validating
// each against its schema (if any) and rejecting duplicate output paths
// within this entrypoint.
func Plan(result jsengine.Value, req RunRequest, loadSchema SchemaLoader) ([]Artifact, error) {
	specs, err := normalize(result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.EntrypointRelPath, err)
	}

	artifacts := make([]Artifact, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		a, err := resolveArtifact(spec, req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req.EntrypointRelPath, err)
		}
		if spec.SchemaPath != "" {
			if err := validate(spec, a, loadSchema); err != nil {
				return nil, fmt.Errorf("%s: %w", req.EntrypointRelPath, err)
			}
		}
		if seen[a.OutPath] {
			return nil, fmt.Errorf("%s: duplicate output path %q", req.EntrypointRelPath, a.OutPath)
		}
		seen[a.OutPath] = true
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// artifactSpec is the script-declared shape of one OutData value, before
// defaults are filled in and the data is flattened to plain Go types.
type artifactSpec struct {
	Data       jsengine.Value
	OutPath    string
	HasOutPath bool
	OutExt     string
	HasOutExt  bool
	OutType    string
	OutPrefix  string
	SchemaPath string
}

func normalize(result jsengine.Value) ([]artifactSpec, error) {
	if obj, ok := result.(*jsengine.Object); ok {
		switch obj.Marker {
		case jsengine.MarkerOutDataArray:
			itemsVal, _ := obj.Get("items")
			items, ok := itemsVal.(*jsengine.Array)
			if !ok {
				return nil, fmt.Errorf("OutDataArray has no items list")
			}
			specs := make([]artifactSpec, 0, len(items.Elements))
			for _, el := range items.Elements {
				item, ok := el.(*jsengine.Object)
				if !ok || item.Marker != jsengine.MarkerOutData {
					return nil, fmt.Errorf("OutDataArray element missing the OutData marker")
				}
				spec, err := extractSpec(item)
				if err != nil {
					return nil, err
				}
				specs = append(specs, spec)
			}
			return specs, nil
		case jsengine.MarkerOutData:
			spec, err := extractSpec(obj)
			if err != nil {
				return nil, err
			}
			return []artifactSpec{spec}, nil
		}
	}
	return []artifactSpec{{Data: result}}, nil
}

func extractSpec(obj *jsengine.Object) (artifactSpec, error) {
	spec := artifactSpec{}
	data, hasData := obj.Get("data")
	if !hasData {
		return spec, fmt.Errorf("OutData is missing required field data")
	}
	spec.Data = data
	if v, ok := obj.Get("out_path"); ok && v != nil {
		spec.OutPath = jsengine.ToDisplayString(v)
		spec.HasOutPath = true
	}
	if v, ok := obj.Get("out_ext"); ok && v != nil {
		spec.OutExt = jsengine.ToDisplayString(v)
		spec.HasOutExt = true
	}
	if v, ok := obj.Get("out_type"); ok && v != nil {
		spec.OutType = jsengine.ToDisplayString(v)
	}
	if v, ok := obj.Get("out_prefix"); ok && v != nil {
		spec.OutPrefix = jsengine.ToDisplayString(v)
	}
	if v, ok := obj.Get("schema_path"); ok && v != nil {
		spec.SchemaPath = jsengine.ToDisplayString(v)
	}
	if spec.HasOutPath && spec.HasOutExt {
		return spec, fmt.Errorf("out_path and out_ext are mutually exclusive")
	}
	return spec, nil
}

func resolveArtifact(spec artifactSpec, req RunRequest) (Artifact, error) {
	var outPath, ext string
	switch {
	case spec.HasOutPath:
		outPath = spec.OutPath
		ext = path.Ext(outPath)
	case spec.HasOutExt:
		ext = spec.OutExt
		outPath = req.OutFileStem + ext
	default:
		ext = ".json"
		outPath = req.OutFileStem + ext
	}

	return Artifact{
		OutPath: outPath,
		Kind:    kindFor(spec.OutType, ext),
		Data:    spec.Data,
		Prefix:  spec.OutPrefix,
	}, nil
}

func kindFor(outType, ext string) string {
	if outType != "" {
		return outType
	}
	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		return "yaml"
	case ".hcl":
		return "hcl"
	default:
		return "json"
	}
}

func validate(spec artifactSpec, a Artifact, loadSchema SchemaLoader) error {
	if loadSchema == nil {
		return fmt.Errorf("schema_path %q set but no schema loader is configured", spec.SchemaPath)
	}
	raw, err := loadSchema(spec.SchemaPath)
	if err != nil {
		return fmt.Errorf("loading schema %q: %w", spec.SchemaPath, err)
	}
	validator, err := schema.Compile(raw)
	if err != nil {
		return fmt.Errorf("schema %q: %w", spec.SchemaPath, err)
	}
	plain, err := schema.ToPlainData(spec.Data)
	if err != nil {
		return fmt.Errorf("converting data for validation: %w", err)
	}
	if err := validator.Validate(plain); err != nil {
		return fmt.Errorf("artifact %q: %w", a.OutPath, err)
	}
	return nil
}

// OutFileStem strips the .sen.ts/.sen.js sentinel suffix from an
// entrypoint's relative path, leaving the stem every default and
// out_ext-only output path is built from.
func OutFileStem(entrypointRelPath string) string {
	for _, suffix := range []string{".sen.ts", ".sen.js"} {
		if strings.HasSuffix(entrypointRelPath, suffix) {
			return strings.TrimSuffix(entrypointRelPath, suffix)
		}
	}
	return strings.TrimSuffix(entrypointRelPath, path.Ext(entrypointRelPath))
}
