// Package kubeopenapi compiles the OpenAPI v3 schema of a Kubernetes
// CustomResourceDefinition into a modelkit class named after the CRD kind.
package kubeopenapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/jsonschema"
)

// ErrNotFound is returned when a bundle holds no matching CRD.
var ErrNotFound = errors.New("kubeopenapi: CRD not found in YAML bundle")

// Options controls import behavior.
type Options struct {
	// Version picks spec.versions[].name. Empty selects the storage
	// version, then the first served one.
	Version string
	Compile jsonschema.CompileOpt
}

// Import compiles a decoded CustomResourceDefinition.
func Import(crd map[string]any, opts Options) (*modelkit.Class, error) {
	spec, _ := crd["spec"].(map[string]any)
	if spec == nil {
		return nil, errors.New("kubeopenapi: CRD has no spec")
	}
	names, _ := spec["names"].(map[string]any)
	kind, _ := names["kind"].(string)
	if kind == "" {
		return nil, errors.New("kubeopenapi: CRD has no spec.names.kind")
	}
	raw, err := versionSchema(spec, opts.Version)
	if err != nil {
		return nil, fmt.Errorf("kubeopenapi: %s: %w", kind, err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("kubeopenapi: %s: %w", kind, err)
	}
	s, err := jsonschema.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("kubeopenapi: %s: %w", kind, err)
	}
	return jsonschema.Compile(kind, s, opts.Compile)
}

// versionSchema finds openAPIV3Schema for the requested version. The
// apiextensions v1beta1 spec.validation form is accepted as a fallback.
func versionSchema(spec map[string]any, version string) (map[string]any, error) {
	versions, _ := spec["versions"].([]any)
	holder := spec["validation"]
	if v := pickVersion(versions, version); v != nil {
		holder = v["schema"]
	} else if version != "" {
		return nil, fmt.Errorf("version %q not found", version)
	}
	h, _ := holder.(map[string]any)
	s, _ := h["openAPIV3Schema"].(map[string]any)
	if s == nil {
		return nil, errors.New("no openAPIV3Schema")
	}
	return s, nil
}

func pickVersion(versions []any, version string) map[string]any {
	var served map[string]any
	for _, v := range versions {
		m, _ := v.(map[string]any)
		if m == nil {
			continue
		}
		if version != "" {
			if m["name"] == version {
				return m
			}
			continue
		}
		if m["storage"] == true {
			return m
		}
		if served == nil && m["served"] == true {
			served = m
		}
	}
	return served
}

// ImportYAMLForCRDKind scans a multi-document YAML (e.g., CRD bundle) and
// imports the first CustomResourceDefinition matching spec.names.kind.
func ImportYAMLForCRDKind(data []byte, kind string, opts Options) (*modelkit.Class, error) {
	return importMatching(data, opts, func(m map[string]any) bool {
		spec, _ := m["spec"].(map[string]any)
		names, _ := spec["names"].(map[string]any)
		k, _ := names["kind"].(string)
		return k == kind
	})
}

// ImportYAMLForCRDName scans a multi-document YAML and imports the CRD
// with the given metadata.name.
func ImportYAMLForCRDName(data []byte, name string, opts Options) (*modelkit.Class, error) {
	return importMatching(data, opts, func(m map[string]any) bool {
		meta, _ := m["metadata"].(map[string]any)
		n, _ := meta["name"].(string)
		return n == name
	})
}

func importMatching(data []byte, opts Options, match func(map[string]any) bool) (*modelkit.Class, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var node any
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("kubeopenapi: %w", err)
		}
		m, _ := modelkit.NormalizeYAML(node).(map[string]any)
		if m == nil {
			continue
		}
		if k, _ := m["kind"].(string); k != "CustomResourceDefinition" {
			continue
		}
		if match(m) {
			return Import(m, opts)
		}
	}
	return nil, ErrNotFound
}
