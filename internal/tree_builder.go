package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/propgrid"
)

// TreeBuilder turns a document into a property tree.
type TreeBuilder interface {
	Build(data []byte) (*propgrid.ComposedProperty, error)
}

// BuilderOptions are shared by all tree builders.
type BuilderOptions struct {
	// Resolver resolves declared type names; defaults to a TypeRegistry.
	Resolver propgrid.TypeResolver
	// ValueComposition creates composites with propgrid.WithValueComposition.
	ValueComposition bool
	// TypedObjects types JSON Schema object members by their schema instead
	// of building pure grouping composites.
	TypedObjects bool
	// BaseDir resolves file references of JSON Schema documents.
	BaseDir string
}

func (o BuilderOptions) resolver() propgrid.TypeResolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	return propgrid.NewTypeRegistry()
}

func (o BuilderOptions) composedOptions() []propgrid.ComposedOption {
	if o.ValueComposition {
		return []propgrid.ComposedOption{propgrid.WithValueComposition()}
	}
	return nil
}

// NewTreeBuilder returns the builder for format. FormatAuto is not accepted
// here; use DetectFormat first.
func NewTreeBuilder(format string, opts BuilderOptions) (TreeBuilder, error) {
	switch format {
	case propgrid.FormatJSONSchema:
		return NewSchemaTreeBuilder(opts), nil
	case propgrid.FormatYAML, propgrid.FormatTOML, propgrid.FormatJSON:
		return NewDocumentBuilder(format, opts), nil
	default:
		return nil, &propgrid.ConfigError{Field: "builder.format", Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

// DetectFormat guesses the document format from the file extension. JSON
// files holding a JSON Schema (a "$schema" keyword or a "properties" object)
// are reported as FormatJSONSchema.
func DetectFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return propgrid.FormatYAML
	case ".toml":
		return propgrid.FormatTOML
	}

	var probe map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &probe); err == nil {
		if _, ok := probe["$schema"]; ok {
			return propgrid.FormatJSONSchema
		}
		if _, ok := probe["properties"].(map[string]any); ok {
			return propgrid.FormatJSONSchema
		}
	}
	return propgrid.FormatJSON
}

// BuildFile reads path and builds its property tree. An auto format is
// detected from the file; relative schema references resolve against the
// file's directory unless opts.BaseDir is set.
func BuildFile(path, format string, opts BuilderOptions) (*propgrid.ComposedProperty, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if format == "" || format == propgrid.FormatAuto {
		format = DetectFormat(path, data)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	builder, err := NewTreeBuilder(format, opts)
	if err != nil {
		return nil, err
	}
	root, err := builder.Build(data)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", path, err)
	}
	return root, nil
}

func joinPath(parent, name string) string {
	if name == "" {
		name = "<unnamed>"
	}
	if parent == "" {
		return name
	}
	return parent + "." + name
}
