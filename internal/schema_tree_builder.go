package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/lychee-technology/propgrid"
	"go.uber.org/zap"
)

// schemaConstraintKeywords force a leaf onto propgrid.SchemaType because the
// built-in types cannot express them.
var schemaConstraintKeywords = []string{
	"pattern", "format", "minLength", "maxLength", "multipleOf",
	"exclusiveMinimum", "exclusiveMaximum", "const", "items",
	"allOf", "anyOf", "oneOf", "not",
}

// SchemaTreeBuilder builds a property tree from a JSON Schema object
// document. Object members become composites, other members become simple
// properties:
//   - title, description and x-hintTitle give label, hint and hint title
//   - x-important or membership in "required" marks a property important
//   - readOnly makes a property read-only
//   - default becomes the initial value
//
// Members are ordered by x-order, then by name.
type SchemaTreeBuilder struct {
	opts BuilderOptions
}

func NewSchemaTreeBuilder(opts BuilderOptions) *SchemaTreeBuilder {
	return &SchemaTreeBuilder{opts: opts}
}

func (b *SchemaTreeBuilder) Build(data []byte) (*propgrid.ComposedProperty, error) {
	var rawSchema map[string]any
	if err := json.Unmarshal(data, &rawSchema); err != nil {
		return nil, propgrid.NewInvalidDocumentError("failed to unmarshal JSON schema", err)
	}
	doc, err := newSchemaInliner(rawSchema, b.opts.BaseDir).inlineRoot()
	if err != nil {
		return nil, propgrid.NewInvalidDocumentError("failed to inline schema references", err)
	}
	if t, ok := doc["type"].(string); ok && t != "object" {
		return nil, propgrid.NewInvalidDocumentError(fmt.Sprintf("root schema must be an object, got %q", t), nil)
	}
	if _, ok := doc["properties"].(map[string]any); !ok {
		return nil, propgrid.NewInvalidDocumentError("root schema has no properties", nil)
	}

	name, _ := doc["x-name"].(string)
	root := propgrid.NewComposedProperty(name, b.opts.composedOptions()...)
	applySchemaMetadata(root, doc, false)
	if err := b.buildMembers(root, doc, ""); err != nil {
		return nil, err
	}
	return root, nil
}

// buildMembers appends a property for every member of node's "properties".
func (b *SchemaTreeBuilder) buildMembers(parent *propgrid.ComposedProperty, node map[string]any, path string) error {
	properties, _ := node["properties"].(map[string]any)
	required := stringList(node["required"])

	for _, name := range orderedMembers(properties) {
		memberPath := joinPath(path, name)
		member, ok := properties[name].(map[string]any)
		if !ok {
			zap.S().Warnw("skipping schema member", "property", memberPath, "reason", "not an object")
			continue
		}

		p, err := b.buildMember(name, member, memberPath)
		if err != nil {
			return fmt.Errorf("property %q: %w", memberPath, err)
		}
		if p == nil {
			continue
		}
		applySchemaMetadata(p, member, slices.Contains(required, name))
		if err := parent.Subproperties().Append(p); err != nil {
			return fmt.Errorf("property %q: %w", memberPath, err)
		}
		if err := b.applyDefault(p, member); err != nil {
			return fmt.Errorf("property %q: %w", memberPath, err)
		}
	}
	return nil
}

func (b *SchemaTreeBuilder) buildMember(name string, member map[string]any, path string) (propgrid.Property, error) {
	jsonType, nullable := schemaJSONType(member)

	if _, hasMembers := member["properties"].(map[string]any); hasMembers && jsonType == "object" {
		return b.buildObject(name, member, path)
	}
	if jsonType == "null" {
		zap.S().Warnw("skipping schema member", "property", path, "reason", "null type")
		return nil, nil
	}

	t, err := leafTypeForSchema(member, jsonType, nullable)
	if err != nil {
		return nil, err
	}
	if readOnly, _ := member["readOnly"].(bool); readOnly {
		if _, isSchema := t.(*propgrid.SchemaType); !isSchema {
			t = propgrid.ReadOnly(t)
		}
	}
	p, err := propgrid.NewSimpleProperty(name, t)
	if propgrid.HasCode(err, propgrid.ErrCodeValueRejected) {
		return nil, propgrid.NewInvalidDocumentError("schema rejects its implicit default, declare a valid default", err)
	}
	return p, err
}

func (b *SchemaTreeBuilder) buildObject(name string, member map[string]any, path string) (propgrid.Property, error) {
	opts := b.opts.composedOptions()

	var composite *propgrid.ComposedProperty
	if b.opts.TypedObjects {
		raw, err := json.Marshal(stripExtensions(member))
		if err != nil {
			return nil, propgrid.NewInvalidDocumentError("failed to encode object schema", err)
		}
		objectType, err := propgrid.NewObjectType(raw)
		if err == nil {
			composite, err = propgrid.NewTypedComposedProperty(name, objectType, opts...)
		}
		if err != nil {
			zap.S().Warnw("object schema cannot type a composite, building a grouping composite",
				"property", path, "error", err)
		}
	}
	if composite == nil {
		composite = propgrid.NewComposedProperty(name, opts...)
	}
	if err := b.buildMembers(composite, member, path); err != nil {
		return nil, err
	}
	return composite, nil
}

// applyDefault assigns the member's default. Typed composites receive theirs
// through their type.
func (b *SchemaTreeBuilder) applyDefault(p propgrid.Property, member map[string]any) error {
	def, ok := member["default"]
	if !ok {
		return nil
	}
	if _, isComposite := p.(*propgrid.ComposedProperty); isComposite {
		return nil
	}
	if err := p.SetValue(def); err != nil {
		return propgrid.NewInvalidDocumentError("default value is not assignable", err)
	}
	return nil
}

// leafTypeForSchema maps a member schema onto the built-in types where they
// can express it, and onto a SchemaType otherwise.
func leafTypeForSchema(member map[string]any, jsonType string, nullable bool) (propgrid.PropertyType, error) {
	if enum, ok := member["enum"].([]any); ok {
		if t, err := enumerationForSchema(enum, member, jsonType); err == nil {
			return t, nil
		}
	}

	needsSchema := jsonType == "" || jsonType == "array" || jsonType == "object"
	for _, kw := range schemaConstraintKeywords {
		if _, ok := member[kw]; ok {
			needsSchema = true
			break
		}
	}

	if !needsSchema {
		switch jsonType {
		case "string":
			return propgrid.StringType{Nullable: nullable}, nil
		case "boolean":
			if !nullable {
				return propgrid.BooleanType{}, nil
			}
		case "integer":
			minValue, maxValue := int64(math.MinInt64), int64(math.MaxInt64)
			if f, ok := member["minimum"].(float64); ok {
				minValue = int64(math.Ceil(f))
			}
			if f, ok := member["maximum"].(float64); ok {
				maxValue = int64(math.Floor(f))
			}
			return propgrid.NewIntegerType(minValue, maxValue, nullable)
		case "number":
			minValue, maxValue := -math.MaxFloat64, math.MaxFloat64
			if f, ok := member["minimum"].(float64); ok {
				minValue = f
			}
			if f, ok := member["maximum"].(float64); ok {
				maxValue = f
			}
			return propgrid.NewDecimalType(minValue, maxValue, nullable)
		}
	}

	raw, err := json.Marshal(stripExtensions(member))
	if err != nil {
		return nil, propgrid.NewInvalidDocumentError("failed to encode member schema", err)
	}
	return propgrid.NewSchemaType(raw)
}

// enumerationForSchema builds an EnumerationType. Labels come from
// x-enumLabels when it matches the enum in length. Integer enums hold int64
// values so that Go integers compare equal to them.
func enumerationForSchema(enum []any, member map[string]any, jsonType string) (propgrid.PropertyType, error) {
	labels := stringList(member["x-enumLabels"])
	items := make([]propgrid.EnumItem, 0, len(enum))
	for i, v := range enum {
		if f, ok := v.(float64); ok && jsonType == "integer" && f == math.Trunc(f) {
			v = int64(f)
		}
		label := fmt.Sprint(v)
		if len(labels) == len(enum) {
			label = labels[i]
		}
		items = append(items, propgrid.EnumItem{Value: v, Label: label})
	}
	return propgrid.NewEnumerationType(items...)
}

func applySchemaMetadata(p propgrid.Property, node map[string]any, required bool) {
	if title, ok := node["title"].(string); ok {
		p.SetLabel(title)
	}
	if description, ok := node["description"].(string); ok {
		p.SetHint(description)
	}
	if hintTitle, ok := node["x-hintTitle"].(string); ok {
		p.SetHintTitle(hintTitle)
	}
	important, _ := node["x-important"].(bool)
	p.SetImportant(important || required)
	if readOnly, _ := node["readOnly"].(bool); readOnly {
		_ = p.SetReadOnly(true)
	}
}

// schemaJSONType returns the member's single type and whether "null" is also
// allowed, e.g. ["string", "null"].
func schemaJSONType(member map[string]any) (jsonType string, nullable bool) {
	switch t := member["type"].(type) {
	case string:
		return t, false
	case []any:
		var types []string
		for _, entry := range t {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			if s == "null" {
				nullable = true
				continue
			}
			types = append(types, s)
		}
		if len(types) == 1 {
			return types[0], nullable
		}
		if len(types) == 0 && nullable {
			return "null", false
		}
		return "", nullable
	}
	if _, ok := member["properties"].(map[string]any); ok {
		return "object", false
	}
	return "", false
}

// orderedMembers sorts member names by x-order, unordered members last, ties
// and unordered members by name.
func orderedMembers(properties map[string]any) []string {
	names := propgrid.MapKeys(properties)
	order := func(name string) (float64, bool) {
		m, ok := properties[name].(map[string]any)
		if !ok {
			return 0, false
		}
		f, ok := m["x-order"].(float64)
		return f, ok
	}
	slices.SortFunc(names, func(a, b string) int {
		oa, hasA := order(a)
		ob, hasB := order(b)
		switch {
		case hasA && !hasB:
			return -1
		case !hasA && hasB:
			return 1
		case hasA && hasB && oa != ob:
			if oa < ob {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	return names
}

func stringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s, ok := entry.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
