package internal

import (
	"encoding/json"
	"fmt"

	"github.com/lychee-technology/propgrid"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DocumentBuilder builds a property tree from a property document in YAML,
// TOML or JSON:
//
//	label: Server
//	properties:
//	  - name: host
//	    type: String
//	    value: localhost
//	  - name: port
//	    type: {name: Integer, parameters: {minValue: 1, maxValue: 65535}}
//	  - name: tls
//	    subproperties:
//	      - name: enabled
//	        type: Boolean
//
// A property with a "subproperties" key is a composite; its type is optional
// and must be composed. Every other property is simple and needs a type that
// is not composed.
type DocumentBuilder struct {
	format string
	opts   BuilderOptions
}

func NewDocumentBuilder(format string, opts BuilderOptions) *DocumentBuilder {
	return &DocumentBuilder{format: format, opts: opts}
}

func (b *DocumentBuilder) Build(data []byte) (*propgrid.ComposedProperty, error) {
	doc, err := b.decode(data)
	if err != nil {
		return nil, propgrid.NewInvalidDocumentError(fmt.Sprintf("failed to decode %s document", b.format), err)
	}

	name, _ := doc["name"].(string)
	root := propgrid.NewComposedProperty(name, b.opts.composedOptions()...)
	if err := applyDocumentMetadata(root, doc); err != nil {
		return nil, err
	}
	list, err := propertyList(doc["properties"], "properties")
	if err != nil {
		return nil, err
	}
	if err := b.buildChildren(root, list, ""); err != nil {
		return nil, err
	}
	return root, nil
}

func (b *DocumentBuilder) decode(data []byte) (map[string]any, error) {
	doc := make(map[string]any)
	var err error
	switch b.format {
	case propgrid.FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case propgrid.FormatTOML:
		err = toml.Unmarshal(data, &doc)
	case propgrid.FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		err = fmt.Errorf("unsupported format %q", b.format)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *DocumentBuilder) buildChildren(parent *propgrid.ComposedProperty, list []map[string]any, path string) error {
	for _, decl := range list {
		name, _ := decl["name"].(string)
		childPath := joinPath(path, name)

		p, err := b.buildProperty(name, decl, childPath)
		if err != nil {
			return fmt.Errorf("property %q: %w", childPath, err)
		}
		if err := parent.Subproperties().Append(p); err != nil {
			return fmt.Errorf("property %q: %w", childPath, err)
		}
		if value, ok := decl["value"]; ok {
			if err := assignDocumentValue(p, value); err != nil {
				return fmt.Errorf("property %q: %w", childPath, err)
			}
		}
	}
	return nil
}

func (b *DocumentBuilder) buildProperty(name string, decl map[string]any, path string) (propgrid.Property, error) {
	t, err := b.resolveType(name, decl["type"])
	if err != nil {
		return nil, err
	}

	var p propgrid.Property
	if rawChildren, isComposite := decl["subproperties"]; isComposite {
		opts := b.opts.composedOptions()
		if composition, _ := decl["valueComposition"].(bool); composition && !b.opts.ValueComposition {
			opts = append(opts, propgrid.WithValueComposition())
		}

		var composite *propgrid.ComposedProperty
		if t == nil {
			composite = propgrid.NewComposedProperty(name, opts...)
		} else {
			ct, ok := t.(propgrid.ComposedPropertyType)
			if !ok {
				return nil, propgrid.NewTypeMismatchError(name, "composite property requires a composed type")
			}
			if composite, err = propgrid.NewTypedComposedProperty(name, ct, opts...); err != nil {
				return nil, err
			}
		}

		children, err := propertyList(rawChildren, path+".subproperties")
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			zap.S().Debugw("composite without subproperties", "property", path)
		}
		if err := b.buildChildren(composite, children, path); err != nil {
			return nil, err
		}
		p = composite
	} else {
		if t == nil {
			return nil, propgrid.NewTypeMissingError(name)
		}
		if propgrid.IsComposedType(t) {
			return nil, propgrid.NewTypeMismatchError(name, "simple property cannot have a composed type")
		}
		if p, err = propgrid.NewSimpleProperty(name, t); err != nil {
			if propgrid.HasCode(err, propgrid.ErrCodeValueRejected) {
				return nil, propgrid.NewInvalidDocumentError(fmt.Sprintf("type of %q rejects its own default", name), err)
			}
			return nil, err
		}
	}

	if err := applyDocumentMetadata(p, decl); err != nil {
		return nil, err
	}
	return p, nil
}

// resolveType accepts a type name or a {name, parameters} table. A missing
// declaration yields a nil type.
func (b *DocumentBuilder) resolveType(property string, raw any) (propgrid.PropertyType, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return b.opts.resolver().ResolvePropertyType(v, nil)
	case map[string]any:
		typeName, _ := v["name"].(string)
		if typeName == "" {
			return nil, propgrid.NewTypeMissingError(property)
		}
		params, _ := v["parameters"].(map[string]any)
		return b.opts.resolver().ResolvePropertyType(typeName, params)
	default:
		return nil, propgrid.NewInvalidDocumentError(fmt.Sprintf("type of %q must be a name or a table, got %T", property, raw), nil)
	}
}

// assignDocumentValue assigns a declared value. Text the type rejects as is
// gets a second chance through the type's parser.
func assignDocumentValue(p propgrid.Property, value any) error {
	err := p.SetValue(value)
	if err == nil {
		return nil
	}
	text, isText := value.(string)
	if !isText || p.Type() == nil {
		return err
	}
	parsed, parseErr := propgrid.ParseValue(p.Type(), text)
	if parseErr != nil {
		return err
	}
	return p.SetValue(parsed)
}

func applyDocumentMetadata(p propgrid.Property, decl map[string]any) error {
	if label, ok := decl["label"].(string); ok {
		p.SetLabel(label)
	}
	if hint, ok := decl["hint"].(string); ok {
		p.SetHint(hint)
	}
	if hintTitle, ok := decl["hintTitle"].(string); ok {
		p.SetHintTitle(hintTitle)
	}
	if important, ok := decl["important"].(bool); ok {
		p.SetImportant(important)
	}
	if readOnly, ok := decl["readOnly"].(bool); ok {
		if err := p.SetReadOnly(readOnly); err != nil {
			return err
		}
	}
	return nil
}

// propertyList normalizes a decoded list of property declarations. YAML and
// JSON decode lists as []any; TOML arrays of tables may also come back as
// []map[string]any.
func propertyList(raw any, field string) ([]map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, entry := range v {
			decl, ok := entry.(map[string]any)
			if !ok {
				return nil, propgrid.NewInvalidDocumentError(fmt.Sprintf("%s[%d] must be a table, got %T", field, i, entry), nil)
			}
			out = append(out, decl)
		}
		return out, nil
	default:
		return nil, propgrid.NewInvalidDocumentError(fmt.Sprintf("%s must be a list, got %T", field, raw), nil)
	}
}
