package propgrid

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaType is a leaf type whose values are validated against a JSON Schema.
// Accepted values are stored in their JSON form (numbers as float64, objects as
// map[string]any).
type SchemaType struct {
	resolved     *jsonschema.Resolved
	jsonType     string
	readOnly     bool
	defaultValue any
}

// NewSchemaType compiles a JSON Schema document into a property type.
func NewSchemaType(raw []byte) (*SchemaType, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, NewInvalidDocumentError("failed to unmarshal into jsonschema.Schema", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, NewInvalidDocumentError("failed to resolve schema", err)
	}

	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, NewInvalidDocumentError("failed to parse schema", err)
	}

	t := &SchemaType{resolved: resolved}
	t.jsonType, _ = meta["type"].(string)
	t.readOnly, _ = meta["readOnly"].(bool)

	if def, ok := meta["default"]; ok {
		if !t.CheckValue(def) {
			return nil, NewInvalidDocumentError(fmt.Sprintf("default value %v does not satisfy the schema", def), nil)
		}
		t.defaultValue = def
	} else if zero := zeroForJSONType(t.jsonType); zero != nil && t.CheckValue(zero) {
		t.defaultValue = zero
	}
	return t, nil
}

// MustSchemaType is like NewSchemaType but panics on error.
func MustSchemaType(raw string) *SchemaType {
	t, err := NewSchemaType([]byte(raw))
	if err != nil {
		panic(err)
	}
	return t
}

func (t *SchemaType) IsReadOnly() bool { return t.readOnly }

func (t *SchemaType) CheckValue(v any) bool {
	norm, err := normalizeJSON(v)
	if err != nil {
		return false
	}
	return t.resolved.Validate(norm) == nil
}

func (t *SchemaType) ConvertValue(v any) any {
	norm, err := normalizeJSON(v)
	if err != nil {
		return v
	}
	return norm
}

func (t *SchemaType) DefaultValue() any { return t.defaultValue }

// JSONType returns the schema's "type" keyword, if it is a single string.
func (t *SchemaType) JSONType() string { return t.jsonType }

// ParseValue reads text as a JSON literal; for string schemas bare text is
// taken verbatim.
func (t *SchemaType) ParseValue(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		if t.jsonType == "string" {
			return text, nil
		}
		return nil, NewPropertyError(ErrorTypeInvalidValue, ErrCodeValueRejected,
			fmt.Sprintf("parsing %q as JSON failed", text)).WithCause(err)
	}
	return v, nil
}

// ObjectType is a composed type over an "object" schema. Its value splits into
// the object's top-level members.
type ObjectType struct {
	SchemaType
}

// NewObjectType compiles an object schema into a composed property type.
func NewObjectType(raw []byte) (*ObjectType, error) {
	st, err := NewSchemaType(raw)
	if err != nil {
		return nil, err
	}
	if st.jsonType != "object" {
		return nil, NewInvalidDocumentError(fmt.Sprintf("object type requires an object schema, got %q", st.jsonType), nil)
	}
	return &ObjectType{SchemaType: *st}, nil
}

func (t *ObjectType) SplitToSubvalues(v any) map[string]any {
	norm, err := normalizeJSON(v)
	if err != nil {
		return map[string]any{}
	}
	m, ok := norm.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// normalizeJSON round-trips v through encoding/json so that Go values of any
// shape validate the same way decoded documents do.
func normalizeJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func zeroForJSONType(jsonType string) any {
	switch jsonType {
	case "string":
		return ""
	case "boolean":
		return false
	case "integer", "number":
		return float64(0)
	case "object":
		return map[string]any{}
	case "array":
		return []any{}
	default:
		return nil
	}
}
