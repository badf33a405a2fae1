package propgrid

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// TypeResolver resolves a property type from its declared name and
// parameters. Tree builders depend on this interface only.
type TypeResolver interface {
	ResolvePropertyType(name string, params map[string]any) (PropertyType, error)
}

// TypeFactory builds a property type from declaration parameters.
type TypeFactory func(params map[string]any) (PropertyType, error)

// Built-in type names.
const (
	TypeNameString      = "String"
	TypeNameBoolean     = "Boolean"
	TypeNameInteger     = "Integer"
	TypeNameDecimal     = "Decimal"
	TypeNameEnumeration = "Enumeration"
	TypeNameSchema      = "Schema"
	TypeNameObject      = "Object"
)

// TypeRegistry is the default TypeResolver. It knows the built-in types and
// accepts custom factories by name.
type TypeRegistry struct {
	factories map[string]TypeFactory
}

// NewTypeRegistry returns a registry preloaded with the built-in types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{factories: make(map[string]TypeFactory)}
	r.Register(TypeNameString, func(params map[string]any) (PropertyType, error) {
		return StringType{Nullable: readBoolParam(params, "nullable", false)}, nil
	})
	r.Register(TypeNameBoolean, func(map[string]any) (PropertyType, error) {
		return BooleanType{}, nil
	})
	r.Register(TypeNameInteger, func(params map[string]any) (PropertyType, error) {
		return NewIntegerType(
			readIntParam(params, "minValue", math.MinInt64),
			readIntParam(params, "maxValue", math.MaxInt64),
			readBoolParam(params, "nullable", false))
	})
	r.Register(TypeNameDecimal, func(params map[string]any) (PropertyType, error) {
		return NewDecimalType(
			readFloatParam(params, "minValue", -math.MaxFloat64),
			readFloatParam(params, "maxValue", math.MaxFloat64),
			readBoolParam(params, "nullable", false))
	})
	r.Register(TypeNameEnumeration, func(params map[string]any) (PropertyType, error) {
		items, err := readEnumItems(params["items"])
		if err != nil {
			return nil, err
		}
		return NewEnumerationType(items...)
	})
	r.Register(TypeNameSchema, func(params map[string]any) (PropertyType, error) {
		raw, err := schemaParam(params)
		if err != nil {
			return nil, err
		}
		return NewSchemaType(raw)
	})
	r.Register(TypeNameObject, func(params map[string]any) (PropertyType, error) {
		raw, err := schemaParam(params)
		if err != nil {
			return nil, err
		}
		return NewObjectType(raw)
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *TypeRegistry) Register(name string, factory TypeFactory) {
	r.factories[name] = factory
}

// Names lists the registered type names in ascending order.
func (r *TypeRegistry) Names() []string {
	names := MapKeys(r.factories)
	slices.Sort(names)
	return names
}

// ResolvePropertyType implements TypeResolver. Unknown names and factory
// failures are reported as UNKNOWN_TYPE errors.
func (r *TypeRegistry) ResolvePropertyType(name string, params map[string]any) (PropertyType, error) {
	factory, ok := r.factories[strings.TrimSpace(name)]
	if !ok {
		return nil, NewUnknownTypeError(name)
	}
	if params == nil {
		params = map[string]any{}
	}
	t, err := factory(params)
	if err != nil {
		return nil, NewUnknownTypeError(name).WithCause(err)
	}
	return t, nil
}

// Parameter parsing is lenient: a missing or malformed value falls back to
// the default.

func readIntParam(params map[string]any, key string, def int64) int64 {
	switch v := params[key].(type) {
	case nil:
		return def
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return def
		}
		return n
	default:
		if n, ok := toInt64(v); ok {
			return n
		}
		return def
	}
}

func readFloatParam(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case nil:
		return def
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		return f
	default:
		if f, ok := toFloat64(v); ok {
			return f
		}
		return def
	}
}

func readBoolParam(params map[string]any, key string, def bool) bool {
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		switch v {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return def
}

// readEnumItems accepts a list of {value, label} maps, a list of plain values
// (labelled by their text form), or a map of value to label (ordered by value).
func readEnumItems(raw any) ([]EnumItem, error) {
	switch v := raw.(type) {
	case []EnumItem:
		return v, nil
	case []any:
		items := make([]EnumItem, 0, len(v))
		for _, entry := range v {
			if m, ok := entry.(map[string]any); ok {
				value, ok := m["value"]
				if !ok {
					return nil, &ConfigError{Field: "items", Message: "item without value"}
				}
				label, _ := m["label"].(string)
				if label == "" {
					label = fmt.Sprint(value)
				}
				items = append(items, EnumItem{Value: value, Label: label})
				continue
			}
			items = append(items, EnumItem{Value: entry, Label: fmt.Sprint(entry)})
		}
		return items, nil
	case []string:
		items := make([]EnumItem, 0, len(v))
		for _, s := range v {
			items = append(items, EnumItem{Value: s, Label: s})
		}
		return items, nil
	case map[string]any:
		keys := MapKeys(v)
		slices.Sort(keys)
		items := make([]EnumItem, 0, len(keys))
		for _, k := range keys {
			items = append(items, EnumItem{Value: k, Label: fmt.Sprint(v[k])})
		}
		return items, nil
	case map[string]string:
		keys := MapKeys(v)
		slices.Sort(keys)
		items := make([]EnumItem, 0, len(keys))
		for _, k := range keys {
			items = append(items, EnumItem{Value: k, Label: v[k]})
		}
		return items, nil
	default:
		return nil, &ConfigError{Field: "items", Message: "enumeration requires an items list or map"}
	}
}

// schemaParam returns the "schema" parameter as JSON bytes; it may be given
// as a JSON string or as an already decoded document.
func schemaParam(params map[string]any) ([]byte, error) {
	switch v := params["schema"].(type) {
	case nil:
		return nil, &ConfigError{Field: "schema", Message: "is required"}
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
