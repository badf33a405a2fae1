package propgrid

import (
	"reflect"
)

// SimpleProperty is a leaf holding one value that always satisfies its type.
type SimpleProperty struct {
	propertyBase
	value any
}

// NewSimpleProperty creates a leaf holding the type's default value. The type
// is required, must not be a ComposedPropertyType and must accept its own
// default.
func NewSimpleProperty(name string, t PropertyType) (*SimpleProperty, error) {
	if t == nil {
		return nil, NewTypeMissingError(name)
	}
	return NewSimplePropertyWithValue(name, t, t.DefaultValue())
}

// NewSimplePropertyWithValue creates a leaf holding v.
func NewSimplePropertyWithValue(name string, t PropertyType, v any) (*SimpleProperty, error) {
	if t == nil {
		return nil, NewTypeMissingError(name)
	}
	if IsComposedType(t) {
		return nil, NewTypeMismatchError(name, "a simple property cannot have a composed type")
	}
	converted, ok := acceptValue(t, v)
	if !ok {
		return nil, NewValueRejectedError(name, v)
	}
	p := &SimpleProperty{value: converted}
	p.init(p, name, t)
	return p, nil
}

func (p *SimpleProperty) Value() any { return p.value }

// SetValue validates v, stores its canonical form and fires
// PropertyValueChanged. Assigning a value equal to the current one does
// nothing.
func (p *SimpleProperty) SetValue(v any) error {
	converted, ok := acceptValue(p.typ, v)
	if !ok {
		return NewValueRejectedError(p.name, v)
	}
	p.assign(converted)
	return nil
}

// assign stores an already validated value.
func (p *SimpleProperty) assign(v any) {
	if reflect.DeepEqual(p.value, v) {
		return
	}
	p.value = v
	firePropertyValueChanged(p)
}

// ResetToDefault assigns the type's default value.
func (p *SimpleProperty) ResetToDefault() error {
	return p.SetValue(p.typ.DefaultValue())
}
