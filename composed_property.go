package propgrid

import (
	"reflect"
)

// ComposedProperty groups an ordered list of subproperties. Without a type it
// is a pure grouping node; with a ComposedPropertyType it also carries a value
// of its own.
type ComposedProperty struct {
	propertyBase
	subproperties *PropertyList
	value         any
	composition   bool
}

// ComposedOption configures a ComposedProperty at construction.
type ComposedOption func(*ComposedProperty)

// WithValueComposition links the composite's value with its descendants:
// SetValue distributes the value to the children by name and, for untyped
// composites, Value aggregates the descendants' values.
func WithValueComposition() ComposedOption {
	return func(c *ComposedProperty) {
		c.composition = true
	}
}

// NewComposedProperty creates an untyped grouping composite.
func NewComposedProperty(name string, opts ...ComposedOption) *ComposedProperty {
	c := &ComposedProperty{}
	c.init(c, name, nil)
	c.subproperties = &PropertyList{owner: c, members: make(map[Property]struct{})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTypedComposedProperty creates a composite typed by t and holding t's
// default value. A type that rejects its own default is refused.
func NewTypedComposedProperty(name string, t ComposedPropertyType, opts ...ComposedOption) (*ComposedProperty, error) {
	if t == nil {
		return nil, NewTypeMissingError(name)
	}
	v, ok := acceptValue(t, t.DefaultValue())
	if !ok {
		return nil, NewValueRejectedError(name, t.DefaultValue())
	}
	c := NewComposedProperty(name, opts...)
	c.typ = t
	c.readOnly = t.IsReadOnly()
	c.value = v
	return c, nil
}

// Subproperties returns the child list. All structural changes go through it.
func (c *ComposedProperty) Subproperties() *PropertyList { return c.subproperties }

// ValueComposition reports whether the composite links its value with its
// descendants.
func (c *ComposedProperty) ValueComposition() bool { return c.composition }

// Value returns the composite's own value for typed composites. Untyped
// composites return nil, or the aggregated map of descendant values when
// value composition is enabled.
func (c *ComposedProperty) Value() any {
	if c.typ != nil {
		return c.value
	}
	if !c.composition {
		return nil
	}
	values := make(map[string]any)
	c.aggregate(values)
	return values
}

// aggregate collects named leaf values and the unexpanded values of typed
// composites; untyped composites are walked through.
func (c *ComposedProperty) aggregate(values map[string]any) {
	for _, child := range c.subproperties.items {
		switch v := child.(type) {
		case *SimpleProperty:
			if v.name != "" {
				values[v.name] = v.value
			}
		case *ComposedProperty:
			if v.typ != nil {
				if v.name != "" {
					values[v.name] = v.value
				}
				continue
			}
			v.aggregate(values)
		}
	}
}

// SetValue assigns the composite's value.
//
// An untyped composite without value composition ignores the call. A typed
// composite validates v against its type. With value composition the value is
// also distributed to the descendants; every target is validated before
// anything is assigned, so a rejected entry leaves the whole subtree
// untouched.
func (c *ComposedProperty) SetValue(v any) error {
	if c.typ == nil && !c.composition {
		return nil
	}

	var plan []assignment
	if c.typ != nil {
		converted, ok := acceptValue(c.typ, v)
		if !ok {
			return NewValueRejectedError(c.name, v)
		}
		plan = append(plan, assignment{target: c, value: converted})
		if c.composition {
			if err := c.planDistribution(c.typ.(ComposedPropertyType).SplitToSubvalues(converted), &plan); err != nil {
				return err
			}
		}
	} else {
		values, ok := v.(map[string]any)
		if !ok {
			return NewValueNotMapError(c.name, v)
		}
		if err := c.planDistribution(values, &plan); err != nil {
			return err
		}
	}

	for _, a := range plan {
		a.apply()
	}
	return nil
}

type assignment struct {
	target Property
	value  any
}

func (a assignment) apply() {
	switch t := a.target.(type) {
	case *SimpleProperty:
		t.assign(a.value)
	case *ComposedProperty:
		t.assignOwn(a.value)
	}
}

// planDistribution validates the entries of values against the children of c
// and records the resulting assignments. Children are matched by name; a
// missing entry leaves the child unchanged.
func (c *ComposedProperty) planDistribution(values map[string]any, plan *[]assignment) error {
	for _, child := range c.subproperties.items {
		switch t := child.(type) {
		case *SimpleProperty:
			raw, ok := values[t.name]
			if t.name == "" || !ok {
				continue
			}
			converted, ok := acceptValue(t.typ, raw)
			if !ok {
				return NewValueRejectedError(t.name, raw)
			}
			*plan = append(*plan, assignment{target: t, value: converted})
		case *ComposedProperty:
			if t.typ == nil {
				if err := t.planDistribution(values, plan); err != nil {
					return err
				}
				continue
			}
			raw, ok := values[t.name]
			if t.name == "" || !ok {
				continue
			}
			converted, ok := acceptValue(t.typ, raw)
			if !ok {
				return NewValueRejectedError(t.name, raw)
			}
			*plan = append(*plan, assignment{target: t, value: converted})
			if t.composition {
				if err := t.planDistribution(t.typ.(ComposedPropertyType).SplitToSubvalues(converted), plan); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// assignOwn stores an already validated value of a typed composite.
func (c *ComposedProperty) assignOwn(v any) {
	if reflect.DeepEqual(c.value, v) {
		return
	}
	c.value = v
	firePropertyValueChanged(c)
}

// ResetToDefault resets every descendant; typed composites also reset their
// own value. The first error is returned after all children were visited.
func (c *ComposedProperty) ResetToDefault() error {
	var firstErr error
	if c.typ != nil {
		if v, ok := acceptValue(c.typ, c.typ.DefaultValue()); ok {
			c.assignOwn(v)
		} else {
			firstErr = NewValueRejectedError(c.name, c.typ.DefaultValue())
		}
	}
	for _, child := range c.subproperties.Snapshot() {
		if err := child.ResetToDefault(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Find returns the first descendant named name in pre-order, or nil.
func (c *ComposedProperty) Find(name string) Property {
	var found Property
	c.Walk(func(p Property) bool {
		if p.Name() == name {
			found = p
			return false
		}
		return true
	})
	return found
}

// Walk visits the descendants of c in pre-order until fn returns false.
func (c *ComposedProperty) Walk(fn func(p Property) bool) {
	c.walk(fn)
}

func (c *ComposedProperty) walk(fn func(p Property) bool) bool {
	for _, child := range c.subproperties.Snapshot() {
		if !fn(child) {
			return false
		}
		if cp, ok := child.(*ComposedProperty); ok {
			if !cp.walk(fn) {
				return false
			}
		}
	}
	return true
}
