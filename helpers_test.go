package propgrid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newLeaf(t *testing.T, name string) *SimpleProperty {
	t.Helper()
	p, err := NewSimpleProperty(name, StringType{})
	require.NoError(t, err)
	return p
}

func newIntLeaf(t *testing.T, name string, minValue, maxValue int64) *SimpleProperty {
	t.Helper()
	it, err := NewIntegerType(minValue, maxValue, false)
	require.NoError(t, err)
	p, err := NewSimpleProperty(name, it)
	require.NoError(t, err)
	return p
}

func appendAll(t *testing.T, parent *ComposedProperty, children ...Property) *ComposedProperty {
	t.Helper()
	for _, c := range children {
		require.NoError(t, parent.Subproperties().Append(c))
	}
	return parent
}

type event struct {
	kind string
	prop Property
}

// recorder is a Listener that keeps every delivery in order.
type recorder struct {
	events []event
}

func (r *recorder) PropertyChanged(p Property) {
	r.events = append(r.events, event{"changed", p})
}

func (r *recorder) PropertyValueChanged(p Property) {
	r.events = append(r.events, event{"value", p})
}

func (r *recorder) SubpropertyListChanged(c *ComposedProperty) {
	r.events = append(r.events, event{"list", c})
}

func (r *recorder) count(kind string, p Property) int {
	n := 0
	for _, e := range r.events {
		if e.kind == kind && e.prop == p {
			n++
		}
	}
	return n
}

func (r *recorder) reset() { r.events = nil }
