package propgrid

import (
	"encoding/json"
	"slices"
)

// Set is a generic data structure that represents a collection of unique items.
// It uses a map internally for O(1) operations.
type Set[T comparable] struct {
	items map[T]struct{}
}

// NewSet creates and returns a new Set holding the given items.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{
		items: make(map[T]struct{}, len(items)),
	}
	for _, item := range items {
		s.items[item] = struct{}{}
	}
	return s
}

// Add inserts an item into the set. If the item already exists, it has no effect.
func (s *Set[T]) Add(item T) {
	s.items[item] = struct{}{}
}

// Remove deletes an item from the set. If the item doesn't exist, it has no effect.
func (s *Set[T]) Remove(item T) {
	delete(s.items, item)
}

// Contains checks if an item exists in the set.
func (s *Set[T]) Contains(item T) bool {
	_, exists := s.items[item]
	return exists
}

// Size returns the number of items in the set.
func (s *Set[T]) Size() int {
	return len(s.items)
}

// ToSlice converts the set to a slice containing all items.
// The order of items is non-deterministic due to map iteration.
func (s *Set[T]) ToSlice() []T {
	return MapKeys(s.items)
}

// Clear removes all items from the set.
func (s *Set[T]) Clear() {
	s.items = make(map[T]struct{})
}

// MapKeys extracts all keys from a map and returns them as a slice.
// The order of keys is non-deterministic due to map iteration.
func MapKeys[K comparable, V any](m map[K]V) []K {
	if m == nil {
		return []K{}
	}
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

// CollapsedNames is the persisted part of the view state: the names of the
// properties whose rows are collapsed. It serializes as a sorted JSON list.
type CollapsedNames struct {
	set *Set[string]
}

// NewCollapsedNames returns a set holding names. Empty names are ignored.
func NewCollapsedNames(names ...string) *CollapsedNames {
	c := &CollapsedNames{set: NewSet[string]()}
	for _, n := range names {
		c.Add(n)
	}
	return c
}

func (c *CollapsedNames) Add(name string) {
	if name == "" {
		return
	}
	if c.set == nil {
		c.set = NewSet[string]()
	}
	c.set.Add(name)
}

func (c *CollapsedNames) Remove(name string) {
	if c.set == nil {
		return
	}
	c.set.Remove(name)
}

// Clear forgets every name.
func (c *CollapsedNames) Clear() {
	if c.set == nil {
		c.set = NewSet[string]()
		return
	}
	c.set.Clear()
}

func (c *CollapsedNames) Contains(name string) bool {
	if c == nil || c.set == nil {
		return false
	}
	return c.set.Contains(name)
}

func (c *CollapsedNames) Len() int {
	if c == nil || c.set == nil {
		return 0
	}
	return c.set.Size()
}

// Names returns the names in ascending order.
func (c *CollapsedNames) Names() []string {
	if c == nil || c.set == nil {
		return []string{}
	}
	names := c.set.ToSlice()
	slices.Sort(names)
	return names
}

// Clone returns an independent copy.
func (c *CollapsedNames) Clone() *CollapsedNames {
	return NewCollapsedNames(c.Names()...)
}

// Equal reports whether both sets hold the same names.
func (c *CollapsedNames) Equal(other *CollapsedNames) bool {
	return slices.Equal(c.Names(), other.Names())
}

func (c *CollapsedNames) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Names())
}

func (c *CollapsedNames) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	c.Clear()
	for _, n := range names {
		c.Add(n)
	}
	return nil
}
