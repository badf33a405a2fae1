package propgrid

import (
	"iter"
	"slices"
)

// PropertyList is the ordered child list of a ComposedProperty. A property
// belongs to at most one list; adding it elsewhere moves it. Every mutation
// fires exactly one SubpropertyListChanged at the owning composite, and a move
// fires one more at the composite it was taken from. Events are fired only
// after both lists are updated, so listeners may mutate the tree.
type PropertyList struct {
	owner   *ComposedProperty
	items   []Property
	members map[Property]struct{}
}

func (l *PropertyList) Len() int { return len(l.items) }

// At returns the child at index i. It panics if i is out of range.
func (l *PropertyList) At(i int) Property { return l.items[i] }

// All iterates over the children in order. Mutations during iteration do not
// affect it.
func (l *PropertyList) All() iter.Seq2[int, Property] {
	items := l.Snapshot()
	return func(yield func(int, Property) bool) {
		for i, p := range items {
			if !yield(i, p) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the children.
func (l *PropertyList) Snapshot() []Property {
	return slices.Clone(l.items)
}

// IndexOf returns the position of p, or -1.
func (l *PropertyList) IndexOf(p Property) int {
	if _, ok := l.members[p]; !ok {
		return -1
	}
	return slices.Index(l.items, p)
}

func (l *PropertyList) Contains(p Property) bool {
	_, ok := l.members[p]
	return ok
}

// Append adds p at the end of the list.
func (l *PropertyList) Append(p Property) error {
	return l.Insert(len(l.items), p)
}

// Insert adds p at index i, 0 <= i <= Len(). If p belongs to another
// composite it is removed from there first.
func (l *PropertyList) Insert(i int, p Property) error {
	if i < 0 || i > len(l.items) {
		return NewIndexOutOfRangeError(i, len(l.items))
	}
	if err := l.checkCandidate(p); err != nil {
		return err
	}
	from := detachFromParent(p)
	l.items = slices.Insert(l.items, i, p)
	l.attach(p)
	l.fireMoved(from)
	return nil
}

// Replace puts p at index i and detaches the property previously there.
// Replacing a child with itself does nothing.
func (l *PropertyList) Replace(i int, p Property) error {
	if i < 0 || i >= len(l.items) {
		return NewIndexOutOfRangeError(i, len(l.items))
	}
	if l.items[i] == p {
		return nil
	}
	if err := l.checkCandidate(p); err != nil {
		return err
	}
	from := detachFromParent(p)
	old := l.items[i]
	l.release(old)
	l.items[i] = p
	l.attach(p)
	l.fireMoved(from)
	return nil
}

// RemoveAt detaches and returns the child at index i.
func (l *PropertyList) RemoveAt(i int) (Property, error) {
	if i < 0 || i >= len(l.items) {
		return nil, NewIndexOutOfRangeError(i, len(l.items))
	}
	p := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.release(p)
	fireSubpropertyListChanged(l.owner)
	return p, nil
}

// Remove detaches p and reports whether it was a member.
func (l *PropertyList) Remove(p Property) bool {
	i := l.IndexOf(p)
	if i < 0 {
		return false
	}
	_, _ = l.RemoveAt(i)
	return true
}

// Clear detaches every child. An empty list fires nothing.
func (l *PropertyList) Clear() {
	if len(l.items) == 0 {
		return
	}
	for _, p := range l.items {
		l.release(p)
	}
	l.items = nil
	fireSubpropertyListChanged(l.owner)
}

func (l *PropertyList) checkCandidate(p Property) error {
	if isNilProperty(p) {
		return NewNilChildError()
	}
	if l.Contains(p) {
		return NewDuplicateChildError(p.Name())
	}
	if cp, ok := p.(*ComposedProperty); ok {
		if cp == l.owner || IsAncestor(cp, l.owner) {
			return NewCycleError(cp.Name())
		}
	}
	return nil
}

func (l *PropertyList) attach(p Property) {
	l.members[p] = struct{}{}
	p.base().parent = l.owner
}

func (l *PropertyList) release(p Property) {
	delete(l.members, p)
	p.base().parent = nil
}

// detachFromParent removes p from its current list without firing and
// returns the composite it was taken from, or nil.
func detachFromParent(p Property) *ComposedProperty {
	old := p.base().parent
	if old == nil {
		return nil
	}
	list := old.subproperties
	i := slices.Index(list.items, p)
	if i < 0 {
		return nil
	}
	list.items = slices.Delete(list.items, i, i+1)
	list.release(p)
	return old
}

// fireMoved reports a completed insertion, first at the composite the
// property was taken from.
func (l *PropertyList) fireMoved(from *ComposedProperty) {
	if from != nil {
		fireSubpropertyListChanged(from)
	}
	fireSubpropertyListChanged(l.owner)
}
