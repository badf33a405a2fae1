package propgrid

// Listener receives change notifications. An event raised at a node is
// delivered to the node's listeners and then to those of every ancestor up to
// the root; the argument is always the node where the change happened.
type Listener interface {
	// PropertyChanged reports a change of display metadata (label, hint,
	// hint title, importance, read-only flag).
	PropertyChanged(p Property)
	PropertyValueChanged(p Property)
	// SubpropertyListChanged reports an insertion, replacement or removal in
	// the child list of c.
	SubpropertyListChanged(c *ComposedProperty)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	OnPropertyChanged        func(p Property)
	OnPropertyValueChanged   func(p Property)
	OnSubpropertyListChanged func(c *ComposedProperty)
}

func (f ListenerFuncs) PropertyChanged(p Property) {
	if f.OnPropertyChanged != nil {
		f.OnPropertyChanged(p)
	}
}

func (f ListenerFuncs) PropertyValueChanged(p Property) {
	if f.OnPropertyValueChanged != nil {
		f.OnPropertyValueChanged(p)
	}
}

func (f ListenerFuncs) SubpropertyListChanged(c *ComposedProperty) {
	if f.OnSubpropertyListChanged != nil {
		f.OnSubpropertyListChanged(c)
	}
}

// Subscription is the handle of a registered listener.
type Subscription struct {
	owner    *propertyBase
	listener Listener
}

// Remove unregisters the listener. Calling it more than once has no effect.
func (s *Subscription) Remove() {
	if s == nil || s.owner == nil {
		return
	}
	b := s.owner
	s.owner = nil
	// Listener slices are never mutated in place; deliveries in progress keep
	// iterating over their snapshot.
	next := make([]*Subscription, 0, len(b.listeners))
	for _, other := range b.listeners {
		if other != s {
			next = append(next, other)
		}
	}
	b.listeners = next
}

// AddListener registers l on this node. Registering during a delivery takes
// effect from the next event.
func (b *propertyBase) AddListener(l Listener) *Subscription {
	s := &Subscription{owner: b, listener: l}
	next := make([]*Subscription, len(b.listeners), len(b.listeners)+1)
	copy(next, b.listeners)
	b.listeners = append(next, s)
	return s
}

// ListenerCount returns the number of listeners registered directly on p.
func ListenerCount(p Property) int {
	return len(p.base().listeners)
}

func bubble(origin Property, deliver func(Listener)) {
	for n := origin; n != nil; {
		b := n.base()
		for _, s := range b.listeners {
			deliver(s.listener)
		}
		if b.parent == nil {
			return
		}
		n = b.parent
	}
}

func firePropertyChanged(p Property) {
	bubble(p, func(l Listener) { l.PropertyChanged(p) })
}

func firePropertyValueChanged(p Property) {
	bubble(p, func(l Listener) { l.PropertyValueChanged(p) })
}

func fireSubpropertyListChanged(c *ComposedProperty) {
	bubble(c, func(l Listener) { l.SubpropertyListChanged(c) })
}
