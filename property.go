package propgrid

// Property is a node of the property tree: either a *SimpleProperty holding a
// single typed value or a *ComposedProperty grouping an ordered list of
// subproperties. The set of implementations is closed.
type Property interface {
	// Name identifies the property for lookups and persisted view state.
	// The empty string means unnamed.
	Name() string
	SetName(name string)

	Label() string
	SetLabel(label string)
	Hint() string
	SetHint(hint string)
	HintTitle() string
	SetHintTitle(title string)
	Important() bool
	SetImportant(important bool)
	ReadOnly() bool
	SetReadOnly(readOnly bool) error

	// Type is nil only for pure grouping composites.
	Type() PropertyType
	Parent() *ComposedProperty

	Value() any
	SetValue(v any) error
	ResetToDefault() error

	AddListener(l Listener) *Subscription

	base() *propertyBase
}

// propertyBase holds the state shared by both property kinds.
type propertyBase struct {
	self      Property
	name      string
	label     string
	hint      string
	hintTitle string
	important bool
	readOnly  bool
	typ       PropertyType
	parent    *ComposedProperty
	listeners []*Subscription
}

func (b *propertyBase) init(self Property, name string, t PropertyType) {
	b.self = self
	b.name = name
	b.typ = t
	b.readOnly = t == nil || t.IsReadOnly()
}

func (b *propertyBase) base() *propertyBase { return b }

func (b *propertyBase) Name() string { return b.name }

// SetName renames the property. Names are identifiers, not display data, so
// no event is fired.
func (b *propertyBase) SetName(name string) { b.name = name }

func (b *propertyBase) Label() string { return b.label }

func (b *propertyBase) SetLabel(label string) {
	if b.label == label {
		return
	}
	b.label = label
	firePropertyChanged(b.self)
}

func (b *propertyBase) Hint() string { return b.hint }

func (b *propertyBase) SetHint(hint string) {
	if b.hint == hint {
		return
	}
	b.hint = hint
	firePropertyChanged(b.self)
}

func (b *propertyBase) HintTitle() string { return b.hintTitle }

func (b *propertyBase) SetHintTitle(title string) {
	if b.hintTitle == title {
		return
	}
	b.hintTitle = title
	firePropertyChanged(b.self)
}

func (b *propertyBase) Important() bool { return b.important }

func (b *propertyBase) SetImportant(important bool) {
	if b.important == important {
		return
	}
	b.important = important
	firePropertyChanged(b.self)
}

func (b *propertyBase) ReadOnly() bool { return b.readOnly }

// SetReadOnly changes the read-only flag. A property can only be made
// editable when its type is editable.
func (b *propertyBase) SetReadOnly(readOnly bool) error {
	if b.readOnly == readOnly {
		return nil
	}
	if !readOnly && (b.typ == nil || b.typ.IsReadOnly()) {
		return NewReadOnlyTypeError(b.name)
	}
	b.readOnly = readOnly
	firePropertyChanged(b.self)
	return nil
}

func (b *propertyBase) Type() PropertyType { return b.typ }

func (b *propertyBase) Parent() *ComposedProperty { return b.parent }

// DisplayLabel returns the label, or the name when no label is set.
func DisplayLabel(p Property) string {
	if p.Label() != "" {
		return p.Label()
	}
	return p.Name()
}

// HintFor returns the title and text shown in the hint box for p. The title
// falls back to the display label.
func HintFor(p Property) (title, text string) {
	title = p.HintTitle()
	if title == "" {
		title = DisplayLabel(p)
	}
	return title, p.Hint()
}

// Path returns the names from the topmost ancestor down to p.
func Path(p Property) []string {
	var names []string
	for n := p; n != nil; {
		names = append(names, n.Name())
		parent := n.Parent()
		if parent == nil {
			break
		}
		n = parent
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// IsAncestor reports whether a is a proper ancestor of p.
func IsAncestor(a *ComposedProperty, p Property) bool {
	if a == nil || p == nil {
		return false
	}
	for c := p.Parent(); c != nil; c = c.parent {
		if c == a {
			return true
		}
	}
	return false
}

func isNilProperty(p Property) bool {
	switch v := p.(type) {
	case nil:
		return true
	case *SimpleProperty:
		return v == nil
	case *ComposedProperty:
		return v == nil
	default:
		return false
	}
}
