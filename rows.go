package propgrid

import (
	"time"

	"go.uber.org/zap"
)

// Row is the view projection of one property. Rows are cached by property
// identity and survive rebuilds until the model is replaced.
type Row struct {
	Property  Property
	Visible   bool
	Collapsed bool
	// Composite is true for a ComposedProperty that has at least one child.
	// Only composite rows can be collapsed.
	Composite bool
	RowIndex  int
	// IndentationLevel is 0 for the children of the root.
	IndentationLevel int
	// IndentationClosings is the number of ancestor tree lines that end at
	// this row. A view draws IndentationLevel-IndentationClosings straight
	// lines and IndentationClosings elbows.
	IndentationClosings int

	compositeSet bool
}

// ContentIndent returns the indentation of the row's label in indentation
// units. Composite rows leave room for the collapse icon; leaf rows are moved
// by shift, clamped to -1..1.
func (r *Row) ContentIndent(shift int) int {
	if r.Composite {
		return r.IndentationLevel + 1
	}
	return max(0, r.IndentationLevel+ClampIndentShift(shift))
}

// RowListener is notified by a RowModel.
type RowListener interface {
	// RowsChanged reports that the row list was rebuilt.
	RowsChanged()
	// RowUpdated reports a metadata or value change of the row at index.
	RowUpdated(index int)
}

// RowListenerFuncs adapts plain functions to RowListener.
type RowListenerFuncs struct {
	OnRowsChanged func()
	OnRowUpdated  func(index int)
}

func (f RowListenerFuncs) RowsChanged() {
	if f.OnRowsChanged != nil {
		f.OnRowsChanged()
	}
}

func (f RowListenerFuncs) RowUpdated(index int) {
	if f.OnRowUpdated != nil {
		f.OnRowUpdated(index)
	}
}

// RowModelOption configures a RowModel.
type RowModelOption func(*RowModel)

// WithCollapsedNames seeds the collapsed state of named properties.
func WithCollapsedNames(names *CollapsedNames) RowModelOption {
	return func(m *RowModel) {
		m.collapsed = names.Clone()
	}
}

func WithRowListener(l RowListener) RowModelOption {
	return func(m *RowModel) {
		m.AddRowListener(l)
	}
}

// WithSnapshotCompositeFlag computes a row's Composite flag only when the row
// is created instead of on every rebuild.
func WithSnapshotCompositeFlag() RowModelOption {
	return func(m *RowModel) {
		m.snapshotComposite = true
	}
}

// WithLeafIndentShift sets the indentation shift of leaf rows, see
// Row.ContentIndent.
func WithLeafIndentShift(shift int) RowModelOption {
	return func(m *RowModel) {
		m.leafIndentShift = ClampIndentShift(shift)
	}
}

func WithLogger(logger *zap.Logger) RowModelOption {
	return func(m *RowModel) {
		m.logger = logger
	}
}

// RowModel projects a property tree onto the ordered list of visible rows.
// It is not safe for concurrent use; all calls and the tree mutations it
// observes must happen on one goroutine.
type RowModel struct {
	root      *ComposedProperty
	rootSub   *Subscription
	cache     map[Property]*Row
	rows      []*Row
	collapsed *CollapsedNames
	listeners []*rowSubscription
	selected  Property

	snapshotComposite bool
	leafIndentShift   int
	logger            *zap.Logger

	rebuilding bool
	pending    bool
}

type rowSubscription struct {
	listener RowListener
}

// NewRowModel creates an empty row model.
func NewRowModel(opts ...RowModelOption) *RowModel {
	m := &RowModel{
		cache:     make(map[Property]*Row),
		collapsed: NewCollapsedNames(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.L()
	}
	return m
}

// AddRowListener registers l and returns a function that unregisters it.
func (m *RowModel) AddRowListener(l RowListener) (remove func()) {
	s := &rowSubscription{listener: l}
	next := make([]*rowSubscription, len(m.listeners), len(m.listeners)+1)
	copy(next, m.listeners)
	m.listeners = append(next, s)
	return func() {
		kept := make([]*rowSubscription, 0, len(m.listeners))
		for _, other := range m.listeners {
			if other != s {
				kept = append(kept, other)
			}
		}
		m.listeners = kept
	}
}

// Model returns the projected root, or nil.
func (m *RowModel) Model() *ComposedProperty { return m.root }

// SetModel replaces the projected tree. The row cache is discarded, so rows of
// the new tree are seeded from the collapsed-name set. Setting the current
// root again does nothing.
func (m *RowModel) SetModel(root *ComposedProperty) {
	if root == m.root {
		return
	}
	if m.rootSub != nil {
		m.rootSub.Remove()
		m.rootSub = nil
	}
	m.root = root
	m.cache = make(map[Property]*Row)
	m.selected = nil
	if root != nil {
		m.rootSub = root.AddListener(rootListener{m})
	}
	m.Rebuild()
}

// rootListener forwards tree events to the model.
type rootListener struct {
	m *RowModel
}

func (l rootListener) PropertyChanged(p Property)      { l.m.rowUpdated(p) }
func (l rootListener) PropertyValueChanged(p Property) { l.m.rowUpdated(p) }

func (l rootListener) SubpropertyListChanged(*ComposedProperty) { l.m.Rebuild() }

func (m *RowModel) rowUpdated(p Property) {
	row, ok := m.cache[p]
	if !ok || !row.Visible {
		return
	}
	for _, s := range m.listeners {
		s.listener.RowUpdated(row.RowIndex)
	}
}

// Rebuild recomputes the visible rows and notifies row listeners. A rebuild
// requested while one is running (from a listener) is performed right after
// the current one finishes.
func (m *RowModel) Rebuild() {
	if m.rebuilding {
		m.pending = true
		return
	}
	m.rebuilding = true
	defer func() { m.rebuilding = false }()

	for {
		m.pending = false
		m.project()
		for _, s := range m.listeners {
			s.listener.RowsChanged()
		}
		if !m.pending {
			return
		}
	}
}

func (m *RowModel) project() {
	start := time.Now()
	for _, row := range m.rows {
		row.Visible = false
	}
	m.rows = nil

	if m.root == nil {
		m.selected = nil
		return
	}

	m.appendRows(m.root, -1)

	for i, row := range m.rows {
		if i+1 < len(m.rows) {
			row.IndentationClosings = max(row.IndentationLevel-m.rows[i+1].IndentationLevel, 0)
		} else {
			row.IndentationClosings = row.IndentationLevel
		}
	}

	m.fixSelection()

	m.logger.Debug("rows rebuilt",
		zap.Int("visible", len(m.rows)),
		zap.Int("cached", len(m.cache)),
		zap.Duration("elapsed", time.Since(start)))
}

func (m *RowModel) appendRows(parent *ComposedProperty, parentLevel int) {
	for _, child := range parent.subproperties.items {
		row := m.rowFor(child)
		row.IndentationLevel = parentLevel + 1
		row.Visible = true
		row.RowIndex = len(m.rows)
		m.rows = append(m.rows, row)

		if cp, ok := child.(*ComposedProperty); ok && !row.Collapsed {
			m.appendRows(cp, row.IndentationLevel)
		}
	}
}

func (m *RowModel) rowFor(p Property) *Row {
	row, ok := m.cache[p]
	if !ok {
		row = &Row{Property: p}
		if name := p.Name(); name != "" {
			row.Collapsed = m.collapsed.Contains(name)
		}
		m.cache[p] = row
	}
	if !m.snapshotComposite || !row.compositeSet {
		cp, ok := p.(*ComposedProperty)
		row.Composite = ok && cp.subproperties.Len() > 0
		row.compositeSet = true
	}
	return row
}

// fixSelection moves a hidden selection to its nearest visible ancestor and
// clears a selection that left the tree.
func (m *RowModel) fixSelection() {
	if m.selected == nil {
		return
	}
	if m.Property(m.selected) == nil {
		m.selected = nil
		return
	}
	for p := m.selected; p != nil; {
		if row, ok := m.cache[p]; ok && row.Visible {
			m.selected = p
			return
		}
		parent := p.Parent()
		if parent == nil || parent == m.root {
			break
		}
		p = parent
	}
	m.selected = nil
}

// Property returns p if it belongs to the projected tree, otherwise nil.
func (m *RowModel) Property(p Property) Property {
	if m.root == nil || isNilProperty(p) || !IsAncestor(m.root, p) {
		return nil
	}
	return p
}

// Rows returns the visible rows in display order.
func (m *RowModel) Rows() []*Row {
	out := make([]*Row, len(m.rows))
	copy(out, m.rows)
	return out
}

func (m *RowModel) RowCount() int { return len(m.rows) }

// RowAt returns the visible row at index i, or nil when out of range.
func (m *RowModel) RowAt(i int) *Row {
	if i < 0 || i >= len(m.rows) {
		return nil
	}
	return m.rows[i]
}

// RowOf returns the cached row of p, visible or not, or nil.
func (m *RowModel) RowOf(p Property) *Row {
	return m.cache[p]
}

// LeafIndentShift returns the configured leaf indentation shift.
func (m *RowModel) LeafIndentShift() int { return m.leafIndentShift }

// ContentIndent returns row.ContentIndent with the model's leaf shift.
func (m *RowModel) ContentIndent(row *Row) int {
	return row.ContentIndent(m.leafIndentShift)
}

// ============================================================================
// Collapse state
// ============================================================================

// CollapsedNames returns a copy of the names of collapsed properties.
func (m *RowModel) CollapsedNames() *CollapsedNames {
	return m.collapsed.Clone()
}

// RestoreCollapsedNames replaces the collapsed-name set. Cached rows of named
// properties are re-seeded from it before the rows are rebuilt.
func (m *RowModel) RestoreCollapsedNames(names *CollapsedNames) {
	m.collapsed = names.Clone()
	for p, row := range m.cache {
		if name := p.Name(); name != "" {
			row.Collapsed = m.collapsed.Contains(name)
		}
	}
	m.Rebuild()
}

// ToggleCollapsed flips the collapsed state of p's row and reports whether
// the state changed. Only visible composite rows toggle.
func (m *RowModel) ToggleCollapsed(p Property) bool {
	row, ok := m.cache[p]
	if !ok || !row.Visible || !row.Composite {
		return false
	}
	m.applyCollapsed(row, !row.Collapsed)
	m.Rebuild()
	return true
}

// SetCollapsed sets the collapsed state of p's row and reports whether it
// changed.
func (m *RowModel) SetCollapsed(p Property, collapsed bool) bool {
	row, ok := m.cache[p]
	if !ok || !row.Visible || !row.Composite || row.Collapsed == collapsed {
		return false
	}
	m.applyCollapsed(row, collapsed)
	m.Rebuild()
	return true
}

// ToggleRow toggles the row at index i.
func (m *RowModel) ToggleRow(i int) bool {
	row := m.RowAt(i)
	if row == nil {
		return false
	}
	return m.ToggleCollapsed(row.Property)
}

// ExpandAll expands every composite of the tree, including those hidden
// under collapsed ancestors.
func (m *RowModel) ExpandAll() {
	m.setAll(false)
}

// CollapseAll collapses every composite of the tree.
func (m *RowModel) CollapseAll() {
	m.setAll(true)
}

func (m *RowModel) setAll(collapsed bool) {
	if m.root == nil {
		return
	}
	changed := false
	m.root.Walk(func(p Property) bool {
		cp, ok := p.(*ComposedProperty)
		if !ok || cp.subproperties.Len() == 0 {
			return true
		}
		row := m.rowFor(cp)
		if row.Collapsed != collapsed {
			m.applyCollapsed(row, collapsed)
			changed = true
		}
		return true
	})
	if changed {
		m.Rebuild()
	}
}

func (m *RowModel) applyCollapsed(row *Row, collapsed bool) {
	row.Collapsed = collapsed
	name := row.Property.Name()
	if name == "" {
		return
	}
	if collapsed {
		m.collapsed.Add(name)
	} else {
		m.collapsed.Remove(name)
	}
}

// ============================================================================
// Selection and editing
// ============================================================================

// Select selects p. A property outside the projected tree clears the
// selection; a hidden one selects its nearest visible ancestor.
func (m *RowModel) Select(p Property) {
	m.selected = m.Property(p)
	m.fixSelection()
}

// SelectRow selects the property of the row at index i; an invalid index
// clears the selection.
func (m *RowModel) SelectRow(i int) {
	row := m.RowAt(i)
	if row == nil {
		m.selected = nil
		return
	}
	m.selected = row.Property
}

// Selected returns the selected property, or nil.
func (m *RowModel) Selected() Property { return m.selected }

// SelectedIndex returns the row index of the selected property, or -1.
func (m *RowModel) SelectedIndex() int {
	if m.selected == nil {
		return -1
	}
	row, ok := m.cache[m.selected]
	if !ok || !row.Visible {
		return -1
	}
	return row.RowIndex
}

// SetValueAt routes an edit to the property of the row at index i. Read-only
// properties refuse edits.
func (m *RowModel) SetValueAt(i int, v any) error {
	row := m.RowAt(i)
	if row == nil {
		return NewIndexOutOfRangeError(i, len(m.rows))
	}
	if row.Property.ReadOnly() {
		return NewReadOnlyPropertyError(row.Property.Name())
	}
	return row.Property.SetValue(v)
}
