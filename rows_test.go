package propgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowNames(m *RowModel) []string {
	var names []string
	for _, r := range m.Rows() {
		names = append(names, r.Property.Name())
	}
	return names
}

type rowState struct {
	name      string
	index     int
	level     int
	closings  int
	collapsed bool
	composite bool
}

func rowStates(m *RowModel) []rowState {
	var out []rowState
	for _, r := range m.Rows() {
		out = append(out, rowState{
			name:      r.Property.Name(),
			index:     r.RowIndex,
			level:     r.IndentationLevel,
			closings:  r.IndentationClosings,
			collapsed: r.Collapsed,
			composite: r.Composite,
		})
	}
	return out
}

// chain builds root -> A -> B -> leaf.
func chain(t *testing.T) (root, a, b *ComposedProperty, leaf *SimpleProperty) {
	t.Helper()
	leaf = newLeaf(t, "leaf")
	b = appendAll(t, NewComposedProperty("B"), leaf)
	a = appendAll(t, NewComposedProperty("A"), b)
	root = appendAll(t, NewComposedProperty("root"), a)
	return root, a, b, leaf
}

// =============================================================================
// Projection
// =============================================================================

func TestRowModel_EmptyModel(t *testing.T) {
	changes := 0
	m := NewRowModel(WithRowListener(RowListenerFuncs{OnRowsChanged: func() { changes++ }}))
	assert.Equal(t, 0, m.RowCount())
	assert.Nil(t, m.RowAt(0))

	m.SetModel(nil)
	assert.Equal(t, 0, changes)
}

func TestRowModel_FullyExpanded(t *testing.T) {
	root, _, _, _ := chain(t)
	m := NewRowModel()
	m.SetModel(root)

	assert.Equal(t, []string{"A", "B", "leaf"}, rowNames(m))
	assert.Equal(t, []rowState{
		{"A", 0, 0, 0, false, true},
		{"B", 1, 1, 0, false, true},
		{"leaf", 2, 2, 2, false, false},
	}, rowStates(m))
}

func TestRowModel_ProjectionPruning(t *testing.T) {
	root, a, b, _ := chain(t)
	m := NewRowModel(WithCollapsedNames(NewCollapsedNames("A", "B")))
	m.SetModel(root)
	assert.Equal(t, []string{"A"}, rowNames(m))
	assert.Nil(t, m.RowOf(b))

	require.True(t, m.ToggleCollapsed(a))
	assert.Equal(t, []string{"A", "B"}, rowNames(m))

	require.True(t, m.ToggleCollapsed(b))
	assert.Equal(t, []string{"A", "B", "leaf"}, rowNames(m))
}

func TestRowModel_HiddenRowsAreMarkedInvisible(t *testing.T) {
	root, a, b, leaf := chain(t)
	m := NewRowModel()
	m.SetModel(root)

	require.True(t, m.ToggleCollapsed(a))
	assert.True(t, m.RowOf(a).Visible)
	assert.False(t, m.RowOf(b).Visible)
	assert.False(t, m.RowOf(leaf).Visible)

	// cached collapse state of B survives while hidden
	require.True(t, m.ToggleCollapsed(a))
	assert.False(t, m.ToggleCollapsed(leaf))
	require.True(t, m.SetCollapsed(b, true))
	require.True(t, m.ToggleCollapsed(a))
	require.True(t, m.ToggleCollapsed(a))
	assert.Equal(t, []string{"A", "B"}, rowNames(m))
}

func TestRowModel_ClosingsFollowLevelDrops(t *testing.T) {
	// levels 0, 1, 2, 1
	x := newLeaf(t, "x")
	inner := appendAll(t, NewComposedProperty("inner"), x)
	y := newLeaf(t, "y")
	top := appendAll(t, NewComposedProperty("top"), inner, y)
	root := appendAll(t, NewComposedProperty("root"), top)

	m := NewRowModel()
	m.SetModel(root)

	var levels, closings []int
	for _, r := range m.Rows() {
		levels = append(levels, r.IndentationLevel)
		closings = append(closings, r.IndentationClosings)
	}
	assert.Equal(t, []int{0, 1, 2, 1}, levels)
	assert.Equal(t, []int{0, 0, 1, 1}, closings)
}

func TestRowModel_ClosingsOfSiblingsAtRoot(t *testing.T) {
	root := appendAll(t, NewComposedProperty("root"), newLeaf(t, "a"), newLeaf(t, "b"))
	m := NewRowModel()
	m.SetModel(root)

	assert.Equal(t, []rowState{
		{"a", 0, 0, 0, false, false},
		{"b", 1, 0, 0, false, false},
	}, rowStates(m))
}

func TestRowModel_Idempotence(t *testing.T) {
	root, a, _, _ := chain(t)
	appendAll(t, a, newLeaf(t, "tail"))
	m := NewRowModel()
	m.SetModel(root)

	first := rowStates(m)
	m.Rebuild()
	assert.Equal(t, first, rowStates(m))
}

func TestRowModel_RebuildsOnStructuralChange(t *testing.T) {
	root, a, _, _ := chain(t)
	changes := 0
	m := NewRowModel(WithRowListener(RowListenerFuncs{OnRowsChanged: func() { changes++ }}))
	m.SetModel(root)
	require.Equal(t, 1, changes)

	require.NoError(t, a.Subproperties().Append(newLeaf(t, "extra")))
	assert.Equal(t, 2, changes)
	assert.Equal(t, []string{"A", "B", "leaf", "extra"}, rowNames(m))

	_, err := root.Subproperties().RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, 3, changes)
	assert.Empty(t, rowNames(m))
}

func TestRowModel_RowUpdatedForVisibleRows(t *testing.T) {
	root, a, _, leaf := chain(t)
	var updated []int
	m := NewRowModel(WithRowListener(RowListenerFuncs{OnRowUpdated: func(i int) { updated = append(updated, i) }}))
	m.SetModel(root)

	leaf.SetLabel("Leaf")
	require.NoError(t, leaf.SetValue("v"))
	assert.Equal(t, []int{2, 2}, updated)

	require.True(t, m.ToggleCollapsed(a))
	leaf.SetLabel("Hidden")
	assert.Equal(t, []int{2, 2}, updated)
}

func TestRowModel_SetModelDetachesOldRoot(t *testing.T) {
	oldRoot, _, _, _ := chain(t)
	m := NewRowModel()
	m.SetModel(oldRoot)
	assert.Equal(t, 1, ListenerCount(oldRoot))

	newRoot := appendAll(t, NewComposedProperty("root"), newLeaf(t, "only"))
	m.SetModel(newRoot)
	assert.Equal(t, 0, ListenerCount(oldRoot))
	assert.Equal(t, 1, ListenerCount(newRoot))
	assert.Equal(t, []string{"only"}, rowNames(m))

	m.SetModel(newRoot)
	assert.Equal(t, 1, ListenerCount(newRoot))
	assert.Same(t, newRoot, m.Model())
}

// =============================================================================
// Composite flag
// =============================================================================

func TestRowModel_CompositeFlagRecomputed(t *testing.T) {
	empty := NewComposedProperty("group")
	root := appendAll(t, NewComposedProperty("root"), empty)
	m := NewRowModel()
	m.SetModel(root)
	assert.False(t, m.RowOf(empty).Composite)
	assert.False(t, m.ToggleCollapsed(empty))

	require.NoError(t, empty.Subproperties().Append(newLeaf(t, "child")))
	assert.True(t, m.RowOf(empty).Composite)
	assert.True(t, m.ToggleCollapsed(empty))
}

func TestRowModel_SnapshotCompositeFlag(t *testing.T) {
	empty := NewComposedProperty("group")
	root := appendAll(t, NewComposedProperty("root"), empty)
	m := NewRowModel(WithSnapshotCompositeFlag())
	m.SetModel(root)

	require.NoError(t, empty.Subproperties().Append(newLeaf(t, "child")))
	assert.False(t, m.RowOf(empty).Composite)
	// children are still projected, the row just cannot be toggled
	assert.Equal(t, []string{"group", "child"}, rowNames(m))
}

// =============================================================================
// Collapse state
// =============================================================================

func TestRowModel_CollapsedNamesRoundTrip(t *testing.T) {
	build := func() *ComposedProperty {
		root, _, _, _ := chain(t)
		unnamed := appendAll(t, NewComposedProperty(""), newLeaf(t, "u"))
		appendAll(t, root, unnamed)
		return root
	}

	first := build()
	m := NewRowModel()
	m.SetModel(first)
	require.True(t, m.ToggleCollapsed(first.Find("B")))
	require.True(t, m.ToggleRow(2)) // the unnamed composite, below the collapsed B
	saved, err := m.CollapsedNames().MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["B"]`, string(saved))

	restored := NewCollapsedNames()
	require.NoError(t, restored.UnmarshalJSON(saved))

	second := build()
	fresh := NewRowModel(WithCollapsedNames(restored))
	fresh.SetModel(second)
	assert.True(t, fresh.RowOf(second.Find("B")).Collapsed)
	assert.False(t, fresh.RowOf(second.Find("A")).Collapsed)
	// unnamed properties start expanded
	assert.Equal(t, []string{"A", "B", "", "u"}, rowNames(fresh))
}

func TestRowModel_RestoreCollapsedNames(t *testing.T) {
	root, a, _, _ := chain(t)
	m := NewRowModel()
	m.SetModel(root)
	require.Len(t, m.Rows(), 3)

	m.RestoreCollapsedNames(NewCollapsedNames("A"))
	assert.Equal(t, []string{"A"}, rowNames(m))
	assert.True(t, m.RowOf(a).Collapsed)

	names := m.CollapsedNames()
	names.Add("B")
	assert.False(t, m.CollapsedNames().Contains("B"))
}

func TestRowModel_ExpandAllCollapseAll(t *testing.T) {
	root, a, b, _ := chain(t)
	m := NewRowModel()
	m.SetModel(root)

	m.CollapseAll()
	assert.Equal(t, []string{"A"}, rowNames(m))
	assert.Equal(t, []string{"A", "B"}, m.CollapsedNames().Names())
	assert.True(t, m.RowOf(b).Collapsed)

	m.ExpandAll()
	assert.Equal(t, []string{"A", "B", "leaf"}, rowNames(m))
	assert.Equal(t, 0, m.CollapsedNames().Len())
	assert.False(t, m.RowOf(a).Collapsed)
}

// =============================================================================
// Selection and editing
// =============================================================================

func TestRowModel_SelectionFollowsProperty(t *testing.T) {
	root, a, b, leaf := chain(t)
	first := newLeaf(t, "first")
	require.NoError(t, root.Subproperties().Insert(0, first))

	m := NewRowModel()
	m.SetModel(root)
	m.Select(leaf)
	assert.Equal(t, 3, m.SelectedIndex())

	// a structural change above the selection keeps the same property
	_, err := root.Subproperties().RemoveAt(0)
	require.NoError(t, err)
	assert.Same(t, leaf, m.Selected())
	assert.Equal(t, 2, m.SelectedIndex())

	// collapsing an ancestor moves the selection to the visible ancestor
	require.True(t, m.ToggleCollapsed(b))
	assert.Same(t, b, m.Selected())
	require.True(t, m.ToggleCollapsed(a))
	assert.Same(t, a, m.Selected())

	// removal from the tree clears the selection
	require.True(t, root.Subproperties().Remove(a))
	assert.Nil(t, m.Selected())
	assert.Equal(t, -1, m.SelectedIndex())
}

func TestRowModel_SelectRowAndOutsideProperty(t *testing.T) {
	root, a, _, _ := chain(t)
	m := NewRowModel()
	m.SetModel(root)

	m.SelectRow(0)
	assert.Same(t, a, m.Selected())
	m.SelectRow(42)
	assert.Nil(t, m.Selected())

	m.Select(newLeaf(t, "stranger"))
	assert.Nil(t, m.Selected())
}

func TestRowModel_SetValueAt(t *testing.T) {
	locked, err := NewSimpleProperty("locked", ReadOnly(StringType{}))
	require.NoError(t, err)
	open := newIntLeaf(t, "open", 0, 10)
	root := appendAll(t, NewComposedProperty("root"), locked, open)

	m := NewRowModel()
	m.SetModel(root)

	err = m.SetValueAt(0, "x")
	assert.True(t, HasCode(err, ErrCodeReadOnlyProperty))

	require.NoError(t, m.SetValueAt(1, 4))
	assert.Equal(t, int64(4), open.Value())

	assert.True(t, IsInvalidValueError(m.SetValueAt(1, 40)))
	assert.True(t, HasCode(m.SetValueAt(5, 1), ErrCodeIndexOutOfRange))
}

// =============================================================================
// Re-entrancy and indentation
// =============================================================================

func TestRowModel_MutationFromRowListener(t *testing.T) {
	root := appendAll(t, NewComposedProperty("root"), newLeaf(t, "a"))
	m := NewRowModel()

	added := false
	m.AddRowListener(RowListenerFuncs{OnRowsChanged: func() {
		if !added {
			added = true
			require.NoError(t, root.Subproperties().Append(newLeaf(t, "b")))
		}
	}})
	m.SetModel(root)

	assert.Equal(t, []string{"a", "b"}, rowNames(m))
}

func TestRowModel_RemoveRowListener(t *testing.T) {
	root := appendAll(t, NewComposedProperty("root"), newLeaf(t, "a"))
	changes := 0
	m := NewRowModel()
	remove := m.AddRowListener(RowListenerFuncs{OnRowsChanged: func() { changes++ }})
	m.SetModel(root)
	remove()
	m.Rebuild()
	assert.Equal(t, 1, changes)
}

func TestRow_ContentIndent(t *testing.T) {
	composite := &Row{Composite: true, IndentationLevel: 2}
	leaf := &Row{IndentationLevel: 2}
	top := &Row{IndentationLevel: 0}

	assert.Equal(t, 3, composite.ContentIndent(-1))
	assert.Equal(t, 2, leaf.ContentIndent(0))
	assert.Equal(t, 3, leaf.ContentIndent(5))
	assert.Equal(t, 1, leaf.ContentIndent(-9))
	assert.Equal(t, 0, top.ContentIndent(-1))

	m := NewRowModel(WithLeafIndentShift(4))
	assert.Equal(t, 1, m.LeafIndentShift())
	assert.Equal(t, 3, m.ContentIndent(leaf))
}
