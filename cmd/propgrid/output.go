package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lychee-technology/propgrid"
	"gopkg.in/yaml.v3"
)

// rowView is the serialized form of a visible row.
type rowView struct {
	Index     int    `json:"index" yaml:"index"`
	Path      string `json:"path" yaml:"path"`
	Label     string `json:"label" yaml:"label"`
	Level     int    `json:"level" yaml:"level"`
	Closings  int    `json:"closings" yaml:"closings"`
	Composite bool   `json:"composite" yaml:"composite"`
	Collapsed bool   `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Selected  bool   `json:"selected,omitempty" yaml:"selected,omitempty"`
	ReadOnly  bool   `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Value     any    `json:"value,omitempty" yaml:"value,omitempty"`
}

func rowViews(m *propgrid.RowModel) []rowView {
	selected := m.SelectedIndex()
	views := make([]rowView, 0, m.RowCount())
	for _, row := range m.Rows() {
		p := row.Property
		v := rowView{
			Index:     row.RowIndex,
			Path:      propertyPath(p),
			Label:     propgrid.DisplayLabel(p),
			Level:     row.IndentationLevel,
			Closings:  row.IndentationClosings,
			Composite: row.Composite,
			Collapsed: row.Collapsed,
			Selected:  row.RowIndex == selected,
			ReadOnly:  p.ReadOnly(),
		}
		if showsValue(p) {
			v.Value = p.Value()
		}
		views = append(views, v)
	}
	return views
}

// showsValue is false for pure grouping composites.
func showsValue(p propgrid.Property) bool {
	if cp, ok := p.(*propgrid.ComposedProperty); ok {
		return cp.ValueComposition() || cp.Type() != nil
	}
	return true
}

func writeRows(w io.Writer, m *propgrid.RowModel, output string) error {
	switch output {
	case "", "text":
		return writeText(w, m)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rowViews(m))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rowViews(m)); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("invalid output: %s (valid: text, json, yaml)", output)
}

// writeText draws one line per row: the tree guides, the collapse marker of
// composites and the label with its value.
func writeText(w io.Writer, m *propgrid.RowModel) error {
	selected := m.SelectedIndex()
	for _, row := range m.Rows() {
		var b strings.Builder
		if row.RowIndex == selected {
			b.WriteString("> ")
		} else {
			b.WriteString("  ")
		}
		b.WriteString(guides(m, row))

		p := row.Property
		switch {
		case row.Composite && row.Collapsed:
			b.WriteString("+ ")
		case row.Composite:
			b.WriteString("- ")
		}
		b.WriteString(propgrid.DisplayLabel(p))
		if p.Important() {
			b.WriteString(" *")
		}
		if showsValue(p) {
			b.WriteString(" = ")
			b.WriteString(formatValue(p))
		}
		if p.ReadOnly() {
			b.WriteString(" (read-only)")
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// guides renders IndentationLevel units: straight lines for ancestors that
// continue below the row, elbows for the ones that end at it. Leaf rows are
// then moved by the model's leaf indentation shift.
func guides(m *propgrid.RowModel, row *propgrid.Row) string {
	units := make([]string, 0, row.IndentationLevel+1)
	straight := row.IndentationLevel - row.IndentationClosings
	for i := 0; i < row.IndentationLevel; i++ {
		if i < straight {
			units = append(units, "│ ")
		} else {
			units = append(units, "└ ")
		}
	}
	if !row.Composite {
		shift := m.ContentIndent(row) - row.IndentationLevel
		switch {
		case shift > 0:
			units = append(units, "  ")
		case shift < 0 && len(units) > 0:
			units = units[:len(units)-1]
		}
	}
	return strings.Join(units, "")
}

func formatValue(p propgrid.Property) string {
	v := p.Value()
	if v == nil {
		return "<null>"
	}
	if enum, ok := p.Type().(*propgrid.EnumerationType); ok {
		if label, ok := enum.LabelOf(v); ok {
			return label
		}
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if _, ok := v.(map[string]any); ok {
		raw, err := json.Marshal(v)
		if err == nil {
			return string(raw)
		}
	}
	return fmt.Sprint(v)
}
