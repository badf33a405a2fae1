package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/propgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Server",
  "description": "Server settings",
  "type": "object",
  "required": ["host"],
  "$defs": {
    "port": {"type": "integer", "minimum": 1, "maximum": 65535, "default": 8080}
  },
  "properties": {
    "host": {"type": "string", "title": "Host", "x-order": 1, "default": "localhost"},
    "port": {"$ref": "#/$defs/port", "title": "Port", "x-order": 2},
    "mode": {"type": "string", "enum": ["dev", "prod"], "x-enumLabels": ["Development", "Production"], "x-order": 3},
    "tls": {
      "type": "object",
      "title": "TLS",
      "x-order": 4,
      "properties": {
        "enabled": {"type": "boolean", "default": true},
        "cert": {"type": "string", "pattern": "^/", "default": "/etc/ssl/server.pem", "x-hintTitle": "Certificate", "description": "Absolute path"}
      }
    },
    "ratio": {"type": "number", "minimum": 0, "maximum": 1},
    "tags": {"type": "array", "items": {"type": "string"}},
    "id": {"type": "string", "readOnly": true},
    "nothing": {"type": "null"},
    "comment": {"type": ["string", "null"]}
  }
}`

func buildServerSchema(t *testing.T, opts BuilderOptions) *propgrid.ComposedProperty {
	t.Helper()
	root, err := NewSchemaTreeBuilder(opts).Build([]byte(serverSchema))
	require.NoError(t, err)
	return root
}

func childNames(c *propgrid.ComposedProperty) []string {
	var names []string
	for _, p := range c.Subproperties().All() {
		names = append(names, p.Name())
	}
	return names
}

func TestSchemaTreeBuilder_StructureAndOrder(t *testing.T) {
	root := buildServerSchema(t, BuilderOptions{})

	assert.Equal(t, "Server", root.Label())
	assert.Equal(t, "Server settings", root.Hint())
	// ordered members first, then the rest by name; the null member is skipped
	assert.Equal(t, []string{"host", "port", "mode", "tls", "comment", "id", "ratio", "tags"}, childNames(root))

	tls, ok := root.Find("tls").(*propgrid.ComposedProperty)
	require.True(t, ok)
	assert.Nil(t, tls.Type())
	assert.Equal(t, []string{"cert", "enabled"}, childNames(tls))
}

func TestSchemaTreeBuilder_LeafTypes(t *testing.T) {
	root := buildServerSchema(t, BuilderOptions{})

	host := root.Find("host")
	assert.Equal(t, propgrid.StringType{}, host.Type())
	assert.Equal(t, "localhost", host.Value())
	assert.True(t, host.Important())

	port := root.Find("port")
	it, ok := port.Type().(*propgrid.IntegerType)
	require.True(t, ok)
	assert.Equal(t, int64(1), it.Min)
	assert.Equal(t, int64(65535), it.Max)
	assert.Equal(t, int64(8080), port.Value())
	assert.Equal(t, "Port", port.Label())

	mode := root.Find("mode")
	enum, ok := mode.Type().(*propgrid.EnumerationType)
	require.True(t, ok)
	label, ok := enum.LabelOf("prod")
	require.True(t, ok)
	assert.Equal(t, "Production", label)
	assert.Equal(t, "dev", mode.Value())

	_, ok = root.Find("ratio").Type().(*propgrid.DecimalType)
	assert.True(t, ok)

	tags, ok := root.Find("tags").Type().(*propgrid.SchemaType)
	require.True(t, ok)
	assert.True(t, tags.CheckValue([]string{"a"}))
	assert.False(t, tags.CheckValue([]any{1}))

	cert := root.Find("cert")
	_, ok = cert.Type().(*propgrid.SchemaType)
	require.True(t, ok)
	assert.Equal(t, "/etc/ssl/server.pem", cert.Value())
	assert.Error(t, cert.SetValue("relative/path"))
	assert.NoError(t, cert.SetValue("/etc/cert.pem"))
	title, hint := propgrid.HintFor(cert)
	assert.Equal(t, "Certificate", title)
	assert.Equal(t, "Absolute path", hint)

	assert.Equal(t, true, root.Find("enabled").Value())
	assert.True(t, root.Find("id").ReadOnly())

	comment := root.Find("comment")
	assert.Equal(t, propgrid.StringType{Nullable: true}, comment.Type())
	assert.NoError(t, comment.SetValue(nil))
}

func TestSchemaTreeBuilder_ValueComposition(t *testing.T) {
	root := buildServerSchema(t, BuilderOptions{ValueComposition: true})
	require.True(t, root.ValueComposition())

	err := root.SetValue(map[string]any{"host": "example.org", "enabled": false})
	require.NoError(t, err)
	assert.Equal(t, "example.org", root.Find("host").Value())
	assert.Equal(t, false, root.Find("enabled").Value())

	values, ok := root.Value().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "example.org", values["host"])
	assert.Equal(t, int64(8080), values["port"])
}

func TestSchemaTreeBuilder_TypedObjects(t *testing.T) {
	schema := `{
	  "type": "object",
	  "properties": {
	    "endpoint": {
	      "type": "object",
	      "default": {"host": "a", "port": 1},
	      "properties": {
	        "host": {"type": "string"},
	        "port": {"type": "integer"}
	      }
	    }
	  }
	}`
	root, err := NewSchemaTreeBuilder(BuilderOptions{TypedObjects: true, ValueComposition: true}).Build([]byte(schema))
	require.NoError(t, err)

	endpoint, ok := root.Find("endpoint").(*propgrid.ComposedProperty)
	require.True(t, ok)
	_, ok = endpoint.Type().(*propgrid.ObjectType)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"host": "a", "port": float64(1)}, endpoint.Value())

	require.NoError(t, endpoint.SetValue(map[string]any{"host": "b", "port": 2}))
	assert.Equal(t, "b", endpoint.Find("host").Value())
	assert.Equal(t, int64(2), endpoint.Find("port").Value())
}

func TestSchemaTreeBuilder_ConstrainedLeafNeedsDefault(t *testing.T) {
	_, err := NewSchemaTreeBuilder(BuilderOptions{}).Build(
		[]byte(`{"type": "object", "properties": {"code": {"type": "string", "minLength": 3}}}`))
	require.Error(t, err)
	assert.True(t, propgrid.HasCode(err, propgrid.ErrCodeInvalidDocument))

	root, err := NewSchemaTreeBuilder(BuilderOptions{}).Build(
		[]byte(`{"type": "object", "properties": {"code": {"type": "string", "minLength": 3, "default": "abc"}}}`))
	require.NoError(t, err)
	code := root.Find("code")
	assert.Equal(t, "abc", code.Value())
	assert.True(t, code.Type().CheckValue(code.Value()))
}

func TestSchemaTreeBuilder_TypedObjectWithoutValidDefault(t *testing.T) {
	schema := `{
	  "type": "object",
	  "properties": {
	    "endpoint": {
	      "type": "object",
	      "required": ["host"],
	      "properties": {
	        "host": {"type": "string"}
	      }
	    }
	  }
	}`
	root, err := NewSchemaTreeBuilder(BuilderOptions{TypedObjects: true}).Build([]byte(schema))
	require.NoError(t, err)

	endpoint, ok := root.Find("endpoint").(*propgrid.ComposedProperty)
	require.True(t, ok)
	assert.Nil(t, endpoint.Type())
	assert.Equal(t, []string{"host"}, childNames(endpoint))
}

func TestSchemaTreeBuilder_FileReferences(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common.json"),
		[]byte(`{"$defs": {"name": {"type": "string", "title": "Name"}}}`), 0o644))

	schema := `{"type": "object", "properties": {"owner": {"$ref": "common.json#/$defs/name"}}}`
	root, err := NewSchemaTreeBuilder(BuilderOptions{BaseDir: dir}).Build([]byte(schema))
	require.NoError(t, err)
	assert.Equal(t, "Name", root.Find("owner").Label())

	_, err = NewSchemaTreeBuilder(BuilderOptions{}).Build([]byte(schema))
	require.Error(t, err)
	assert.True(t, propgrid.HasCode(err, propgrid.ErrCodeInvalidDocument))
}

func TestSchemaTreeBuilder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"not json", `{`},
		{"not an object", `{"type": "array", "items": {}}`},
		{"no properties", `{"type": "object"}`},
		{"cyclic ref", `{"type": "object", "$defs": {"a": {"$ref": "#/$defs/a"}}, "properties": {"x": {"$ref": "#/$defs/a"}}}`},
		{"missing ref", `{"type": "object", "properties": {"x": {"$ref": "#/$defs/none"}}}`},
		{"bad default", `{"type": "object", "properties": {"x": {"type": "integer", "maximum": 3, "default": 9}}}`},
		{"zero value rejected", `{"type": "object", "properties": {"code": {"type": "string", "minLength": 3}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchemaTreeBuilder(BuilderOptions{}).Build([]byte(tt.schema))
			require.Error(t, err)
			assert.True(t, propgrid.IsConfigError(err))
		})
	}
}

func TestOrderedMembers(t *testing.T) {
	props := map[string]any{
		"b": map[string]any{},
		"a": map[string]any{},
		"z": map[string]any{"x-order": float64(1)},
		"y": map[string]any{"x-order": float64(2)},
		"w": "not a schema",
	}
	assert.Equal(t, []string{"z", "y", "a", "b", "w"}, orderedMembers(props))
}

func TestSchemaJSONType(t *testing.T) {
	jt, nullable := schemaJSONType(map[string]any{"type": []any{"integer", "null"}})
	assert.Equal(t, "integer", jt)
	assert.True(t, nullable)

	jt, _ = schemaJSONType(map[string]any{"properties": map[string]any{}})
	assert.Equal(t, "object", jt)

	jt, _ = schemaJSONType(map[string]any{"type": []any{"string", "integer"}})
	assert.Equal(t, "", jt)
}
