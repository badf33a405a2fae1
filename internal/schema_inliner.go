package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// schemaInliner replaces $ref references of a JSON Schema document with the
// referenced definitions. Local references ("#/$defs/x") resolve against the
// document itself; file references resolve relative to baseDir.
type schemaInliner struct {
	baseDir   string
	root      map[string]any
	cache     map[string]map[string]any // loaded schema files
	resolving map[string]bool           // refs currently being resolved
}

func newSchemaInliner(root map[string]any, baseDir string) *schemaInliner {
	return &schemaInliner{
		baseDir:   baseDir,
		root:      root,
		cache:     make(map[string]map[string]any),
		resolving: make(map[string]bool),
	}
}

// inlineRoot returns the inlined document without its definitions.
func (s *schemaInliner) inlineRoot() (map[string]any, error) {
	result, err := s.inlineObject(s.root, "")
	if err != nil {
		return nil, err
	}
	delete(result, "$defs")
	delete(result, "definitions")
	return result, nil
}

// InlineSchemaFile loads the JSON Schema at path and returns it with every
// $ref inlined. Unless keepExtensions is set, x-* keywords are removed.
func InlineSchemaFile(path string, keepExtensions bool) (map[string]any, error) {
	inliner := newSchemaInliner(nil, filepath.Dir(path))
	root, err := inliner.loadSchemaFile(path)
	if err != nil {
		return nil, err
	}
	inliner.root = root
	result, err := inliner.inlineRoot()
	if err != nil {
		return nil, fmt.Errorf("inline schema: %w", err)
	}
	if keepExtensions {
		return result, nil
	}
	stripped, _ := stripExtensions(result).(map[string]any)
	return stripped, nil
}

func (s *schemaInliner) inlineNode(node any, currentFile string) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		return s.inlineObject(v, currentFile)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			inlined, err := s.inlineNode(item, currentFile)
			if err != nil {
				return nil, fmt.Errorf("inline array item %d: %w", i, err)
			}
			result[i] = inlined
		}
		return result, nil
	default:
		return node, nil
	}
}

func (s *schemaInliner) inlineObject(obj map[string]any, currentFile string) (map[string]any, error) {
	if ref, ok := obj["$ref"].(string); ok {
		resolved, err := s.resolveRef(ref, currentFile)
		if err != nil {
			return nil, err
		}
		// sibling keywords override the referenced definition
		merged := make(map[string]any, len(resolved)+len(obj))
		for k, v := range resolved {
			merged[k] = v
		}
		for k, v := range obj {
			if k != "$ref" {
				merged[k] = v
			}
		}
		delete(merged, "$ref")
		return s.inlineMembers(merged, currentFile)
	}
	return s.inlineMembers(obj, currentFile)
}

func (s *schemaInliner) inlineMembers(obj map[string]any, currentFile string) (map[string]any, error) {
	result := make(map[string]any, len(obj))
	for key, value := range obj {
		if key == "$defs" || key == "definitions" {
			continue
		}
		inlined, err := s.inlineNode(value, currentFile)
		if err != nil {
			return nil, fmt.Errorf("inline property %q: %w", key, err)
		}
		result[key] = inlined
	}
	return result, nil
}

func (s *schemaInliner) resolveRef(ref, currentFile string) (map[string]any, error) {
	cycleKey := currentFile + "|" + ref
	if s.resolving[cycleKey] {
		return nil, fmt.Errorf("circular reference detected: %s", ref)
	}
	s.resolving[cycleKey] = true
	defer delete(s.resolving, cycleKey)

	filePath, pointer := parseRef(ref)

	doc := s.root
	targetFile := currentFile
	if filePath != "" {
		if s.baseDir == "" && !filepath.IsAbs(filePath) {
			return nil, fmt.Errorf("external reference %s requires a base directory", ref)
		}
		targetFile = filePath
		if !filepath.IsAbs(filePath) {
			base := s.baseDir
			if currentFile != "" {
				base = filepath.Dir(currentFile)
			}
			targetFile = filepath.Join(base, filePath)
		}
		loaded, err := s.loadSchemaFile(targetFile)
		if err != nil {
			return nil, fmt.Errorf("load ref target %s: %w", ref, err)
		}
		doc = loaded
	} else if currentFile != "" {
		doc = s.cache[currentFile]
	}

	target, err := resolveJSONPointer(doc, pointer)
	if err != nil {
		return nil, fmt.Errorf("resolve pointer %s: %w", ref, err)
	}
	targetObj, ok := target.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ref target is not an object: %s", ref)
	}
	return s.inlineObject(targetObj, targetFile)
}

func (s *schemaInliner) loadSchemaFile(path string) (map[string]any, error) {
	if cached, ok := s.cache[path]; ok {
		return cached, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse JSON %s: %w", path, err)
	}
	s.cache[path] = schema
	return schema, nil
}

// parseRef splits a $ref into file path and JSON pointer:
//   - "#/$defs/id" -> "", "/$defs/id"
//   - "./common.json#/$defs/address" -> "./common.json", "/$defs/address"
func parseRef(ref string) (filePath string, jsonPointer string) {
	if idx := strings.Index(ref, "#"); idx != -1 {
		return ref[:idx], ref[idx+1:]
	}
	return ref, ""
}

// resolveJSONPointer resolves a JSON pointer (RFC 6901) against a document
func resolveJSONPointer(doc any, pointer string) (any, error) {
	if pointer == "" || pointer == "/" {
		return doc, nil
	}
	current := doc
	for _, part := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")

		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", part)
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid array index: %s", part)
			}
			if idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("array index out of bounds: %d", idx)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T", current)
		}
	}
	return current, nil
}

// stripExtensions returns a copy of node without x-* keywords, ready for
// compilation by the validator.
func stripExtensions(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if strings.HasPrefix(k, "x-") {
				continue
			}
			out[k] = stripExtensions(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = stripExtensions(item)
		}
		return out
	default:
		return node
	}
}
