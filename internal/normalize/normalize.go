// Package normalize coerces loosely typed model output into a fixed record shape.
// Normalization is total: any input produces a record with every schema field set.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultPlaceholder is the Text value used when a field is missing or null.
const DefaultPlaceholder = "undetermined"

// Shape is the canonical type of a field.
type Shape int

const (
	ListOfStrings Shape = iota
	Text
)

func (s Shape) String() string {
	switch s {
	case ListOfStrings:
		return "list"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Field declares one expected field. Dotted names address nested objects.
type Field struct {
	Name  string
	Shape Shape
}

// Schema is an ordered list of expected fields.
type Schema []Field

// Value is a normalized field.
type Value struct {
	Shape Shape
	List  []string
	Text  string
}

// Record maps every schema field to its normalized value.
type Record struct {
	order  []string
	values map[string]Value
}

// Option configures Normalize.
type Option func(*options)

type options struct {
	placeholder string
}

// WithPlaceholder overrides the Text placeholder for missing fields.
func WithPlaceholder(p string) Option {
	return func(o *options) {
		if p != "" {
			o.placeholder = p
		}
	}
}

// Normalize applies schema to raw. Fields not in schema are dropped.
func Normalize(raw map[string]any, schema Schema, opts ...Option) Record {
	o := options{placeholder: DefaultPlaceholder}
	for _, opt := range opts {
		opt(&o)
	}

	rec := Record{values: make(map[string]Value, len(schema))}
	for _, f := range schema {
		v, _ := lookup(raw, f.Name)
		var val Value
		switch f.Shape {
		case ListOfStrings:
			val = Value{Shape: ListOfStrings, List: toList(v)}
		default:
			val = Value{Shape: Text, Text: toText(v, o.placeholder)}
		}
		if _, dup := rec.values[f.Name]; !dup {
			rec.order = append(rec.order, f.Name)
		}
		rec.values[f.Name] = val
	}
	return rec
}

// lookup resolves a dotted path. A literal key containing dots wins over nesting.
func lookup(raw map[string]any, name string) (any, bool) {
	if v, ok := raw[name]; ok {
		return v, true
	}
	parts := strings.Split(name, ".")
	var cur any = raw
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case nil:
	case []any:
		for _, el := range t {
			if s := strings.TrimSpace(stringify(el)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, el := range t {
			if s := strings.TrimSpace(el); s != "" {
				out = append(out, s)
			}
		}
	case string:
		sep := ""
		switch {
		case strings.Contains(t, "\n"):
			sep = "\n"
		case strings.Contains(t, ","):
			sep = ","
		}
		if sep == "" {
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
			break
		}
		for _, part := range strings.Split(t, sep) {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := strings.TrimSpace(stringify(t)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toText(v any, placeholder string) string {
	switch t := v.(type) {
	case nil:
		return placeholder
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			parts = append(parts, stringify(el))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		return stringify(t)
	}
}

// stringify renders scalars as text and composites as compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprint(t)
	case map[string]any, []any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	default:
		return fmt.Sprint(t)
	}
}

// Has reports whether name is a schema field of r.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Get returns the value for name.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// List returns the list value of name, or nil if it is not a list field.
func (r Record) List(name string) []string {
	v, ok := r.values[name]
	if !ok || v.Shape != ListOfStrings {
		return nil
	}
	return v.List
}

// Text returns the text value of name, or "" if it is not a text field.
func (r Record) Text(name string) string {
	v, ok := r.values[name]
	if !ok || v.Shape != Text {
		return ""
	}
	return v.Text
}

// SetText replaces the value of a Text field. It is a no-op for other fields.
func (r Record) SetText(name, text string) {
	v, ok := r.values[name]
	if !ok || v.Shape != Text {
		return
	}
	v.Text = text
	r.values[name] = v
}

// Fields returns field names in schema order.
func (r Record) Fields() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Map renders the record as nested maps, splitting dotted names.
func (r Record) Map() map[string]any {
	out := make(map[string]any)
	for _, name := range r.order {
		v := r.values[name]
		var val any
		if v.Shape == ListOfStrings {
			val = v.List
		} else {
			val = v.Text
		}
		setPath(out, strings.Split(name, "."), val)
	}
	return out
}

func setPath(m map[string]any, parts []string, val any) {
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
}

// MarshalJSON renders nested JSON with keys sorted.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Names returns the schema's field names, sorted. Useful for prompts that list keys.
func (s Schema) Names() []string {
	out := make([]string, 0, len(s))
	for _, f := range s {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

// JSONSchema renders the schema as a JSON Schema object. Lists become arrays of
// strings, text becomes string, and dotted names become nested objects. Every
// field is required.
func (s Schema) JSONSchema() json.RawMessage {
	root := newSchemaNode()
	for _, f := range s {
		node := root
		parts := strings.Split(f.Name, ".")
		for _, p := range parts[:len(parts)-1] {
			child, ok := node.props[p].(*schemaNode)
			if !ok {
				child = newSchemaNode()
				node.require(p)
				node.props[p] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, nested := node.props[leaf].(*schemaNode); nested {
			continue
		}
		if f.Shape == ListOfStrings {
			node.props[leaf] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		} else {
			node.props[leaf] = map[string]any{"type": "string"}
		}
		node.require(leaf)
	}
	out, _ := json.Marshal(root.render())
	return out
}

type schemaNode struct {
	props    map[string]any
	required []string
}

func newSchemaNode() *schemaNode {
	return &schemaNode{props: map[string]any{}}
}

func (n *schemaNode) require(name string) {
	for _, r := range n.required {
		if r == name {
			return
		}
	}
	n.required = append(n.required, name)
}

func (n *schemaNode) render() map[string]any {
	props := make(map[string]any, len(n.props))
	for k, v := range n.props {
		if child, ok := v.(*schemaNode); ok {
			v = child.render()
		}
		props[k] = v
	}
	out := map[string]any{"type": "object", "properties": props}
	if len(n.required) > 0 {
		out["required"] = n.required
	}
	return out
}
