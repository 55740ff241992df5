// Package document holds the flat field document handed to search backends.
// Fields keep the order in which they were first written so that two builds
// from the same input serialise byte-for-byte identically.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type field struct {
	name   string
	values []any
	multi  bool
}

// Document is an ordered mapping from field name to one or more values.
// The zero value is ready to use. A Document is not safe for concurrent
// mutation.
type Document struct {
	fields []*field
	index  map[string]int
}

// New returns an empty document.
func New() *Document {
	return &Document{index: make(map[string]int)}
}

// SetField stores value under name, replacing any previous values. A field
// keeps its original position when overwritten.
func (d *Document) SetField(name string, value any) {
	if f := d.lookup(name); f != nil {
		f.values = []any{value}
		f.multi = false
		return
	}
	d.insert(&field{name: name, values: []any{value}})
}

// AddField appends value to the multi-valued field name.
func (d *Document) AddField(name string, value any) {
	if f := d.lookup(name); f != nil {
		f.values = append(f.values, value)
		f.multi = true
		return
	}
	d.insert(&field{name: name, values: []any{value}, multi: true})
}

// Has reports whether name has been written.
func (d *Document) Has(name string) bool {
	return d.lookup(name) != nil
}

// Values returns a copy of the values stored under name.
func (d *Document) Values(name string) []any {
	f := d.lookup(name)
	if f == nil {
		return nil
	}
	out := make([]any, len(f.values))
	copy(out, f.values)
	return out
}

// Value returns the first value stored under name.
func (d *Document) Value(name string) (any, bool) {
	f := d.lookup(name)
	if f == nil {
		return nil, false
	}
	return f.values[0], true
}

// String returns the first value of name formatted with %v, or "" when unset.
func (d *Document) String(name string) string {
	v, ok := d.Value(name)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Names returns field names in insertion order.
func (d *Document) Names() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.name
	}
	return names
}

// Len returns the number of distinct fields.
func (d *Document) Len() int {
	return len(d.fields)
}

// ID returns the value of the id field.
func (d *Document) ID() string {
	return d.String("id")
}

// MarshalJSON encodes the document as a JSON object in field order.
// Multi-valued fields are arrays even when they hold a single value.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, fmt.Errorf("encoding field name %q: %w", f.name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		var value any = f.values[0]
		if f.multi {
			value = f.values
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", f.name, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) lookup(name string) *field {
	if d.index == nil {
		return nil
	}
	i, ok := d.index[name]
	if !ok {
		return nil
	}
	return d.fields[i]
}

func (d *Document) insert(f *field) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	d.index[f.name] = len(d.fields)
	d.fields = append(d.fields, f)
}
