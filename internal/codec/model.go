// Package codec turns fetched file contents into an editable document model
// and back.
//
// Structured files become an ordered tree of mappings, lists and scalars;
// everything else is carried as opaque text. Content is a closed set of two
// variants, Plain and Structured, and callers switch on it exhaustively.
package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is the per-file hint telling Decode how to read the bytes.
type Format int

const (
	FormatPlain Format = iota
	FormatStructured
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatStructured:
		return "structured"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Dialect is the serialization a structured document was read from and is
// written back as.
type Dialect int

const (
	DialectYAML Dialect = iota
	DialectJSON
)

func (d Dialect) String() string {
	if d == DialectJSON {
		return "json"
	}
	return "yaml"
}

// Content is either Plain or Structured.
type Content interface {
	isContent()
}

// Plain is opaque text.
type Plain struct {
	Text string
}

// Structured is a parsed document whose top level is a mapping.
type Structured struct {
	Doc     *Mapping
	Dialect Dialect
}

func (Plain) isContent()      {}
func (Structured) isContent() {}

// Value is a node of the document tree: *Mapping, List or Scalar.
type Value interface {
	isValue()
}

// Entry is one key of a Mapping.
type Entry struct {
	Key   string
	Value Value
}

// Mapping keeps keys in document order. Keys are unique.
type Mapping struct {
	Entries []Entry
}

// List is a sequence of values of any kind.
type List []Value

// Scalar is a leaf. Tag is the YAML short tag (!!str, !!int, !!float,
// !!bool, !!null, ...) and Text its literal form.
type Scalar struct {
	Tag  string
	Text string
}

func (*Mapping) isValue() {}
func (List) isValue()     {}
func (Scalar) isValue()   {}

// Scalar tags.
const (
	TagStr   = "!!str"
	TagInt   = "!!int"
	TagFloat = "!!float"
	TagBool  = "!!bool"
	TagNull  = "!!null"
)

// str builds a !!str scalar.
func str(s string) Scalar { return Scalar{Tag: TagStr, Text: s} }

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// Keys returns the keys in order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, m.Len())
	for _, e := range m.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Lookup returns the value for key.
func (m *Mapping) Lookup(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	for _, e := range m.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Get walks nested mappings by key. List elements are addressed by their
// decimal index.
func (m *Mapping) Get(path ...string) (Value, bool) {
	var cur Value = m
	for _, key := range path {
		switch v := cur.(type) {
		case *Mapping:
			next, ok := v.Lookup(key)
			if !ok {
				return nil, false
			}
			cur = next
		case List:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// set replaces the value of key, appending the key when absent.
func (m *Mapping) set(key string, v Value) {
	for i, e := range m.Entries {
		if e.Key == key {
			m.Entries[i].Value = v
			return
		}
	}
	m.Entries = append(m.Entries, Entry{Key: key, Value: v})
}

// Interface returns the scalar as a Go value: string, int64, float64, bool
// or nil. Unparseable numbers fall back to the text.
func (s Scalar) Interface() any {
	switch s.Tag {
	case TagNull:
		return nil
	case TagBool:
		if b, err := strconv.ParseBool(strings.ToLower(s.Text)); err == nil {
			return b
		}
	case TagInt:
		if n, err := strconv.ParseInt(strings.ReplaceAll(s.Text, "_", ""), 0, 64); err == nil {
			return n
		}
	case TagFloat:
		if f, err := strconv.ParseFloat(s.Text, 64); err == nil {
			return f
		}
	}
	return s.Text
}

// Equal reports whether two values have the same shape, keys and scalars.
// Key order is significant for mappings.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i := range x.Entries {
			if x.Entries[i].Key != y.Entries[i].Key || !Equal(x.Entries[i].Value, y.Entries[i].Value) {
				return false
			}
		}
		return true
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Scalar:
		y, ok := b.(Scalar)
		if !ok || x.Tag != y.Tag {
			return false
		}
		return x.Interface() == y.Interface()
	}
	return a == nil && b == nil
}

// Walk visits every node depth first. key is the mapping key or "[i]" for
// list elements; the root mapping itself is not visited.
func Walk(m *Mapping, fn func(depth int, key string, v Value)) {
	var walk func(depth int, v Value)
	walk = func(depth int, v Value) {
		switch n := v.(type) {
		case *Mapping:
			for _, e := range n.Entries {
				fn(depth, e.Key, e.Value)
				walk(depth+1, e.Value)
			}
		case List:
			for i, item := range n {
				fn(depth, "["+strconv.Itoa(i)+"]", item)
				walk(depth+1, item)
			}
		}
	}
	walk(0, m)
}
