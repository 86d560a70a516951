package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DecodeError reports structured content that could not be parsed. The text
// is still available as Plain content.
type DecodeError struct {
	Dialect Dialect
	Line    int
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid %s at line %d: %v", e.Dialect, e.Line, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Dialect, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads raw according to the format hint.
//
// Plain input never fails. Structured input is parsed as JSON when it opens
// with '{' or a comment marker, and as YAML otherwise. On a parse failure
// Decode returns the text as Plain together with a *DecodeError, so the
// caller can keep showing it.
func Decode(raw string, f Format) (Content, error) {
	if f != FormatStructured {
		return Plain{Text: raw}, nil
	}

	dialect := sniff(raw)
	src := []byte(raw)
	if dialect == DialectJSON {
		src = jsonc.ToJSON(src)
	}

	doc, err := parse(src)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Dialect = dialect
			return Plain{Text: raw}, de
		}
		return Plain{Text: raw}, &DecodeError{Dialect: dialect, Err: err}
	}
	return Structured{Doc: doc, Dialect: dialect}, nil
}

func sniff(raw string) Dialect {
	trimmed := strings.TrimLeft(raw, " \t\r\n\ufeff")
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
		return DialectJSON
	}
	return DialectYAML
}

// maxNodes bounds the values built from one document, alias expansions
// included.
const maxNodes = 1 << 18

var (
	errNotMapping   = errors.New("top level must be a mapping")
	errMultipleDocs = errors.New("more than one document")
	errTooManyNodes = errors.New("document contains excessive aliasing")
)

func parse(src []byte) (*Mapping, error) {
	if len(bytes.TrimSpace(src)) == 0 {
		return &Mapping{}, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(src))
	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &Mapping{}, nil
		}
		return nil, err
	}
	for {
		var next yaml.Node
		err := dec.Decode(&next)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !emptyDocument(&next) {
			line := next.Line
			if len(next.Content) > 0 {
				line = next.Content[0].Line
			}
			return nil, &DecodeError{Line: line, Err: errMultipleDocs}
		}
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return &Mapping{}, nil
		}
		node = node.Content[0]
	}
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind == 0 {
		return &Mapping{}, nil
	}
	if node.Kind != yaml.MappingNode {
		if node.Kind == yaml.ScalarNode && node.ShortTag() == TagNull {
			return &Mapping{}, nil
		}
		return nil, &DecodeError{Line: node.Line, Err: errNotMapping}
	}

	b := &builder{expanding: make(map[*yaml.Node]bool)}
	v, err := b.value(node)
	if err != nil {
		return nil, err
	}
	return v.(*Mapping), nil
}

// emptyDocument reports a document holding nothing but an implicit null,
// as a trailing "---" produces.
func emptyDocument(n *yaml.Node) bool {
	if n.Kind != yaml.DocumentNode {
		return false
	}
	for _, c := range n.Content {
		if c.Kind != yaml.ScalarNode || c.ShortTag() != TagNull || c.Value != "" {
			return false
		}
	}
	return true
}

// builder converts a node tree into Values. Aliases are expanded in place;
// expanding tracks the anchors on the current path so a self-referencing
// anchor fails instead of recursing forever.
type builder struct {
	expanding map[*yaml.Node]bool
	nodes     int
}

func (b *builder) value(n *yaml.Node) (Value, error) {
	if n.Kind == yaml.AliasNode {
		target := n.Alias
		if target == nil {
			return nil, &DecodeError{Line: n.Line, Err: fmt.Errorf("unknown anchor %q", n.Value)}
		}
		if b.expanding[target] {
			return nil, &DecodeError{Line: n.Line, Err: fmt.Errorf("anchor %q contains itself", n.Value)}
		}
		b.expanding[target] = true
		defer delete(b.expanding, target)
		return b.value(target)
	}

	b.nodes++
	if b.nodes > maxNodes {
		return nil, &DecodeError{Line: n.Line, Err: errTooManyNodes}
	}

	switch n.Kind {
	case yaml.MappingNode:
		m := &Mapping{Entries: make([]Entry, 0, len(n.Content)/2)}
		index := make(map[string]int, len(n.Content)/2)
		merged := make(map[string]bool)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			if keyNode.Kind == yaml.AliasNode && keyNode.Alias != nil {
				keyNode = keyNode.Alias
			}
			if keyNode.Kind != yaml.ScalarNode {
				return nil, &DecodeError{Line: keyNode.Line, Err: errors.New("mapping keys must be scalars")}
			}
			if keyNode.Value == "<<" && keyNode.ShortTag() == "!!merge" {
				if err := b.merge(m, index, merged, n.Content[i+1]); err != nil {
					return nil, err
				}
				continue
			}

			v, err := b.value(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if at, ok := index[keyNode.Value]; ok {
				if !merged[keyNode.Value] {
					return nil, &DecodeError{Line: keyNode.Line, Err: fmt.Errorf("duplicate key %q", keyNode.Value)}
				}
				delete(merged, keyNode.Value)
				m.Entries[at].Value = v
				continue
			}
			index[keyNode.Value] = len(m.Entries)
			m.Entries = append(m.Entries, Entry{Key: keyNode.Value, Value: v})
		}
		return m, nil

	case yaml.SequenceNode:
		l := make(List, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := b.value(item)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil

	case yaml.ScalarNode:
		return Scalar{Tag: n.ShortTag(), Text: n.Value}, nil
	}
	return nil, &DecodeError{Line: n.Line, Err: fmt.Errorf("unsupported node kind %d", n.Kind)}
}

// merge expands a "<<" merge key. Explicit keys of the mapping win over
// merged ones regardless of position, as in YAML 1.1.
func (b *builder) merge(m *Mapping, index map[string]int, merged map[string]bool, src *yaml.Node) error {
	v, err := b.value(src)
	if err != nil {
		return err
	}
	var sources []*Mapping
	switch v := v.(type) {
	case *Mapping:
		sources = []*Mapping{v}
	case List:
		for _, item := range v {
			sm, ok := item.(*Mapping)
			if !ok {
				return &DecodeError{Line: src.Line, Err: errors.New("merge value must be a mapping")}
			}
			sources = append(sources, sm)
		}
	default:
		return &DecodeError{Line: src.Line, Err: errors.New("merge value must be a mapping")}
	}
	for _, sm := range sources {
		for _, e := range sm.Entries {
			if _, ok := index[e.Key]; ok {
				continue
			}
			index[e.Key] = len(m.Entries)
			merged[e.Key] = true
			m.Entries = append(m.Entries, e)
		}
	}
	return nil
}
