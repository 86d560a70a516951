package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encode serializes a structured document in its own dialect. Key order is
// kept; comments and scalar styles of the source are not.
func Encode(s Structured) (string, error) {
	if s.Doc == nil {
		s.Doc = &Mapping{}
	}
	switch s.Dialect {
	case DialectJSON:
		return encodeJSON(s.Doc)
	default:
		return encodeYAML(s.Doc)
	}
}

// Render returns the text form of any content: Plain as is, Structured
// encoded. It is what an editor shows.
func Render(c Content) (string, error) {
	switch v := c.(type) {
	case Plain:
		return v.Text, nil
	case Structured:
		return Encode(v)
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("unsupported content %T", c)
}

func encodeYAML(m *Mapping) (string, error) {
	if m.Len() == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(m)); err != nil {
		return "", fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.String(), nil
}

func toNode(v Value) *yaml.Node {
	switch n := v.(type) {
	case *Mapping:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range n.Entries {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: TagStr, Value: e.Key},
				toNode(e.Value),
			)
		}
		return node
	case List:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n {
			node.Content = append(node.Content, toNode(item))
		}
		return node
	case Scalar:
		switch n.Tag {
		case "":
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: TagStr, Value: n.Text}
		case TagNull:
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: TagNull, Value: "null"}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: n.Tag, Value: n.Text}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: TagNull, Value: "null"}
}

func encodeJSON(m *Mapping) (string, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, m); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("failed to encode json: %w", err)
	}
	out.WriteByte('\n')
	return out.String(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch n := v.(type) {
	case *Mapping:
		buf.WriteByte('{')
		for i, e := range n.Entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Key)
			if err != nil {
				return fmt.Errorf("failed to encode key %q: %w", e.Key, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, e.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case List:
		buf.WriteByte('[')
		for i, item := range n {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Scalar:
		buf.WriteString(jsonScalar(n))
	default:
		buf.WriteString("null")
	}
	return nil
}

func jsonScalar(s Scalar) string {
	switch s.Tag {
	case TagNull:
		return "null"
	case TagBool:
		if b, ok := s.Interface().(bool); ok {
			return strconv.FormatBool(b)
		}
	case TagInt:
		if isJSONNumber(s.Text) {
			return s.Text
		}
		if n, ok := s.Interface().(int64); ok {
			return strconv.FormatInt(n, 10)
		}
	case TagFloat:
		if isJSONNumber(s.Text) {
			return s.Text
		}
		if f, ok := s.Interface().(float64); ok && !strings.ContainsAny(s.Text, "nN") {
			text := strconv.FormatFloat(f, 'g', -1, 64)
			if !strings.ContainsAny(text, ".e") {
				text += ".0"
			}
			return text
		}
	}
	quoted, _ := json.Marshal(s.Text)
	return string(quoted)
}

func isJSONNumber(text string) bool {
	if text == "" || text[0] == '"' || text[0] == '[' || text[0] == '{' {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(text), &n) == nil
}
