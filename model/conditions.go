package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Condition maps a controlling parameter name to the values it must hold.
type Condition struct {
	Field  string
	Values []any
}

// Conditions is an ordered field→values mapping. It decodes from and encodes
// to a JSON or YAML object while keeping the document's key order, which
// auth-field detection depends on.
type Conditions []Condition

// Fields returns the controlling field names in declaration order.
func (c Conditions) Fields() []string {
	fields := make([]string, len(c))
	for i, cond := range c {
		fields[i] = cond.Field
	}
	return fields
}

// Has reports whether the conditions reference the given field.
func (c Conditions) Has(field string) bool {
	_, ok := c.Get(field)
	return ok
}

// Get returns the values required for field.
func (c Conditions) Get(field string) ([]any, bool) {
	for _, cond := range c {
		if cond.Field == field {
			return cond.Values, true
		}
	}
	return nil, false
}

// Includes reports whether field is referenced and its values contain v.
func (c Conditions) Includes(field string, v any) bool {
	values, ok := c.Get(field)
	if !ok {
		return false
	}
	return ContainsValue(values, v)
}

// MarshalJSON encodes the conditions as a JSON object in declaration order.
func (c Conditions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cond := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cond.Field)
		if err != nil {
			return nil, err
		}
		values := cond.Values
		if values == nil {
			values = []any{}
		}
		val, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("conditions: field %q: %w", cond.Field, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (c *Conditions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("conditions: expected object, got %v", tok)
	}

	var out Conditions
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		field, _ := keyTok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("conditions: field %q: %w", field, err)
		}
		out = append(out, Condition{Field: field, Values: asValueList(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// UnmarshalYAML decodes a YAML mapping, keeping key order.
func (c *Conditions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("conditions: line %d: expected mapping", node.Line)
	}
	out := make(Conditions, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var raw any
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return fmt.Errorf("conditions: field %q: %w", node.Content[i].Value, err)
		}
		out = append(out, Condition{Field: node.Content[i].Value, Values: asValueList(raw)})
	}
	*c = out
	return nil
}

// MarshalYAML encodes the conditions as an ordered YAML mapping.
func (c Conditions) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, cond := range c {
		var val yaml.Node
		if err := val.Encode(cond.Values); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: cond.Field},
			&val,
		)
	}
	return node, nil
}

func asValueList(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		for i := range v {
			v[i] = normalizeValue(v[i])
		}
		return v
	default:
		return []any{normalizeValue(v)}
	}
}

// ContainsValue reports whether values holds v. Numbers compare by value
// regardless of their decoded Go type; other kinds must match exactly.
func ContainsValue(values []any, v any) bool {
	nv := normalizeValue(v)
	return slices.ContainsFunc(values, func(x any) bool {
		return normalizeValue(x) == nv
	})
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any, map[string]any:
		// Not comparable with ==; compare by encoded form.
		b, _ := json.Marshal(n)
		return string(b)
	default:
		return v
	}
}
