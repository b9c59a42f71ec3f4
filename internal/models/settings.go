package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Setting is one server configuration parameter.
type Setting struct {
	Name  string
	Value string
}

// Settings is a string-to-string mapping that remembers the order keys
// appeared in the source document. encoding/json maps iterate randomly,
// and the overview lists settings in the order the server reported them.
type Settings struct {
	keys   []string
	values map[string]string
}

// NewSettings builds Settings from pairs, in order.
func NewSettings(pairs ...Setting) Settings {
	var s Settings
	for _, p := range pairs {
		s.Set(p.Name, p.Value)
	}
	return s
}

// Set stores value under name. A repeated name keeps its first position.
func (s *Settings) Set(name, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, exists := s.values[name]; !exists {
		s.keys = append(s.keys, name)
	}
	s.values[name] = value
}

// Get returns the value for name.
func (s Settings) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of settings.
func (s Settings) Len() int {
	return len(s.keys)
}

// Keys returns setting names in document order.
func (s Settings) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Pairs returns all settings in document order.
func (s Settings) Pairs() []Setting {
	pairs := make([]Setting, 0, len(s.keys))
	for _, k := range s.keys {
		pairs = append(pairs, Setting{Name: k, Value: s.values[k]})
	}
	return pairs
}

// MarshalJSON writes the object with keys in document order.
func (s Settings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object token by token to keep key order.
// null decodes to an empty mapping.
func (s *Settings) UnmarshalJSON(data []byte) error {
	*s = Settings{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("settings must be an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("settings key must be a string")
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("setting %q: %w", key, err)
		}
		s.Set(key, value)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalYAML emits settings as a mapping in document order.
func (s Settings) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range s.Pairs() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		)
	}
	return node, nil
}
