// Package ordered provides a string map that remembers the order keys were
// first inserted in. Upstream form fields and listing attributes are both
// order sensitive once they are rendered back into a request.
package ordered

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type Pair struct {
	Key   string
	Value string
}

// Map is an insertion-ordered map[string]string. The zero value is an empty
// map ready to use.
type Map struct {
	keys   []string
	values map[string]string
}

func FromPairs(pairs ...Pair) Map {
	var m Map
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Set assigns a value, a key that already exists keeps its position.
func (m *Map) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Map) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	idx := slices.Index(m.keys, key)
	m.keys = slices.Delete(m.keys, idx, idx+1)
}

func (m Map) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Value returns the value for key or an empty string.
func (m Map) Value(key string) string {
	return m.values[key]
}

func (m Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m Map) Len() int {
	return len(m.keys)
}

func (m Map) Keys() []string {
	return slices.Clone(m.keys)
}

func (m Map) Pairs() []Pair {
	pairs := make([]Pair, len(m.keys))
	for i, k := range m.keys {
		pairs[i] = Pair{Key: k, Value: m.values[k]}
	}
	return pairs
}

func (m Map) Clone() Map {
	out := Map{
		keys:   slices.Clone(m.keys),
		values: make(map[string]string, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Join renders every pair as "<key><kvsep><value>" joined by sep.
func (m Map) Join(kvsep, sep string) string {
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = k + kvsep + m.values[k]
	}
	return strings.Join(parts, sep)
}

func (m Map) MarshalJSON() ([]byte, error) {
	var buff bytes.Buffer
	buff.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buff.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buff.Write(key)
		buff.WriteByte(':')
		buff.Write(value)
	}
	buff.WriteByte('}')
	return buff.Bytes(), nil
}

func (m *Map) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data, StringifyScalar)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// ScalarFunc converts a raw JSON value into its string form, returning false
// when the key should be left out of the map entirely.
type ScalarFunc func(raw json.RawMessage) (value string, keep bool, err error)

// StringifyScalar keeps every key. Strings are unquoted, null becomes an
// empty string and everything else is kept as its compact JSON text.
func StringifyScalar(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", true, nil
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, true, err
	case 'n':
		return "", true, nil
	case '{', '[':
		var compacted bytes.Buffer
		err := json.Compact(&compacted, raw)
		return compacted.String(), true, err
	}
	return string(raw), true, nil
}

// DecodeJSON decodes a JSON object preserving key order. A JSON null decodes
// to an empty map.
func DecodeJSON(data []byte, conv ScalarFunc) (Map, error) {
	var out Map

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return out, err
	}
	if tok == nil {
		return out, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return out, fmt.Errorf("ordered: expected json object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out, err
		}
		key, ok := tok.(string)
		if !ok {
			return out, fmt.Errorf("ordered: expected object key, got %v", tok)
		}
		var raw json.RawMessage
		err = dec.Decode(&raw)
		if err != nil {
			return out, fmt.Errorf("ordered: decode value of %q: %w", key, err)
		}
		value, keep, err := conv(raw)
		if err != nil {
			return out, fmt.Errorf("ordered: convert value of %q: %w", key, err)
		}
		if keep {
			out.Set(key, value)
		}
	}

	_, err = dec.Token()
	if err != nil {
		return out, err
	}
	return out, nil
}
