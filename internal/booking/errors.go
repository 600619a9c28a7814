package booking

import (
	"bytes"
	"encoding/json"
)

// ErrorMap maps field keys to human-readable validation messages while
// preserving insertion order, so callers can focus the first offending
// field. Additional-traveler keys are namespaced as traveler_<i>_<field>.
type ErrorMap struct {
	keys     []string
	messages map[string]string
}

// NewErrorMap creates an empty ErrorMap.
func NewErrorMap() *ErrorMap {
	return &ErrorMap{messages: make(map[string]string)}
}

// Add records a message for a field, keeping first-insertion order.
func (m *ErrorMap) Add(field, message string) {
	if _, exists := m.messages[field]; !exists {
		m.keys = append(m.keys, field)
	}
	m.messages[field] = message
}

// Get returns the message for a field, or "" if the field is valid.
func (m *ErrorMap) Get(field string) string {
	return m.messages[field]
}

// Has reports whether the field has an error.
func (m *ErrorMap) Has(field string) bool {
	_, ok := m.messages[field]
	return ok
}

// Len returns the number of invalid fields.
func (m *ErrorMap) Len() int {
	return len(m.keys)
}

// Empty reports whether the draft validated cleanly.
func (m *ErrorMap) Empty() bool {
	return len(m.keys) == 0
}

// First returns the first offending field and its message in insertion
// order, for scroll-to-error behavior.
func (m *ErrorMap) First() (field, message string) {
	if len(m.keys) == 0 {
		return "", ""
	}
	return m.keys[0], m.messages[m.keys[0]]
}

// Fields returns the invalid field keys in insertion order.
func (m *ErrorMap) Fields() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *ErrorMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.messages[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
