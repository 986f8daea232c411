package sampling

import (
	"encoding/json"
	"sort"
)

// Value is one mergeable metric value. The set of variants is closed:
// Number, Flag, Text, List and Map. A nil Value means absent.
type Value interface {
	isValue()
}

type (
	Number float64
	Flag   bool
	Text   string
	List   []Value
	Map    map[string]Value
)

func (Number) isValue() {}
func (Flag) isValue()   {}
func (Text) isValue()   {}
func (List) isValue()   {}
func (Map) isValue()    {}

// Number returns the numeric value stored under key.
func (m Map) Number(key string) (float64, bool) {
	n, ok := m[key].(Number)
	return float64(n), ok
}

// Text returns the string value stored under key.
func (m Map) Text(key string) (string, bool) {
	s, ok := m[key].(Text)
	return string(s), ok
}

// Flag returns the boolean value stored under key.
func (m Map) Flag(key string) (bool, bool) {
	b, ok := m[key].(Flag)
	return bool(b), ok
}

// Lookup walks nested maps along path and returns the value at the end.
func (m Map) Lookup(path ...string) (Value, bool) {
	var cur Value = m
	for _, key := range path {
		inner, ok := cur.(Map)
		if !ok {
			return nil, false
		}
		cur, ok = inner[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON decodes arbitrary JSON objects into the closed variant set.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = FromMap(raw)
	return nil
}

// FromAny converts decoded JSON (or plain Go values) into a Value.
// Unsupported types convert to nil.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return nil
	case Value:
		return t
	case float64:
		return Number(t)
	case float32:
		return Number(t)
	case int:
		return Number(t)
	case int64:
		return Number(t)
	case bool:
		return Flag(t)
	case string:
		return Text(t)
	case []interface{}:
		out := make(List, 0, len(t))
		for _, item := range t {
			if iv := FromAny(item); iv != nil {
				out = append(out, iv)
			}
		}
		return out
	case []string:
		out := make(List, 0, len(t))
		for _, item := range t {
			out = append(out, Text(item))
		}
		return out
	case map[string]interface{}:
		return FromMap(t)
	default:
		return nil
	}
}

// FromMap converts a decoded JSON object into a Map.
func FromMap(raw map[string]interface{}) Map {
	out := make(Map, len(raw))
	for k, v := range raw {
		if cv := FromAny(v); cv != nil {
			out[k] = cv
		}
	}
	return out
}
