package schema

import (
	"encoding/json"
	"strings"
)

// Object is an opaque JSON object: tool arguments, input schemas and other
// server-defined payloads. Fields are validated where they are used.
type Object map[string]any

// ParseObject decodes raw JSON into an Object. Absent, blank or malformed
// input yields an empty object.
func ParseObject(raw []byte) Object {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Object{}
	}
	var out Object
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return Object{}
	}
	return out
}

// String returns the string field key.
func (o Object) String(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

// Int returns the numeric field key as an int. JSON numbers decode as float64.
func (o Object) Int(key string) (int, bool) {
	switch v := o[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// Bool returns the boolean field key.
func (o Object) Bool(key string) (bool, bool) {
	b, ok := o[key].(bool)
	return b, ok
}

// Map returns the nested object at key.
func (o Object) Map(key string) (Object, bool) {
	switch v := o[key].(type) {
	case map[string]any:
		return Object(v), true
	case Object:
		return v, true
	}
	return nil, false
}

// Clone returns a deep copy made through a JSON round trip.
func (o Object) Clone() Object {
	if o == nil {
		return Object{}
	}
	data, err := json.Marshal(o)
	if err != nil {
		return Object{}
	}
	return ParseObject(data)
}

// MarshalJSON renders a nil Object as {} rather than null.
func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(o))
}
