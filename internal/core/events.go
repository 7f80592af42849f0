package core

import "encoding/json"

// MarshalFrame serializes an outbound event value to a wire frame.
func MarshalFrame(v any) (Frame, error) {
	return json.Marshal(v)
}

// MarshalEvent builds a wire frame with the envelope "type" field merged
// into the payload, matching the adapter's outbound event shape.
func MarshalEvent(kind string, fields map[string]any) (Frame, error) {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["type"] = kind
	return json.Marshal(m)
}
