// internal/listing/unwrap.go
//
// Envelope unwrapping and the active filter.
//
// The listings endpoints answer with a bare array, `{data:[…]}`, or an
// object whose array-valued properties each hold part of the result.  In
// the last case every array is concatenated in document order and scalar
// properties are ignored.

package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEnvelope is returned for bodies that are neither an array nor an object.
var ErrEnvelope = errors.New("listing: body is not an array or object")

// Unwrap extracts the record array from body.
func Unwrap(body []byte) ([]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEnvelope
	}

	switch body[0] {
	case '[':
		var list []any
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("listing: decode array: %w", err)
		}
		return list, nil
	case '{':
		return unwrapObject(body)
	}
	return nil, ErrEnvelope
}

// unwrapObject walks the object with a token decoder so arrays come back in
// the order the backend wrote them.
func unwrapObject(body []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil { // {
		return nil, fmt.Errorf("listing: decode object: %w", err)
	}

	var (
		out  []any
		data []any
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("listing: decode key: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("listing: decode %q: %w", key, err)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		var list []any
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("listing: decode %q: %w", key, err)
		}
		if key == "data" {
			data = list
		}
		out = append(out, list...)
	}

	if data != nil {
		return data, nil
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// Active keeps records whose status is the JSON number 1.  Anything else,
// including the string "1", is dropped.
func Active(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if st, ok := m["status"].(float64); ok && st == 1 {
			out = append(out, m)
		}
	}
	return out
}
