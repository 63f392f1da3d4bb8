package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key identifies a query. Keys are ordered tuples compared structurally:
// two keys are equal when their canonical JSON forms are equal, so maps
// and structs with the same content match regardless of identity or map
// iteration order. Keys form a hierarchy by prefix.
//
//	Key{"experiments", "list", map[string]any{"status": "LIVE"}}
//
// Elements that cannot be JSON-encoded are compared by their %v form.
type Key []any

// String returns the canonical form of the key.
func (k Key) String() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

// Equal reports whether k and other are structurally equal.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// HasPrefix reports whether prefix matches the leading elements of k.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if canonicalElement(k[i]) != canonicalElement(prefix[i]) {
			return false
		}
	}
	return true
}

// Scope returns the first element as a string, used to label telemetry.
func (k Key) Scope() string {
	if len(k) == 0 {
		return ""
	}
	if s, ok := k[0].(string); ok {
		return s
	}
	return canonicalElement(k[0])
}

func (k Key) parts() []string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = canonicalElement(v)
	}
	return parts
}

func canonicalElement(v any) string {
	b, err := canonicalize(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	return string(b)
}

// canonicalize produces a deterministic JSON representation of v.
// Structs and typed maps are first normalized through encoding/json so
// that nested map[string]any values get sorted keys.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case string, bool, float64, int, int64:
		return json.Marshal(val)
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case Key:
		return canonicalizeSlice([]any(val))
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	switch g := generic.(type) {
	case map[string]any:
		return canonicalizeMap(g)
	case []any:
		return canonicalizeSlice(g)
	default:
		return raw, nil
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
