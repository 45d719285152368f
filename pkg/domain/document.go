package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Well-known state keys shared by the built-in nodes and the engine.
const (
	// KeyUsername holds the resolved username (shared).
	KeyUsername = "username"
	// KeyPassword holds the collected password (transient only, never persisted).
	KeyPassword = "password"
	// KeyAuthLevel holds the accumulated authentication level (shared, absent means 0).
	KeyAuthLevel = "auth_level"
	// KeyTargetAuthLevel holds the level the session must reach (shared).
	KeyTargetAuthLevel = "target_auth_level"
)

// CloneDocument deep-copies a JSON-like document (nested maps and slices).
// Scalars are copied by value; nil stays nil.
func CloneDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// AsInt converts the numeric shapes a document value can take after JSON or YAML
// decoding (int, int64, float64, json.Number, numeric strings) into an int.
// Fractional values and values out of range are rejected; floats must fit in an
// int32.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int64ToInt(n)
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float32:
		return AsInt(float64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int64ToInt(i)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func int64ToInt(n int64) (int, bool) {
	if n < math.MinInt || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

// AsDocument converts a decoded value into a document map, if it is one.
func AsDocument(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}
