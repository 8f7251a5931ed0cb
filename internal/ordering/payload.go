package ordering

import (
	"bytes"
	"encoding/json"
)

// NormalizePayload serializes v and strips every null, empty string and
// empty object, at any depth. Array elements that strip down to nothing are
// dropped; arrays themselves are kept even when empty.
func NormalizePayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	out, ok := prune(m)
	if !ok {
		return map[string]any{}, nil
	}
	return out.(map[string]any), nil
}

// MarshalPayload is NormalizePayload followed by json.Marshal.
func MarshalPayload(v any) ([]byte, error) {
	m, err := NormalizePayload(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func prune(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case map[string]any:
		for k, child := range t {
			pruned, keep := prune(child)
			if !keep {
				delete(t, k)
				continue
			}
			t[k] = pruned
		}
		return t, len(t) > 0
	case []any:
		kept := make([]any, 0, len(t))
		for _, child := range t {
			if pruned, keep := prune(child); keep {
				kept = append(kept, pruned)
			}
		}
		return kept, true
	default:
		return t, true
	}
}
