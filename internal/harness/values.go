package harness

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rxstore/internal/action"
)

// payloadOf returns the fields of a as plain values, or nil for an action
// without fields. Failures are flattened to effect, trigger and error.
func payloadOf(a action.Action) (any, error) {
	if f, ok := a.(action.Failed); ok {
		p := map[string]any{
			"effect":  f.Effect,
			"trigger": string(action.Of(f.Trigger)),
		}
		if f.Err != nil {
			p["error"] = f.Err.Error()
		}
		return p, nil
	}

	v, err := plainValue(a)
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return nil, nil
	}
	return v, nil
}

// plainValue converts v to the plain form YAML decoding produces:
// map[string]any, []any and scalars. Map keys of any type become strings
// so cell values and scenario expectations compare alike.
func plainValue(v any) (any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return normalize(out), nil
}

// normalize rewrites YAML-decoded values into string-keyed maps.
func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = normalize(elem)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[fmt.Sprint(k)] = normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = normalize(elem)
		}
		return out
	default:
		return v
	}
}

// matchValue reports whether actual matches expected. Maps match by
// subset: every expected key must be present with a matching value and
// extra keys in actual are ignored. Everything else must be equal.
func matchValue(actual, expected any) bool {
	expMap, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	actMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for k, exp := range expMap {
		act, exists := actMap[k]
		if !exists || !matchValue(act, exp) {
			return false
		}
	}
	return true
}
