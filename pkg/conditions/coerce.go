package conditions

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// toNumber coerces v the way a lenient JSON consumer would. Anything that is not
// a number, numeric string or bool becomes NaN.
func toNumber(v any, present bool) float64 {
	if !present {
		return math.NaN()
	}

	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}

		return f
	case bool:
		if n {
			return 1
		}

		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return math.NaN()
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}

		return f
	default:
		return math.NaN()
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	default:
		return false
	}
}

// strictEqual compares without cross-type coercion, except that all numeric
// kinds are compared by value.
func strictEqual(a any, aPresent bool, b any) bool {
	if !aPresent {
		return false
	}

	if isNumber(a) && isNumber(b) {
		x, y := toNumber(a, true), toNumber(b, true)

		return x == y
	}

	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}

	return a == b
}

// toString renders v for the lenient equality fallback. Callers never pass
// missing or nil values.
func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	}

	if isNumber(v) {
		f := toNumber(v, true)
		if math.IsNaN(f) {
			return "NaN"
		}

		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(encoded)
}

func looseEqual(a any, aPresent bool, b any) bool {
	if strictEqual(a, aPresent, b) {
		return true
	}

	// A missing or nil side only equals nil, never its text form.
	if !aPresent || a == nil || b == nil {
		return false
	}

	return toString(a) == toString(b)
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}
