package conditions

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path such as "payload.items.0.qty" against a tree of
// maps and slices. The second result is false when any segment is missing.
func Lookup(fields map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = fields

	for _, segment := range strings.Split(path, ".") {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func child(node any, segment string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[segment]

		return v, ok
	case []any:
		return index(len(n), segment, func(i int) any { return n[i] })
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(node)

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		v := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}

		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		return index(rv.Len(), segment, func(i int) any { return rv.Index(i).Interface() })
	default:
		return nil, false
	}
}

func index(length int, segment string, at func(int) any) (any, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil || i < 0 || i >= length {
		return nil, false
	}

	return at(i), true
}
