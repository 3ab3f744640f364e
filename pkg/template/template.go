// Package template binds rule action parameters against the triggering event.
package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"text/template/parse"
	"time"

	"github.com/dukex/supplyflow/pkg/events"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"json": func(v any) (string, error) {
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}

		return string(encoded), nil
	},
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"default": func(fallback, v any) any {
		if v == nil || v == "" {
			return fallback
		}

		return v
	},
}

// NeedsTemplating reports whether s contains a template action.
func NeedsTemplating(s string) bool {
	return strings.Contains(s, "{{")
}

// Render executes templateStr against data. A template that is exactly one
// field reference, such as "{{ .level }}", yields the field's value with its
// own type. Otherwise output that is a JSON object or array is decoded and
// anything else stays a string, so identifiers such as "00123" are never
// turned into numbers. Missing map keys are errors.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.New("param").Option("missingkey=error").Funcs(funcs).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	if path, ok := fieldReference(tmpl.Tree); ok {
		if value, found := lookup(data, path); found {
			return value, nil
		}
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := buf.String()

	trimmed := strings.TrimSpace(result)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(trimmed), &jsonResult)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	return result, nil
}

// fieldReference returns the identifiers of a template whose whole body is a
// single bare field action.
func fieldReference(tree *parse.Tree) ([]string, bool) {
	if tree == nil || tree.Root == nil || len(tree.Root.Nodes) != 1 {
		return nil, false
	}

	action, ok := tree.Root.Nodes[0].(*parse.ActionNode)
	if !ok || len(action.Pipe.Decl) > 0 || len(action.Pipe.Cmds) != 1 {
		return nil, false
	}

	args := action.Pipe.Cmds[0].Args
	if len(args) != 1 {
		return nil, false
	}

	field, ok := args[0].(*parse.FieldNode)
	if !ok {
		return nil, false
	}

	return field.Ident, true
}

// lookup walks nested maps; anything else falls back to template execution.
func lookup(data any, path []string) (any, bool) {
	current := data

	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// RenderWithEvent renders one string against the event's fields
// (see events.SystemEvent.Fields).
func RenderWithEvent(input string, event events.SystemEvent) (any, error) {
	return Render(input, event.Fields())
}

// Bind returns a copy of params with every templated string rendered against
// event. Maps and slices are walked; other values are copied as is.
func Bind(params map[string]any, event events.SystemEvent) (map[string]any, error) {
	fields := event.Fields()

	bound, err := bindValue(params, fields, "")
	if err != nil {
		return nil, err
	}

	out, _ := bound.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}

	return out, nil
}

func bindValue(value any, fields map[string]any, path string) (any, error) {
	switch v := value.(type) {
	case string:
		if !NeedsTemplating(v) {
			return v, nil
		}

		rendered, err := Render(v, fields)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", displayPath(path), err)
		}

		return rendered, nil
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, child := range v {
			bound, err := bindValue(child, fields, join(path, key))
			if err != nil {
				return nil, err
			}

			out[key] = bound
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, child := range v {
			bound, err := bindValue(child, fields, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}

			out[i] = bound
		}

		return out, nil
	default:
		return v, nil
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}

	return path + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}

	return path
}
