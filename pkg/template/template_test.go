package template

import (
	"testing"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"name":  "John",
		"code":  "00123",
		"isNew": true,
	}

	result, err := Render("{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "John", result)

	result, err = Render("{{ .code }}", data)
	require.NoError(t, err)
	assert.Equal(t, "00123", result)

	result, err = Render("{{ .isNew }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = Render("flag={{ .isNew }}", data)
	require.NoError(t, err)
	assert.Equal(t, "flag=true", result)
}

func TestRender_FieldReferenceKeepsType(t *testing.T) {
	data := map[string]any{
		"level":  2,
		"amount": 12.5,
		"note":   nil,
		"doc":    map[string]any{"lines": []any{"a", "b"}, "count": int64(7)},
	}

	tests := []struct {
		name     string
		template string
		want     any
	}{
		{name: "int", template: "{{ .level }}", want: 2},
		{name: "float", template: "{{.amount}}", want: 12.5},
		{name: "nil", template: "{{ .note }}", want: nil},
		{name: "nested", template: "{{ .doc.count }}", want: int64(7)},
		{name: "slice", template: "{{ .doc.lines }}", want: []any{"a", "b"}},
		{name: "surrounding text", template: "L{{ .level }}", want: "L2"},
		{name: "padded", template: " {{ .level }}", want: " 2"},
		{name: "pipeline", template: "{{ .level | printf \"%03d\" }}", want: "002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestRender_JSONOutput(t *testing.T) {
	data := map[string]any{
		"approvers": []any{"u1", "u2"},
	}

	result, err := Render("{{ json .approvers }}", data)
	require.NoError(t, err)
	assert.Equal(t, []any{"u1", "u2"}, result)

	result, err = Render(`{"count": {{ len .approvers }}}`, data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 2.0}, result)
}

func TestRender_ErrorHandling(t *testing.T) {
	data := map[string]any{"test": "value"}

	_, err := Render("{{ .test", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")

	_, err = Render("{{ nonexistent.field }}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function \"nonexistent\" not defined")

	_, err = Render("{{ .missing }}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute template")

	_, err = Render(`{"broken": {{ .test }}}`, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")
}

func TestRender_Funcs(t *testing.T) {
	data := map[string]any{"name": "Ada", "empty": ""}

	result, err := Render(`{{ upper .name }}-{{ lower .name }}-{{ default "n/a" .empty }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "ADA-ada-n/a", result)

	result, err = Render("{{ now }}", data)
	require.NoError(t, err)
	assert.NotEmpty(t, result)
}

func TestBind(t *testing.T) {
	event := events.New(events.DocumentStatusChanged, "mrrv", "doc-1", "status_changed", "user-9", map[string]any{
		"to":         "approved",
		"created_by": "user-3",
		"approvers":  []any{"a1", "a2"},
		"level":      2,
	})

	params := map[string]any{
		"recipient": "{{ .created_by }}",
		"title":     "Document {{ .entityType }}/{{ .entityId }} is {{ .payload.to }}",
		"approvers": "{{ json .approvers }}",
		"priority":  3,
		"level":     "{{ .level }}",
		"channels":  []any{"push", "{{ .userId }}"},
		"meta":      map[string]any{"by": "{{ .userId }}", "fixed": true},
	}

	bound, err := Bind(params, event)
	require.NoError(t, err)

	assert.Equal(t, "user-3", bound["recipient"])
	assert.Equal(t, "Document mrrv/doc-1 is approved", bound["title"])
	assert.Equal(t, []any{"a1", "a2"}, bound["approvers"])
	assert.Equal(t, 3, bound["priority"])
	assert.Equal(t, []any{"push", "user-9"}, bound["channels"])
	assert.Equal(t, map[string]any{"by": "user-9", "fixed": true}, bound["meta"])
	assert.Equal(t, 2, bound["level"])

	assert.Equal(t, "{{ .created_by }}", params["recipient"], "input params must not be mutated")
}

func TestBind_ReportsParamPath(t *testing.T) {
	event := events.New(events.DocumentCreated, "jo", "doc-1", "created", "", nil)

	_, err := Bind(map[string]any{"meta": map[string]any{"owner": "{{ .payload.owner }}"}}, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "param meta.owner")
}

func TestBind_NilParams(t *testing.T) {
	bound, err := Bind(nil, events.New(events.DocumentCreated, "jo", "doc-1", "created", "", nil))
	require.NoError(t, err)
	assert.Empty(t, bound)
}

func TestNeedsTemplating(t *testing.T) {
	assert.True(t, NeedsTemplating("hello {{ .name }}"))
	assert.False(t, NeedsTemplating("hello"))
}
