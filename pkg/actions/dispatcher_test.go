package actions

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/log"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/protocol"
	"github.com/dukex/supplyflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	id      string
	execute func(params map[string]any) error
	schema  map[string]any
	seen    []map[string]any
}

func (f *stubFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	f.seen = append(f.seen, params)

	return protocol.ActionFunc(func(context.Context, events.SystemEvent, *slog.Logger) error {
		return f.execute(params)
	}), nil
}

func (f *stubFactory) ID() string          { return f.id }
func (f *stubFactory) Name() string        { return f.id }
func (f *stubFactory) Description() string { return "" }

func (f *stubFactory) Schema() map[string]any {
	if f.schema != nil {
		return f.schema
	}

	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"recipient": map[string]any{"type": "string"}},
	}
}

func newDispatcher(t *testing.T, factories ...protocol.ActionFactory) *Dispatcher {
	t.Helper()

	reg := registry.NewRegistry(log.Discard())
	for _, f := range factories {
		require.NoError(t, reg.RegisterAction(f))
	}

	return NewDispatcher(reg, log.Discard())
}

func TestDispatcher_Run(t *testing.T) {
	ok := &stubFactory{id: "ok", execute: func(map[string]any) error { return nil }}
	failing := &stubFactory{id: "failing", execute: func(map[string]any) error { return errors.New("smtp down") }}
	panicking := &stubFactory{id: "panicking", execute: func(map[string]any) error { panic("nil map") }}

	d := newDispatcher(t, ok, failing, panicking)
	event := events.New(events.DocumentStatusChanged, "mrrv", "doc-1", "status_changed", "u1",
		map[string]any{"createdBy": "clerk-7"})

	tests := []struct {
		name      string
		action    models.RuleAction
		wantErr   string
		wantErrIs error
	}{
		{
			name:   "success binds params",
			action: models.RuleAction{Type: "ok", Params: map[string]any{"recipient": "{{.payload.createdBy}}"}},
		},
		{
			name:    "action error",
			action:  models.RuleAction{Type: "failing"},
			wantErr: "smtp down",
		},
		{
			name:      "panic is contained",
			action:    models.RuleAction{Type: "panicking"},
			wantErrIs: ErrActionPanicked,
		},
		{
			name:      "unknown type",
			action:    models.RuleAction{Type: "teleport"},
			wantErrIs: registry.ErrActionNotRegistered,
		},
		{
			name:      "params fail schema",
			action:    models.RuleAction{Type: "ok", Params: map[string]any{"recipient": 42}},
			wantErrIs: registry.ErrInvalidParams,
		},
		{
			name:    "missing template field",
			action:  models.RuleAction{Type: "ok", Params: map[string]any{"recipient": "{{.payload.nothing}}"}},
			wantErr: "param recipient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := d.Run(t.Context(), tt.action, event)

			assert.Equal(t, tt.action.Type, result.Type)

			if tt.wantErr == "" && tt.wantErrIs == nil {
				require.NoError(t, err)
				assert.Equal(t, models.ActionStatusSuccess, result.Status)
				assert.Empty(t, result.Error)

				return
			}

			require.Error(t, err)
			assert.Equal(t, models.ActionStatusFailed, result.Status)
			assert.NotEmpty(t, result.Error)

			var execErr *ActionExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, tt.action.Type, execErr.Type)

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			}

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			}
		})
	}

	require.NotEmpty(t, ok.seen)
	assert.Equal(t, "clerk-7", ok.seen[0]["recipient"])
}

func TestDispatcher_RunBindsNativeTypes(t *testing.T) {
	leveled := &stubFactory{
		id:      "leveled",
		execute: func(map[string]any) error { return nil },
		schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"level": map[string]any{"type": "integer", "minimum": 1}},
			"required":   []any{"level"},
		},
	}

	d := newDispatcher(t, leveled)
	event := events.New(events.DocumentStatusChanged, "mrrv", "doc-1", "status_changed", "u1",
		map[string]any{"level": 2})

	result, err := d.Run(t.Context(), models.RuleAction{Type: "leveled", Params: map[string]any{"level": "{{ .level }}"}}, event)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusSuccess, result.Status)

	require.Len(t, leveled.seen, 1)
	assert.Equal(t, 2, leveled.seen[0]["level"])
}

func TestDispatcher_RunDoesNotMutateRuleParams(t *testing.T) {
	ok := &stubFactory{id: "ok", execute: func(map[string]any) error { return nil }}
	d := newDispatcher(t, ok)

	params := map[string]any{"recipient": "{{.entityId}}"}
	_, err := d.Run(t.Context(), models.RuleAction{Type: "ok", Params: params},
		events.New(events.DocumentCreated, "jo", "jo-1", "created", "", nil))
	require.NoError(t, err)

	assert.Equal(t, "{{.entityId}}", params["recipient"])
	assert.Equal(t, "jo-1", ok.seen[0]["recipient"])
}
