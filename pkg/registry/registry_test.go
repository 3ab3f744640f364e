package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/log"
	"github.com/dukex/supplyflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFactory struct {
	id      string
	schema  map[string]any
	created []map[string]any
}

func (f *mockFactory) ID() string          { return f.id }
func (f *mockFactory) Name() string        { return "Mock" }
func (f *mockFactory) Description() string { return "records created params" }
func (f *mockFactory) Schema() map[string]any {
	return f.schema
}

func (f *mockFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	f.created = append(f.created, params)

	return protocol.ActionFunc(func(context.Context, events.SystemEvent, *slog.Logger) error {
		return nil
	}), nil
}

func messageSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1},
			"level":   map[string]any{"type": "string", "enum": []string{"debug", "info"}},
		},
		"required": []string{"message"},
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry(log.Discard())
	factory := &mockFactory{id: "mock", schema: messageSchema()}

	require.NoError(t, r.RegisterAction(factory))

	assert.True(t, r.HasAction("mock"))
	assert.False(t, r.HasAction("other"))
	assert.Equal(t, []string{"mock"}, r.ActionTypes())

	action, err := r.CreateAction(context.Background(), "mock", map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.NotNil(t, action)
	assert.Len(t, factory.created, 1)
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry(log.Discard())

	_, err := r.CreateAction(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrActionNotRegistered)

	_, err = r.Factory("missing")
	assert.ErrorIs(t, err, ErrActionNotRegistered)

	assert.ErrorIs(t, r.ValidateParams("missing", nil), ErrActionNotRegistered)
}

func TestRegistry_ValidateParams(t *testing.T) {
	r := NewRegistry(log.Discard())
	r.MustRegisterAction(&mockFactory{id: "mock", schema: messageSchema()})
	r.MustRegisterAction(&mockFactory{id: "free"})

	tests := []struct {
		name       string
		actionType string
		params     map[string]any
		wantErr    bool
	}{
		{name: "valid", actionType: "mock", params: map[string]any{"message": "hello", "level": "info"}},
		{name: "missing required", actionType: "mock", params: map[string]any{}, wantErr: true},
		{name: "nil params", actionType: "mock", params: nil, wantErr: true},
		{name: "wrong type", actionType: "mock", params: map[string]any{"message": 5}, wantErr: true},
		{name: "not in enum", actionType: "mock", params: map[string]any{"message": "x", "level": "loud"}, wantErr: true},
		{name: "no schema accepts anything", actionType: "free", params: map[string]any{"x": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateParams(tt.actionType, tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidParams))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_CreateRejectsInvalidParamsBeforeFactory(t *testing.T) {
	r := NewRegistry(log.Discard())
	factory := &mockFactory{id: "mock", schema: messageSchema()}
	r.MustRegisterAction(factory)

	_, err := r.CreateAction(context.Background(), "mock", map[string]any{"level": "info"})
	require.ErrorIs(t, err, ErrInvalidParams)
	assert.Empty(t, factory.created)
}

func TestRegistry_InvalidSchema(t *testing.T) {
	r := NewRegistry(log.Discard())

	err := r.RegisterAction(&mockFactory{id: "bad", schema: map[string]any{"type": 12}})
	require.Error(t, err)
	assert.False(t, r.HasAction("bad"))
}
