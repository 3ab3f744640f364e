// Package registry resolves rule action types to their factories.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/supplyflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrActionNotRegistered = errors.New("action type not registered")
	ErrInvalidParams       = errors.New("invalid action params")
)

type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	factories map[string]protocol.ActionFactory
	schemas   map[string]*gojsonschema.Schema
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		factories: make(map[string]protocol.ActionFactory),
		schemas:   make(map[string]*gojsonschema.Schema),
	}
}

// RegisterAction adds or replaces a factory. Its schema is compiled once here.
func (r *Registry) RegisterAction(factory protocol.ActionFactory) error {
	var compiled *gojsonschema.Schema

	if schema := factory.Schema(); schema != nil {
		var err error

		compiled, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			return fmt.Errorf("action %s has an invalid schema: %w", factory.ID(), err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.ID()] = factory
	r.schemas[factory.ID()] = compiled

	r.logger.Debug("registered action", "action_type", factory.ID())

	return nil
}

// MustRegisterAction is RegisterAction for built-ins whose schemas are static.
func (r *Registry) MustRegisterAction(factory protocol.ActionFactory) {
	err := r.RegisterAction(factory)
	if err != nil {
		panic(err)
	}
}

func (r *Registry) HasAction(actionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[actionType]

	return ok
}

// ActionTypes returns the registered types, sorted.
func (r *Registry) ActionTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for id := range r.factories {
		types = append(types, id)
	}

	slices.Sort(types)

	return types
}

// Factory returns the factory registered for actionType.
//
//nolint:ireturn
func (r *Registry) Factory(actionType string) (protocol.ActionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrActionNotRegistered, actionType)
	}

	return factory, nil
}

// ValidateParams checks params against the schema of actionType.
func (r *Registry) ValidateParams(actionType string, params map[string]any) error {
	r.mu.RLock()
	schema, registered := r.schemas[actionType]
	r.mu.RUnlock()

	if !registered {
		return fmt.Errorf("%w: %q", ErrActionNotRegistered, actionType)
	}

	if schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("%w for %s: %w", ErrInvalidParams, actionType, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("%w for %s: %s", ErrInvalidParams, actionType, strings.Join(messages, "; "))
	}

	return nil
}

// CreateAction validates params and builds an action of actionType.
//
//nolint:ireturn
func (r *Registry) CreateAction(ctx context.Context, actionType string, params map[string]any) (protocol.Action, error) {
	factory, err := r.Factory(actionType)
	if err != nil {
		return nil, err
	}

	err = r.ValidateParams(actionType, params)
	if err != nil {
		return nil, err
	}

	action, err := factory.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}

	return action, nil
}
