// Package protocol defines the contracts for pluggable rule actions.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/supplyflow/pkg/events"
)

// Action is one configured side effect, created with parameters already bound to an event.
type Action interface {
	Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error
}

// ActionFactory creates actions of one type and describes their parameters.
type ActionFactory interface {
	// Create builds an action from bound parameters that already passed Schema validation.
	Create(ctx context.Context, params map[string]any) (Action, error)

	// ID is the action type referenced by rules, e.g. "notify".
	ID() string

	Name() string

	Description() string

	// Schema returns the JSON schema of the action parameters.
	Schema() map[string]any
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error

func (f ActionFunc) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	return f(ctx, event, logger)
}
