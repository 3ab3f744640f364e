// Package actions runs rule actions against the events that triggered them.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/registry"
	"github.com/dukex/supplyflow/pkg/template"
)

var ErrActionPanicked = errors.New("action panicked")

// ActionExecutionError is the failure of one action. It never aborts the
// remaining actions of a rule.
type ActionExecutionError struct {
	Type string
	Err  error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Type, e.Err)
}

func (e *ActionExecutionError) Unwrap() error {
	return e.Err
}

// Dispatcher resolves action types through the registry and executes them.
// It has no retry policy; actions that need one carry their own.
type Dispatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewDispatcher(registry *registry.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger.With("module", "dispatcher")}
}

// Run binds the action params against event, validates and executes the
// action. The returned result is always usable; err is an
// *ActionExecutionError when the result status is failed.
func (d *Dispatcher) Run(ctx context.Context, action models.RuleAction, event events.SystemEvent) (models.ActionResult, error) {
	start := time.Now()

	err := d.run(ctx, action, event)

	result := models.ActionResult{
		Type:       action.Type,
		Status:     models.ActionStatusSuccess,
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		execErr := &ActionExecutionError{Type: action.Type, Err: err}

		result.Status = models.ActionStatusFailed
		result.Error = err.Error()

		d.logger.ErrorContext(ctx, "action failed",
			"action_type", action.Type,
			"event_id", event.ID,
			"error", err,
		)

		return result, execErr
	}

	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, action models.RuleAction, event events.SystemEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()

	params, err := template.Bind(action.Params, event)
	if err != nil {
		return fmt.Errorf("failed to bind params: %w", err)
	}

	instance, err := d.registry.CreateAction(ctx, action.Type, params)
	if err != nil {
		return err
	}

	logger := d.logger.With("action_type", action.Type, "event_id", event.ID)

	return instance.Execute(ctx, event, logger)
}
