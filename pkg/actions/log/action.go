// Package log provides the action that writes a message to the operational log.
package log

import (
	"context"
	"log/slog"

	"github.com/dukex/supplyflow/pkg/events"
	supplylog "github.com/dukex/supplyflow/pkg/log"
	"github.com/dukex/supplyflow/pkg/protocol"
)

// ActionFactory is the factory for creating log actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "log"
}

func (*ActionFactory) Name() string {
	return "Log"
}

func (*ActionFactory) Description() string {
	return "Logs a message at a specified level. Supports templating against the triggering event."
}

func (f *ActionFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	message, _ := params["message"].(string)
	level, _ := params["level"].(string)

	return &Action{Message: message, Level: supplylog.ParseLevel(level)}, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log.",
				"examples": []string{
					"Goods receipt {{.entityId}} submitted by {{.userId}}",
					"Status is now {{.payload.newStatus}}",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "warning", "error"},
			},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	}
}

type Action struct {
	Message string
	Level   slog.Level
}

func (a *Action) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	logger.Log(ctx, a.Level, a.Message,
		"event_type", event.Type,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
	)

	return nil
}
