// Package enqueue provides the action that pushes the triggering event onto a Redis list.
package enqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/protocol"
	"github.com/redis/go-redis/v9"
)

// Pusher is the slice of the Redis client the action needs.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// Message is what lands on the queue.
type Message struct {
	Event events.SystemEvent `json:"event"`
	Data  map[string]any     `json:"data,omitempty"`
}

// ActionFactory creates enqueue actions for external workers.
type ActionFactory struct {
	client Pusher
}

func NewActionFactory(client Pusher) *ActionFactory {
	return &ActionFactory{client: client}
}

func (*ActionFactory) ID() string {
	return "enqueue"
}

func (*ActionFactory) Name() string {
	return "Enqueue"
}

func (*ActionFactory) Description() string {
	return "Pushes the event and optional data onto a Redis list consumed by external workers."
}

func (f *ActionFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	queue, _ := params["queue"].(string)
	data, _ := params["data"].(map[string]any)

	return &Action{client: f.client, queue: queue, data: data}, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queue": map[string]any{
				"type":        "string",
				"description": "Redis list key",
				"minLength":   1,
				"examples":    []string{"supplyflow:inventory-postings"},
			},
			"data": map[string]any{
				"type":        "object",
				"description": "Extra fields for the worker. Values support templating.",
			},
		},
		"required":             []string{"queue"},
		"additionalProperties": false,
	}
}

type Action struct {
	client Pusher
	queue  string
	data   map[string]any
}

func (a *Action) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	body, err := json.Marshal(Message{Event: event, Data: a.data})
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	length, err := a.client.RPush(ctx, a.queue, body).Result()
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", a.queue, err)
	}

	logger.DebugContext(ctx, "event enqueued", "queue", a.queue, "queue_length", length)

	return nil
}
