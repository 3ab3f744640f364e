package notify

import (
	"context"
	"log/slog"

	"github.com/dukex/supplyflow/pkg/events"
	notifier "github.com/dukex/supplyflow/pkg/notify"
	"github.com/dukex/supplyflow/pkg/protocol"
)

// BroadcastFactory creates actions that broadcast to everyone watching a document.
type BroadcastFactory struct {
	sink notifier.Sink
}

func NewBroadcastFactory(sink notifier.Sink) *BroadcastFactory {
	return &BroadcastFactory{sink: sink}
}

func (*BroadcastFactory) ID() string {
	return "broadcast"
}

func (*BroadcastFactory) Name() string {
	return "Broadcast"
}

func (*BroadcastFactory) Description() string {
	return "Broadcasts a real-time message to the room of the event's document."
}

func (f *BroadcastFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	room, _ := params["room"].(string)
	title, _ := params["title"].(string)
	message, _ := params["message"].(string)

	return &BroadcastAction{
		sink: f.sink,
		room: room,
		notification: notifier.Notification{
			Channel: notifier.ChannelBroadcast,
			Title:   title,
			Body:    message,
		},
	}, nil
}

func (f *BroadcastFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"room": map[string]any{
				"type":        "string",
				"description": "Room to broadcast to. Defaults to <entityType>:<entityId> of the event.",
			},
			"title": map[string]any{
				"type": "string",
			},
			"message": map[string]any{
				"type": "string",
			},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	}
}

type BroadcastAction struct {
	sink         notifier.Sink
	room         string
	notification notifier.Notification
}

func (a *BroadcastAction) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	n := withEvent(a.notification, event)

	n.Room = a.room
	if n.Room == "" {
		n.Room = notifier.Room(event.EntityType, event.EntityID)
	}

	err := a.sink.Send(ctx, n)
	if err != nil {
		return err
	}

	logger.DebugContext(ctx, "broadcast sent", "room", n.Room)

	return nil
}
