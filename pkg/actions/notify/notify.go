// Package notify provides the notify and broadcast actions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/supplyflow/pkg/events"
	notifier "github.com/dukex/supplyflow/pkg/notify"
	"github.com/dukex/supplyflow/pkg/protocol"
)

var ErrNoRecipients = errors.New("notification has no recipients")

// ActionFactory creates actions that notify specific users.
type ActionFactory struct {
	sink notifier.Sink
}

func NewActionFactory(sink notifier.Sink) *ActionFactory {
	return &ActionFactory{sink: sink}
}

func (*ActionFactory) ID() string {
	return "notify"
}

func (*ActionFactory) Name() string {
	return "Notify"
}

func (*ActionFactory) Description() string {
	return "Sends a push, email or real-time notification to a list of users."
}

func (f *ActionFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	channel := notifier.ChannelRealtime
	if c, ok := params["channel"].(string); ok && c != "" {
		channel = notifier.Channel(c)
	}

	recipients := recipientsFrom(params["recipients"])
	if len(recipients) == 0 && channel != notifier.ChannelRealtime {
		return nil, fmt.Errorf("%w for channel %s", ErrNoRecipients, channel)
	}

	title, _ := params["title"].(string)
	message, _ := params["message"].(string)

	return &Action{
		sink: f.sink,
		notification: notifier.Notification{
			Channel:    channel,
			Recipients: recipients,
			Title:      title,
			Body:       message,
		},
	}, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":    "string",
				"default": "realtime",
				"enum":    []string{"push", "email", "realtime"},
			},
			"recipients": map[string]any{
				"type":        []string{"array", "string"},
				"description": "User ids, as a list or a comma separated string. Usually bound from the event.",
				"items":       map[string]any{"type": "string"},
				"examples":    []string{"{{.payload.createdBy}}", "u1,u2"},
			},
			"title": map[string]any{
				"type": "string",
			},
			"message": map[string]any{
				"type":     "string",
				"examples": []string{"{{.entityType}} {{.entityId}} is now {{.payload.newStatus}}"},
			},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	}
}

// Action sends one notification through the sink.
type Action struct {
	sink         notifier.Sink
	notification notifier.Notification
}

func (a *Action) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	n := withEvent(a.notification, event)

	err := a.sink.Send(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	logger.DebugContext(ctx, "notification sent", "channel", n.Channel, "recipients", len(n.Recipients))

	return nil
}

func withEvent(n notifier.Notification, event events.SystemEvent) notifier.Notification {
	n.EventID = event.ID
	n.EventType = string(event.Type)
	n.EntityType = event.EntityType
	n.EntityID = event.EntityID

	return n
}

func recipientsFrom(v any) []string {
	var raw []string

	switch value := v.(type) {
	case string:
		raw = strings.Split(value, ",")
	case []string:
		raw = value
	case []any:
		for _, item := range value {
			s, ok := item.(string)
			if ok {
				raw = append(raw, s)
			}
		}
	}

	recipients := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}

		if _, dup := seen[r]; dup {
			continue
		}

		seen[r] = struct{}{}
		recipients = append(recipients, r)
	}

	return recipients
}
