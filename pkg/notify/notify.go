// Package notify delivers fire-and-forget notifications produced by rule actions.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

type Channel string

const (
	ChannelPush      Channel = "push"
	ChannelEmail     Channel = "email"
	ChannelRealtime  Channel = "realtime"
	ChannelBroadcast Channel = "broadcast"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelRealtime, ChannelBroadcast:
		return true
	default:
		return false
	}
}

// Notification is one message for a set of recipients, or for everyone in
// a document room when Channel is broadcast.
type Notification struct {
	Channel    Channel        `json:"channel"`
	Recipients []string       `json:"recipients,omitempty"`
	Room       string         `json:"room,omitempty"`
	Title      string         `json:"title,omitempty"`
	Body       string         `json:"body"`
	EventID    string         `json:"event_id,omitempty"`
	EventType  string         `json:"event_type,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Room names the broadcast room of a document.
func Room(entityType, entityID string) string {
	return entityType + ":" + entityID
}

type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the operational log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "notify")}
}

func (s *LogSink) Send(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification",
		"channel", n.Channel,
		"recipients", n.Recipients,
		"room", n.Room,
		"title", n.Title,
		"event_id", n.EventID,
		"entity_id", n.EntityID,
	)

	return nil
}

// Multi sends to every sink and joins their errors.
type Multi []Sink

func (m Multi) Send(ctx context.Context, n Notification) error {
	var errs []error

	for _, sink := range m {
		err := sink.Send(ctx, n)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Memory keeps every notification it receives.
type Memory struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func (m *Memory) Send(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	n.Recipients = slices.Clone(n.Recipients)
	m.sent = append(m.sent, n)

	return nil
}

func (m *Memory) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.sent)
}
