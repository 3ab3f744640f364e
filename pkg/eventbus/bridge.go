package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/otelhelper"
)

type remoteKey struct{}

// FromRemote reports whether ctx belongs to an event that Ingest brought in from another instance.
func FromRemote(ctx context.Context) bool {
	remote, _ := ctx.Value(remoteKey{}).(bool)

	return remote
}

func withRemote(ctx context.Context) context.Context {
	return context.WithValue(ctx, remoteKey{}, true)
}

// Local clears the remote marker so events published under the returned
// context are relayed again.
func Local(ctx context.Context) context.Context {
	if !FromRemote(ctx) {
		return ctx
	}

	return context.WithValue(ctx, remoteKey{}, false)
}

// Relay forwards local events to a watermill publisher so that other
// instances can observe them. Events that arrived through Ingest are not forwarded again.
type Relay struct {
	bus       Subscriber
	publisher message.Publisher
	origin    string
	logger    *slog.Logger

	mu    sync.Mutex
	subID string
}

func NewRelay(bus Subscriber, publisher message.Publisher, origin string, logger *slog.Logger) *Relay {
	return &Relay{
		bus:       bus,
		publisher: publisher,
		origin:    origin,
		logger:    logger.With("module", "event_relay", "origin", origin),
	}
}

func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subID != "" {
		return
	}

	r.subID = r.bus.Subscribe(events.Wildcard, r.forward)
}

func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subID == "" {
		return
	}

	r.bus.Unsubscribe(r.subID)
	r.subID = ""
}

func (r *Relay) forward(ctx context.Context, event events.SystemEvent) error {
	if FromRemote(ctx) {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set("key", event.EntityID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.Type))
	msg.Metadata.Set(events.OriginMetadataKey, r.origin)
	otelhelper.Inject(ctx, msg.Metadata)

	err = r.publisher.Publish(events.Topic, msg)
	if err != nil {
		return fmt.Errorf("failed to relay event %s: %w", event.ID, err)
	}

	r.logger.DebugContext(ctx, "event relayed", "event_id", event.ID, "event_type", event.Type)

	return nil
}

// Ingest consumes relayed events and republishes the ones from other
// origins onto the local bus.
type Ingest struct {
	bus        Publisher
	subscriber message.Subscriber
	origin     string
	logger     *slog.Logger
}

func NewIngest(bus Publisher, subscriber message.Subscriber, origin string, logger *slog.Logger) *Ingest {
	return &Ingest{
		bus:        bus,
		subscriber: subscriber,
		origin:     origin,
		logger:     logger.With("module", "event_ingest", "origin", origin),
	}
}

// Run consumes until ctx is cancelled or the subscriber closes its channel.
func (i *Ingest) Run(ctx context.Context) error {
	messages, err := i.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			i.handle(ctx, msg)
		}
	}
}

func (i *Ingest) handle(ctx context.Context, msg *message.Message) {
	if msg.Metadata.Get(events.OriginMetadataKey) == i.origin {
		msg.Ack()

		return
	}

	var event events.SystemEvent

	err := json.Unmarshal(msg.Payload, &event)
	if err != nil {
		i.logger.ErrorContext(ctx, "dropping malformed event", "message_uuid", msg.UUID, "error", err)
		msg.Ack()

		return
	}

	msgCtx := withRemote(otelhelper.Extract(ctx, msg.Metadata))

	err = i.bus.Publish(msgCtx, event)
	if err != nil {
		i.logger.ErrorContext(msgCtx, "failed to publish ingested event", "event_id", event.ID, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}
