// Package events defines the system events exchanged over the event bus.
package events

import (
	"maps"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type EventType string

// Wildcard subscribes to, or matches, every event type.
const Wildcard = "*"

// Topic carries relayed events on an external transport.
const Topic = "supplyflow.events"

const EventTypeMetadataKey = "event_type"
const OriginMetadataKey = "origin"

const (
	// Document lifecycle events.
	DocumentCreated       EventType = "document:created"
	DocumentStatusChanged EventType = "document:status_changed"

	// Approval events.
	ApprovalRequested EventType = "approval:requested"
	ApprovalResponded EventType = "approval:responded"
	ApprovalApproved  EventType = "approval:approved"
	ApprovalRejected  EventType = "approval:rejected"

	// Inventory events, produced by collaborators outside the engine.
	InventoryAdjusted EventType = "inventory:adjusted"

	// SLA events.
	ApprovalOverdue EventType = "sla:approval_overdue"
)

// SystemEvent is an immutable record of something that happened.
// Producers build it with New; consumers must treat Payload as read-only.
type SystemEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Payload    map[string]any `json:"payload,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// New creates an event with a fresh id and timestamp. The payload map is copied.
func New(eventType EventType, entityType, entityID, action, userID string, payload map[string]any) SystemEvent {
	return SystemEvent{
		ID:         watermill.NewULID(),
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Payload:    maps.Clone(payload),
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
	}
}

// Fields returns the event as a lookup tree for conditions and parameter binding.
// Payload keys are promoted to the top level unless they collide with a core field.
func (e SystemEvent) Fields() map[string]any {
	fields := make(map[string]any, len(e.Payload)+7)

	for k, v := range e.Payload {
		fields[k] = v
	}

	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	fields["id"] = e.ID
	fields["type"] = string(e.Type)
	fields["entityType"] = e.EntityType
	fields["entityId"] = e.EntityID
	fields["action"] = e.Action
	fields["userId"] = e.UserID
	fields["timestamp"] = e.Timestamp.Format(time.RFC3339)
	fields["payload"] = payload

	return fields
}
