package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	payload := map[string]any{"status": "submitted"}

	event := New(DocumentStatusChanged, "mrrv", "doc-1", "status_changed", "user-1", payload)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, DocumentStatusChanged, event.Type)
	assert.Equal(t, "mrrv", event.EntityType)
	assert.Equal(t, "doc-1", event.EntityID)
	assert.Equal(t, "user-1", event.UserID)
	assert.False(t, event.Timestamp.IsZero())

	payload["status"] = "changed"
	assert.Equal(t, "submitted", event.Payload["status"], "payload must be copied on creation")
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New(DocumentCreated, "mrrv", "doc-1", "created", "", nil)
	b := New(DocumentCreated, "mrrv", "doc-1", "created", "", nil)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestSystemEvent_Fields(t *testing.T) {
	event := New(DocumentStatusChanged, "mrrv", "doc-1", "status_changed", "user-1", map[string]any{
		"status":     "submitted",
		"entityType": "spoofed",
		"amount":     42,
	})

	fields := event.Fields()

	assert.Equal(t, "document:status_changed", fields["type"])
	assert.Equal(t, "mrrv", fields["entityType"], "core fields win over payload keys")
	assert.Equal(t, "doc-1", fields["entityId"])
	assert.Equal(t, "user-1", fields["userId"])
	assert.Equal(t, "submitted", fields["status"])
	assert.Equal(t, 42, fields["amount"])

	payload, ok := fields["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "spoofed", payload["entityType"])
}

func TestSystemEvent_Fields_NilPayload(t *testing.T) {
	event := New(DocumentCreated, "wt", "doc-2", "created", "", nil)

	fields := event.Fields()

	assert.NotNil(t, fields["payload"])
	assert.Empty(t, fields["payload"])
}
