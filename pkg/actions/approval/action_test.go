package approval

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/supplyflow/pkg/approvals"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/log"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	requests []approvals.CreateRequest
}

func (f *fakeCreator) Create(_ context.Context, req approvals.CreateRequest) (*models.ApprovalGroup, error) {
	f.requests = append(f.requests, req)

	return &models.ApprovalGroup{ID: "g-1", Level: req.Level}, nil
}

func TestAction_Execute(t *testing.T) {
	fake := &fakeCreator{}

	action, err := NewActionFactory(fake).Create(t.Context(), map[string]any{
		"level":        2.0,
		"mode":         "any",
		"approver_ids": []any{"u1", "u2"},
		"due_in":       "24h",
	})
	require.NoError(t, err)

	event := events.New(events.DocumentStatusChanged, "mrrv", "doc-1", "status_changed", "clerk", nil)
	require.NoError(t, action.Execute(t.Context(), event, log.Discard()))

	require.Len(t, fake.requests, 1)

	req := fake.requests[0]
	assert.Equal(t, models.DocumentTypeGoodsReceipt, req.DocumentType)
	assert.Equal(t, "doc-1", req.DocumentID)
	assert.Equal(t, 2, req.Level)
	assert.Equal(t, models.ApprovalModeAny, req.Mode)
	assert.Equal(t, []string{"u1", "u2"}, req.ApproverIDs)
	assert.Equal(t, "clerk", req.RequestedBy)
	require.NotNil(t, req.DueAt)
	assert.True(t, req.DueAt.Equal(event.Timestamp.Add(24*time.Hour)))
}

func TestActionFactory_Defaults(t *testing.T) {
	action, err := NewActionFactory(&fakeCreator{}).Create(t.Context(), map[string]any{"approver_ids": []any{"u1"}})
	require.NoError(t, err)

	a, ok := action.(*Action)
	require.True(t, ok)
	assert.Equal(t, 1, a.level)
	assert.Equal(t, models.ApprovalModeAll, a.mode)
	assert.Zero(t, a.dueIn)

	_, err = NewActionFactory(&fakeCreator{}).Create(t.Context(), map[string]any{"approver_ids": []any{"u1"}, "due_in": "tomorrow"})
	assert.Error(t, err)
}
