// Package approval provides the action that opens an approval group for a document.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/supplyflow/pkg/approvals"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/protocol"
)

type Creator interface {
	Create(ctx context.Context, req approvals.CreateRequest) (*models.ApprovalGroup, error)
}

// ActionFactory creates request_approval actions.
type ActionFactory struct {
	creator Creator
}

func NewActionFactory(creator Creator) *ActionFactory {
	return &ActionFactory{creator: creator}
}

func (*ActionFactory) ID() string {
	return "request_approval"
}

func (*ActionFactory) Name() string {
	return "Request Approval"
}

func (*ActionFactory) Description() string {
	return "Opens a parallel approval group (all or any) on the event's document."
}

func (f *ActionFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	action := &Action{creator: f.creator, mode: models.ApprovalModeAll, level: 1}

	if mode, ok := params["mode"].(string); ok && mode != "" {
		action.mode = models.ApprovalMode(mode)
	}

	switch level := params["level"].(type) {
	case int:
		action.level = level
	case float64:
		action.level = int(level)
	}

	switch ids := params["approver_ids"].(type) {
	case []string:
		action.approvers = append(action.approvers, ids...)
	case []any:
		for _, id := range ids {
			s, ok := id.(string)
			if ok {
				action.approvers = append(action.approvers, s)
			}
		}
	}

	if dueIn, ok := params["due_in"].(string); ok && dueIn != "" {
		d, err := time.ParseDuration(dueIn)
		if err != nil {
			return nil, fmt.Errorf("invalid due_in: %w", err)
		}

		action.dueIn = d
	}

	return action, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": 1,
			},
			"mode": map[string]any{
				"type":    "string",
				"enum":    []string{"all", "any"},
				"default": "all",
			},
			"approver_ids": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
			"due_in": map[string]any{
				"type":        "string",
				"description": "Approval deadline relative to the event, as a Go duration",
				"examples":    []string{"24h", "90m"},
			},
		},
		"required":             []string{"approver_ids"},
		"additionalProperties": false,
	}
}

type Action struct {
	creator   Creator
	level     int
	mode      models.ApprovalMode
	approvers []string
	dueIn     time.Duration
}

func (a *Action) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	req := approvals.CreateRequest{
		DocumentType: models.DocumentType(event.EntityType),
		DocumentID:   event.EntityID,
		Level:        a.level,
		Mode:         a.mode,
		ApproverIDs:  a.approvers,
		RequestedBy:  event.UserID,
	}

	if a.dueIn > 0 {
		due := event.Timestamp.Add(a.dueIn).UTC()
		req.DueAt = &due
	}

	group, err := a.creator.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to request approval: %w", err)
	}

	logger.InfoContext(ctx, "approval requested by rule", "group_id", group.ID, "level", group.Level)

	return nil
}
