// Package transition provides the action that requests a document status change.
package transition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/lifecycle"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/protocol"
)

// SystemActor is recorded as the actor of rule driven transitions.
const SystemActor = "system:rules"

type Transitioner interface {
	Transition(ctx context.Context, req lifecycle.Request) (*models.Document, error)
}

// ActionFactory creates actions that re-enter the lifecycle orchestrator.
type ActionFactory struct {
	transitioner Transitioner
}

func NewActionFactory(transitioner Transitioner) *ActionFactory {
	return &ActionFactory{transitioner: transitioner}
}

func (*ActionFactory) ID() string {
	return "transition"
}

func (*ActionFactory) Name() string {
	return "Transition"
}

func (*ActionFactory) Description() string {
	return "Moves a document to another status through the lifecycle orchestrator. Defaults to the event's document."
}

func (f *ActionFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	to, _ := params["to"].(string)
	docType, _ := params["document_type"].(string)
	docID, _ := params["document_id"].(string)
	comment, _ := params["comment"].(string)

	return &Action{
		transitioner: f.transitioner,
		to:           to,
		docType:      models.DocumentType(docType),
		docID:        docID,
		comment:      comment,
	}, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Target status",
				"minLength":   1,
				"examples":    []string{"approved", "rejected"},
			},
			"document_type": map[string]any{
				"type":        "string",
				"description": "Document type. Defaults to the event entity type.",
			},
			"document_id": map[string]any{
				"type":        "string",
				"description": "Document id. Defaults to the event entity id.",
			},
			"comment": map[string]any{
				"type": "string",
			},
		},
		"required":             []string{"to"},
		"additionalProperties": false,
	}
}

type Action struct {
	transitioner Transitioner
	to           string
	docType      models.DocumentType
	docID        string
	comment      string
}

func (a *Action) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	req := lifecycle.Request{
		DocumentType: a.docType,
		DocumentID:   a.docID,
		To:           a.to,
		ActorID:      SystemActor,
		Comment:      a.comment,
	}

	if req.DocumentType == "" {
		req.DocumentType = models.DocumentType(event.EntityType)
	}

	if req.DocumentID == "" {
		req.DocumentID = event.EntityID
	}

	doc, err := a.transitioner.Transition(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to transition %s %s to %s: %w", req.DocumentType, req.DocumentID, req.To, err)
	}

	logger.InfoContext(ctx, "document transitioned by rule", "document_id", doc.ID, "status", doc.Status)

	return nil
}
