// Package lifecycle coordinates document status changes: validate, persist,
// audit, publish.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/supplyflow/internal/keymutex"
	"github.com/dukex/supplyflow/pkg/eventbus"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/dukex/supplyflow/pkg/transitions"
	"github.com/google/uuid"
)

var ErrInvalidRequest = errors.New("invalid transition request")

const (
	AuditActionCreated       = "created"
	AuditActionStatusChanged = "status_changed"
)

// Request asks for one document status change.
type Request struct {
	DocumentType models.DocumentType
	DocumentID   string
	To           string
	ActorID      string
	Comment      string
}

// Orchestrator is the only writer of document status. Transitions of the same
// document are serialized within the process, so their events reach the bus
// in persist order.
//
// Subscribers that handle events synchronously must not transition the same
// document from inside the handler.
type Orchestrator struct {
	validator *transitions.Validator
	documents persistence.DocumentRepository
	audit     persistence.AuditRepository
	publisher eventbus.Publisher
	locks     *keymutex.Map
	logger    *slog.Logger
	now       func() time.Time
}

func New(
	validator *transitions.Validator,
	p persistence.Persistence,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		validator: validator,
		documents: p.DocumentRepository(),
		audit:     p.AuditRepository(),
		publisher: publisher,
		locks:     keymutex.New(),
		logger:    logger.With("module", "lifecycle"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (o *Orchestrator) Validator() *transitions.Validator {
	return o.validator
}

// Get returns a document.
func (o *Orchestrator) Get(ctx context.Context, docType models.DocumentType, id string) (*models.Document, error) {
	return o.documents.Get(ctx, docType, id)
}

// Create stores doc at its type's initial status and publishes document:created.
// An empty ID is replaced by a generated one.
func (o *Orchestrator) Create(ctx context.Context, doc *models.Document, actorID string) (*models.Document, error) {
	initial, err := o.validator.InitialStatus(doc.Type)
	if err != nil {
		return nil, err
	}

	if doc.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate document id: %w", err)
		}

		doc.ID = id.String()
	}

	now := o.now()
	doc.Status = initial
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if doc.CreatedBy == "" {
		doc.CreatedBy = actorID
	}

	unlock := o.locks.Lock(lockKey(doc.Type, doc.ID))
	defer unlock()

	err = o.documents.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	o.recordAudit(ctx, &models.AuditEntry{
		EntityType:  string(doc.Type),
		EntityID:    doc.ID,
		Action:      AuditActionCreated,
		ActorID:     actorID,
		StatusAfter: initial,
	})

	o.publish(ctx, events.New(events.DocumentCreated, string(doc.Type), doc.ID, AuditActionCreated, actorID,
		documentPayload(doc, map[string]any{"status": initial})))

	return doc, nil
}

// Transition validates and persists req, then audits and publishes
// document:status_changed. Nothing is published when persisting fails.
// Audit and publish failures are logged and do not undo the transition.
func (o *Orchestrator) Transition(ctx context.Context, req Request) (*models.Document, error) {
	if req.DocumentType == "" || req.DocumentID == "" || req.To == "" {
		return nil, fmt.Errorf("%w: document type, document id and target status are required", ErrInvalidRequest)
	}

	logger := o.logger.With("document_type", req.DocumentType, "document_id", req.DocumentID)

	unlock := o.locks.Lock(lockKey(req.DocumentType, req.DocumentID))
	defer unlock()

	doc, err := o.documents.Get(ctx, req.DocumentType, req.DocumentID)
	if err != nil {
		return nil, err
	}

	from := doc.Status

	err = o.validator.AssertTransition(req.DocumentType, from, req.To)
	if err != nil {
		return nil, err
	}

	updated, err := o.documents.UpdateStatus(ctx, req.DocumentType, req.DocumentID, from, req.To, o.now())
	if err != nil {
		return nil, fmt.Errorf("failed to persist transition: %w", err)
	}

	logger.InfoContext(ctx, "document transitioned", "from", from, "to", req.To, "actor_id", req.ActorID)

	o.recordAudit(ctx, &models.AuditEntry{
		EntityType:   string(req.DocumentType),
		EntityID:     req.DocumentID,
		Action:       AuditActionStatusChanged,
		ActorID:      req.ActorID,
		StatusBefore: from,
		StatusAfter:  req.To,
		Comment:      req.Comment,
	})

	o.publish(ctx, events.New(events.DocumentStatusChanged, string(req.DocumentType), req.DocumentID,
		AuditActionStatusChanged, req.ActorID, documentPayload(updated, map[string]any{
			"status":    req.To,
			"oldStatus": from,
			"newStatus": req.To,
			"comment":   req.Comment,
		})))

	return updated, nil
}

// History returns the document's audit trail, oldest first.
func (o *Orchestrator) History(ctx context.Context, docType models.DocumentType, id string) ([]*models.AuditEntry, error) {
	return o.audit.ListByEntity(ctx, string(docType), id)
}

func (o *Orchestrator) recordAudit(ctx context.Context, entry *models.AuditEntry) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = o.now()

	err := o.audit.Record(ctx, entry)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to write audit entry",
			"document_type", entry.EntityType,
			"document_id", entry.EntityID,
			"action", entry.Action,
			"error", err,
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, event events.SystemEvent) {
	err := o.publisher.Publish(ctx, event)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to publish event",
			"event_id", event.ID,
			"event_type", event.Type,
			"document_id", event.EntityID,
			"error", err,
		)
	}
}

func documentPayload(doc *models.Document, extra map[string]any) map[string]any {
	payload := map[string]any{
		"documentType": string(doc.Type),
		"warehouseId":  doc.WarehouseID,
		"projectId":    doc.ProjectID,
		"createdBy":    doc.CreatedBy,
		"data":         maps.Clone(doc.Data),
	}

	maps.Copy(payload, extra)

	return payload
}

func lockKey(docType models.DocumentType, id string) string {
	return string(docType) + "/" + id
}
