// Package persistence defines the storage contracts of the workflow engine.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
)

type Persistence interface {
	DocumentRepository() DocumentRepository
	RuleRepository() RuleRepository
	ApprovalRepository() ApprovalRepository
	AuditRepository() AuditRepository
	ExecutionLogRepository() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type DocumentRepository interface {
	// Create stores a new document. ErrDocumentAlreadyExists if the type/id pair is taken.
	Create(ctx context.Context, doc *models.Document) error

	// Get returns ErrDocumentNotFound when the document does not exist.
	Get(ctx context.Context, docType models.DocumentType, id string) (*models.Document, error)

	// UpdateStatus moves a document from one status to another only if it is
	// still in from. ErrStatusConflict when another writer got there first.
	UpdateStatus(ctx context.Context, docType models.DocumentType, id, from, to string, at time.Time) (*models.Document, error)
}

type RuleRepository interface {
	// ActiveRules returns active rules ordered by creation time, oldest first.
	ActiveRules(ctx context.Context) ([]*models.Rule, error)
	List(ctx context.Context) ([]*models.Rule, error)
	Get(ctx context.Context, id string) (*models.Rule, error)
	Save(ctx context.Context, rule *models.Rule) error
	Delete(ctx context.Context, id string) error
}

type ApprovalRepository interface {
	Create(ctx context.Context, group *models.ApprovalGroup) error
	Get(ctx context.Context, id string) (*models.ApprovalGroup, error)

	// Update stores group if the stored version still equals group.Version and
	// then increments group.Version. ErrVersionConflict otherwise.
	Update(ctx context.Context, group *models.ApprovalGroup) error

	// ListByDocument returns the document's groups ordered by level then creation time.
	ListByDocument(ctx context.Context, docType models.DocumentType, docID string) ([]*models.ApprovalGroup, error)

	// ListPending returns pending groups where approverID is eligible.
	ListPending(ctx context.Context, approverID string) ([]*models.ApprovalGroup, error)

	// ListOverdue returns pending groups due at or before now with no recorded SLA breach.
	ListOverdue(ctx context.Context, now time.Time) ([]*models.ApprovalGroup, error)
}

type AuditRepository interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error)
}

type ExecutionLogRepository interface {
	Record(ctx context.Context, log *models.ExecutionLog) error

	// List returns logs newest first.
	List(ctx context.Context, filter models.ExecutionLogFilter) ([]*models.ExecutionLog, error)
}
