// Package models defines the domain records of the document workflow engine.
package models

import "time"

// DocumentType tags one of the business-entity kinds with a status lifecycle.
type DocumentType string

const (
	DocumentTypeGoodsReceipt      DocumentType = "mrrv"
	DocumentTypeMaterialIssue     DocumentType = "mirv"
	DocumentTypeMaterialReturn    DocumentType = "mrv"
	DocumentTypeInspection        DocumentType = "rfim"
	DocumentTypeDiscrepancy       DocumentType = "osd"
	DocumentTypeJobOrder          DocumentType = "jo"
	DocumentTypeGatePass          DocumentType = "gate_pass"
	DocumentTypeRequisition       DocumentType = "mr"
	DocumentTypeWarehouseTransfer DocumentType = "wt"
	DocumentTypeMaterialShifting  DocumentType = "imsf"
	DocumentTypeShipment          DocumentType = "shipment"
	DocumentTypeCustoms           DocumentType = "customs"
	DocumentTypeScrap             DocumentType = "scrap"
	DocumentTypeSurplus           DocumentType = "surplus"
)

// Document is an instance of a business entity. Its status only changes through
// the lifecycle orchestrator.
type Document struct {
	ID          string         `json:"id"`
	Type        DocumentType   `json:"type"         validate:"required"`
	Status      string         `json:"status"`
	WarehouseID string         `json:"warehouse_id,omitempty"`
	ProjectID   string         `json:"project_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// AuditEntry is an immutable record of a state change performed by a user.
type AuditEntry struct {
	ID           string         `json:"id"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Action       string         `json:"action"`
	ActorID      string         `json:"actor_id,omitempty"`
	StatusBefore string         `json:"status_before,omitempty"`
	StatusAfter  string         `json:"status_after,omitempty"`
	Comment      string         `json:"comment,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
