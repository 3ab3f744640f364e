// Package web provides the REST API of the workflow engine.
package web

import (
	"time"

	"github.com/dukex/supplyflow/pkg/models"
)

type CreateDocumentRequest struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"         validate:"required"`
	WarehouseID string         `json:"warehouse_id"`
	ProjectID   string         `json:"project_id"`
	Data        map[string]any `json:"data"`
	ActorID     string         `json:"actor_id"`
}

type TransitionRequest struct {
	To      string `json:"to"       validate:"required"`
	ActorID string `json:"actor_id"`
	Comment string `json:"comment"`
}

// CreateApprovalRequest defaults to level 1 in mode "all".
type CreateApprovalRequest struct {
	Level       int        `json:"level"        validate:"min=0"`
	Mode        string     `json:"mode"         validate:"omitempty,oneof=all any"`
	ApproverIDs []string   `json:"approver_ids" validate:"required,min=1,dive,required"`
	RequestedBy string     `json:"requested_by"`
	DueAt       *time.Time `json:"due_at"`
}

type RespondRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	Decision   string `json:"decision"    validate:"required,oneof=approved rejected"`
	Comment    string `json:"comment"`
}

// RuleRequest is the writable part of a rule. Active defaults to true.
type RuleRequest struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"          validate:"required"`
	Description string              `json:"description"`
	Trigger     string              `json:"trigger"       validate:"required"`
	EntityType  string              `json:"entity_type"   validate:"required"`
	Condition   *models.Condition   `json:"condition"`
	Actions     []models.RuleAction `json:"actions"       validate:"dive"`
	StopOnMatch bool                `json:"stop_on_match"`
	Active      *bool               `json:"active"`
	CreatedBy   string              `json:"created_by"`
}

func (r RuleRequest) Rule() *models.Rule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return &models.Rule{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		EntityType:  r.EntityType,
		Condition:   r.Condition,
		Actions:     r.Actions,
		StopOnMatch: r.StopOnMatch,
		Active:      active,
		CreatedBy:   r.CreatedBy,
	}
}

// PublishEventRequest lets collaborators outside the engine, such as the
// inventory service, feed events to the rules.
type PublishEventRequest struct {
	Type       string         `json:"type"        validate:"required"`
	EntityType string         `json:"entity_type" validate:"required"`
	EntityID   string         `json:"entity_id"   validate:"required"`
	Action     string         `json:"action"`
	UserID     string         `json:"user_id"`
	Payload    map[string]any `json:"payload"`
}

type TransitionTableResponse struct {
	DocumentType string              `json:"document_type"`
	Initial      string              `json:"initial"`
	Terminal     []string            `json:"terminal"`
	Transitions  map[string][]string `json:"transitions"`
}
