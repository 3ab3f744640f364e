package models

import (
	"slices"
	"time"
)

type ApprovalMode string

const (
	// ApprovalModeAll requires every approver to approve; the first rejection finalizes.
	ApprovalModeAll ApprovalMode = "all"
	// ApprovalModeAny accepts the first approval; rejection needs every approver.
	ApprovalModeAny ApprovalMode = "any"
)

func (m ApprovalMode) Valid() bool {
	return m == ApprovalModeAll || m == ApprovalModeAny
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

type ApprovalResponse struct {
	ApproverID  string    `json:"approver_id"`
	Decision    Decision  `json:"decision"`
	Comment     string    `json:"comment,omitempty"`
	RespondedAt time.Time `json:"responded_at"`
}

// ApprovalGroup is a quorum of approvers gating one approval level of a document.
// Version increases on every save and guards concurrent finalization.
type ApprovalGroup struct {
	ID            string             `json:"id"`
	DocumentType  DocumentType       `json:"document_type"`
	DocumentID    string             `json:"document_id"`
	Level         int                `json:"level"`
	Mode          ApprovalMode       `json:"mode"`
	ApproverIDs   []string           `json:"approver_ids"`
	Status        ApprovalStatus     `json:"status"`
	Responses     []ApprovalResponse `json:"responses"`
	RequestedBy   string             `json:"requested_by,omitempty"`
	DueAt         *time.Time         `json:"due_at,omitempty"`
	SLABreachedAt *time.Time         `json:"sla_breached_at,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (g *ApprovalGroup) IsEligible(approverID string) bool {
	return slices.Contains(g.ApproverIDs, approverID)
}

func (g *ApprovalGroup) HasResponded(approverID string) bool {
	return slices.ContainsFunc(g.Responses, func(r ApprovalResponse) bool {
		return r.ApproverID == approverID
	})
}

// Clone returns a deep copy safe to mutate.
func (g *ApprovalGroup) Clone() *ApprovalGroup {
	c := *g
	c.ApproverIDs = slices.Clone(g.ApproverIDs)
	c.Responses = slices.Clone(g.Responses)

	return &c
}
