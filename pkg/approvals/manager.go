// Package approvals manages parallel approval groups. A group finalizes as
// approved or rejected according to its all/any mode, exactly once.
package approvals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukex/supplyflow/internal/keymutex"
	"github.com/dukex/supplyflow/pkg/eventbus"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/dukex/supplyflow/pkg/transitions"
	"github.com/google/uuid"
)

// maxSaveAttempts bounds re-reads after a version conflict with another writer.
const maxSaveAttempts = 3

type OverallStatus string

const (
	OverallNone     OverallStatus = "none"
	OverallPending  OverallStatus = "pending"
	OverallApproved OverallStatus = "approved"
	OverallRejected OverallStatus = "rejected"
)

type CreateRequest struct {
	DocumentType models.DocumentType
	DocumentID   string
	Level        int
	Mode         models.ApprovalMode
	ApproverIDs  []string
	RequestedBy  string
	DueAt        *time.Time
}

type RespondRequest struct {
	GroupID    string
	ApproverID string
	Decision   models.Decision
	Comment    string
}

// DocumentApprovals is the approval projection of one document.
type DocumentApprovals struct {
	DocumentType models.DocumentType     `json:"document_type"`
	DocumentID   string                  `json:"document_id"`
	Status       OverallStatus           `json:"status"`
	Groups       []*models.ApprovalGroup `json:"groups"`
}

type Manager struct {
	documents persistence.DocumentRepository
	groups    persistence.ApprovalRepository
	validator *transitions.Validator
	publisher eventbus.Publisher
	locks     *keymutex.Map
	logger    *slog.Logger
	now       func() time.Time
}

func NewManager(
	p persistence.Persistence,
	validator *transitions.Validator,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		documents: p.DocumentRepository(),
		groups:    p.ApprovalRepository(),
		validator: validator,
		publisher: publisher,
		locks:     keymutex.New(),
		logger:    logger.With("module", "approvals"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a pending group for a document level and publishes approval:requested.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.ApprovalGroup, error) {
	approvers, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	doc, err := m.documents.Get(ctx, req.DocumentType, req.DocumentID)
	if err != nil {
		return nil, err
	}

	if m.validator.IsTerminal(req.DocumentType, doc.Status) {
		return nil, fmt.Errorf("%w: %s %s is %s", ErrInvalidState, req.DocumentType, req.DocumentID, doc.Status)
	}

	unlock := m.locks.Lock("document/" + string(req.DocumentType) + "/" + req.DocumentID)
	defer unlock()

	existing, err := m.groups.ListByDocument(ctx, req.DocumentType, req.DocumentID)
	if err != nil {
		return nil, err
	}

	for _, g := range existing {
		if g.Level == req.Level && g.Status == models.ApprovalStatusPending {
			return nil, fmt.Errorf("%w: level %d group %s", ErrPendingGroupExists, req.Level, g.ID)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate group id: %w", err)
	}

	now := m.now()
	group := &models.ApprovalGroup{
		ID:           id.String(),
		DocumentType: req.DocumentType,
		DocumentID:   req.DocumentID,
		Level:        req.Level,
		Mode:         req.Mode,
		ApproverIDs:  approvers,
		Status:       models.ApprovalStatusPending,
		Responses:    []models.ApprovalResponse{},
		RequestedBy:  req.RequestedBy,
		DueAt:        req.DueAt,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = m.groups.Create(ctx, group)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "approval group created",
		"group_id", group.ID,
		"document_type", group.DocumentType,
		"document_id", group.DocumentID,
		"level", group.Level,
		"mode", group.Mode,
	)

	m.publish(ctx, events.ApprovalRequested, group, req.RequestedBy, nil)

	return group.Clone(), nil
}

// Respond records one approver decision and finalizes the group when its
// mode is satisfied. Concurrent responses are serialized per group in the
// process and guarded by the stored version across processes.
func (m *Manager) Respond(ctx context.Context, req RespondRequest) (*models.ApprovalGroup, error) {
	if req.GroupID == "" || req.ApproverID == "" {
		return nil, fmt.Errorf("%w: group id and approver id are required", ErrInvalidRequest)
	}

	if !req.Decision.Valid() {
		return nil, fmt.Errorf("%w: decision must be approved or rejected, got %q", ErrInvalidRequest, req.Decision)
	}

	unlock := m.locks.Lock("group/" + req.GroupID)
	defer unlock()

	var err error

	for range maxSaveAttempts {
		var group *models.ApprovalGroup

		group, err = m.groups.Get(ctx, req.GroupID)
		if err != nil {
			return nil, err
		}

		err = checkResponder(group, req.ApproverID)
		if err != nil {
			return nil, err
		}

		now := m.now()
		group.Responses = append(group.Responses, models.ApprovalResponse{
			ApproverID:  req.ApproverID,
			Decision:    req.Decision,
			Comment:     req.Comment,
			RespondedAt: now,
		})
		group.Status = decide(group)
		group.UpdatedAt = now

		if group.Status.Terminal() {
			group.CompletedAt = &now
		}

		err = m.groups.Update(ctx, group)
		if errors.Is(err, persistence.ErrVersionConflict) {
			m.logger.DebugContext(ctx, "approval group changed concurrently, re-reading", "group_id", req.GroupID)

			continue
		}

		if err != nil {
			return nil, err
		}

		m.afterRespond(ctx, group, req)

		return group.Clone(), nil
	}

	return nil, err
}

func (m *Manager) afterRespond(ctx context.Context, group *models.ApprovalGroup, req RespondRequest) {
	m.logger.InfoContext(ctx, "approval response recorded",
		"group_id", group.ID,
		"approver_id", req.ApproverID,
		"decision", req.Decision,
		"status", group.Status,
	)

	m.publish(ctx, events.ApprovalResponded, group, req.ApproverID, map[string]any{
		"approverId": req.ApproverID,
		"decision":   string(req.Decision),
		"comment":    req.Comment,
	})

	switch group.Status {
	case models.ApprovalStatusApproved:
		m.publish(ctx, events.ApprovalApproved, group, req.ApproverID, nil)
	case models.ApprovalStatusRejected:
		m.publish(ctx, events.ApprovalRejected, group, req.ApproverID, nil)
	}
}

// Get returns one group.
func (m *Manager) Get(ctx context.Context, groupID string) (*models.ApprovalGroup, error) {
	return m.groups.Get(ctx, groupID)
}

// GroupStatus returns every group of a document and the folded status.
func (m *Manager) GroupStatus(ctx context.Context, docType models.DocumentType, docID string) (*DocumentApprovals, error) {
	_, err := m.documents.Get(ctx, docType, docID)
	if err != nil {
		return nil, err
	}

	groups, err := m.groups.ListByDocument(ctx, docType, docID)
	if err != nil {
		return nil, err
	}

	return &DocumentApprovals{
		DocumentType: docType,
		DocumentID:   docID,
		Status:       overall(groups),
		Groups:       groups,
	}, nil
}

// PendingForApprover returns the pending groups still waiting on approverID.
func (m *Manager) PendingForApprover(ctx context.Context, approverID string) ([]*models.ApprovalGroup, error) {
	groups, err := m.groups.ListPending(ctx, approverID)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(groups, func(g *models.ApprovalGroup) bool {
		return g.HasResponded(approverID)
	}), nil
}

// Overdue returns pending groups past their due time that were not flagged yet.
func (m *Manager) Overdue(ctx context.Context, now time.Time) ([]*models.ApprovalGroup, error) {
	return m.groups.ListOverdue(ctx, now)
}

// MarkOverdue flags a pending overdue group as breached and publishes
// sla:approval_overdue. It reports false when the group was already flagged,
// finalized or not yet due.
func (m *Manager) MarkOverdue(ctx context.Context, groupID string, at time.Time) (bool, error) {
	unlock := m.locks.Lock("group/" + groupID)
	defer unlock()

	var err error

	for range maxSaveAttempts {
		var group *models.ApprovalGroup

		group, err = m.groups.Get(ctx, groupID)
		if err != nil {
			return false, err
		}

		if group.Status != models.ApprovalStatusPending || group.SLABreachedAt != nil ||
			group.DueAt == nil || group.DueAt.After(at) {
			return false, nil
		}

		group.SLABreachedAt = &at
		group.UpdatedAt = at

		err = m.groups.Update(ctx, group)
		if errors.Is(err, persistence.ErrVersionConflict) {
			continue
		}

		if err != nil {
			return false, err
		}

		m.logger.WarnContext(ctx, "approval group overdue", "group_id", group.ID, "due_at", group.DueAt)

		pending := slices.DeleteFunc(slices.Clone(group.ApproverIDs), group.HasResponded)
		m.publish(ctx, events.ApprovalOverdue, group, "", map[string]any{
			"dueAt":            group.DueAt.Format(time.RFC3339),
			"pendingApprovers": pending,
		})

		return true, nil
	}

	return false, err
}

func (m *Manager) publish(ctx context.Context, eventType events.EventType, group *models.ApprovalGroup, userID string, extra map[string]any) {
	payload := map[string]any{
		"groupId":      group.ID,
		"documentType": string(group.DocumentType),
		"documentId":   group.DocumentID,
		"level":        group.Level,
		"mode":         string(group.Mode),
		"status":       string(group.Status),
		"approverIds":  slices.Clone(group.ApproverIDs),
		"requestedBy":  group.RequestedBy,
	}

	for k, v := range extra {
		payload[k] = v
	}

	event := events.New(eventType, string(group.DocumentType), group.DocumentID, actionVerb(eventType), userID, payload)

	err := m.publisher.Publish(ctx, event)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to publish approval event",
			"event_type", eventType,
			"group_id", group.ID,
			"error", err,
		)
	}
}

func actionVerb(eventType events.EventType) string {
	_, verb, found := strings.Cut(string(eventType), ":")
	if !found {
		return string(eventType)
	}

	return verb
}

func validateCreate(req CreateRequest) ([]string, error) {
	if req.DocumentType == "" || req.DocumentID == "" {
		return nil, fmt.Errorf("%w: document type and id are required", ErrInvalidRequest)
	}

	if req.Level < 1 {
		return nil, fmt.Errorf("%w: level must be at least 1", ErrInvalidRequest)
	}

	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: mode must be all or any, got %q", ErrInvalidRequest, req.Mode)
	}

	approvers := make([]string, 0, len(req.ApproverIDs))

	for _, id := range req.ApproverIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: empty approver id", ErrInvalidRequest)
		}

		if !slices.Contains(approvers, id) {
			approvers = append(approvers, id)
		}
	}

	if len(approvers) == 0 {
		return nil, fmt.Errorf("%w: at least one approver is required", ErrInvalidRequest)
	}

	return approvers, nil
}

func checkResponder(group *models.ApprovalGroup, approverID string) error {
	if group.Status.Terminal() {
		return fmt.Errorf("%w: group %s is %s", ErrGroupFinalized, group.ID, group.Status)
	}

	if !group.IsEligible(approverID) {
		return fmt.Errorf("%w: %s", ErrNotEligible, approverID)
	}

	if group.HasResponded(approverID) {
		return fmt.Errorf("%w: %s", ErrAlreadyResponded, approverID)
	}

	return nil
}
