package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/supplyflow/pkg/approvals"
	"github.com/dukex/supplyflow/pkg/eventbus"
	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/lifecycle"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/dukex/supplyflow/pkg/registry"
	"github.com/dukex/supplyflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// maxExecutionLogLimit caps the limit query parameter of GET /executions.
const maxExecutionLogLimit = 500

type APIHandlers struct {
	orchestrator *lifecycle.Orchestrator
	approvals    *approvals.Manager
	rules        *services.Rules
	persistence  persistence.Persistence
	publisher    eventbus.Publisher
	registry     *registry.Registry
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator *lifecycle.Orchestrator,
	approvals *approvals.Manager,
	rules *services.Rules,
	persistence persistence.Persistence,
	publisher eventbus.Publisher,
	registry *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		approvals:    approvals,
		rules:        rules,
		persistence:  persistence,
		publisher:    publisher,
		registry:     registry,
		validator:    validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	repository := "Persistence layer is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		repository = "Persistence layer is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repository,
			"actions":    h.registry.ActionTypes(),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateDocument(c fiber.Ctx) error {
	var req CreateDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc := &models.Document{
		ID:          req.ID,
		Type:        models.DocumentType(req.Type),
		WarehouseID: req.WarehouseID,
		ProjectID:   req.ProjectID,
		Data:        req.Data,
		CreatedBy:   req.ActorID,
	}

	created, err := h.orchestrator.Create(c.Context(), doc, req.ActorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetDocument(c fiber.Ctx) error {
	doc, err := h.orchestrator.Get(c.Context(), models.DocumentType(c.Params("type")), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) GetDocumentHistory(c fiber.Ctx) error {
	docType := models.DocumentType(c.Params("type"))
	id := c.Params("id")

	if _, err := h.orchestrator.Get(c.Context(), docType, id); err != nil {
		return handleServiceError(c, err)
	}

	entries, err := h.orchestrator.History(c.Context(), docType, id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(entries)
}

func (h *APIHandlers) TransitionDocument(c fiber.Ctx) error {
	var req TransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.orchestrator.Transition(c.Context(), lifecycle.Request{
		DocumentType: models.DocumentType(c.Params("type")),
		DocumentID:   c.Params("id"),
		To:           req.To,
		ActorID:      req.ActorID,
		Comment:      req.Comment,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) GetTransitionTable(c fiber.Ctx) error {
	docType := models.DocumentType(c.Params("type"))

	table, ok := h.orchestrator.Validator().Table(docType)
	if !ok {
		return notFound(c, "Unknown document type "+string(docType))
	}

	return c.JSON(TransitionTableResponse{
		DocumentType: string(docType),
		Initial:      table.Initial,
		Terminal:     table.Terminals(),
		Transitions:  table.Transitions,
	})
}

func (h *APIHandlers) CreateApprovalGroup(c fiber.Ctx) error {
	var req CreateApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	level := req.Level
	if level == 0 {
		level = 1
	}

	mode := models.ApprovalMode(req.Mode)
	if mode == "" {
		mode = models.ApprovalModeAll
	}

	group, err := h.approvals.Create(c.Context(), approvals.CreateRequest{
		DocumentType: models.DocumentType(c.Params("type")),
		DocumentID:   c.Params("id"),
		Level:        level,
		Mode:         mode,
		ApproverIDs:  req.ApproverIDs,
		RequestedBy:  req.RequestedBy,
		DueAt:        req.DueAt,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

func (h *APIHandlers) GetDocumentApprovals(c fiber.Ctx) error {
	status, err := h.approvals.GroupStatus(c.Context(), models.DocumentType(c.Params("type")), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) GetApprovalGroup(c fiber.Ctx) error {
	group, err := h.approvals.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(group)
}

func (h *APIHandlers) RespondToApproval(c fiber.Ctx) error {
	var req RespondRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	group, err := h.approvals.Respond(c.Context(), approvals.RespondRequest{
		GroupID:    c.Params("id"),
		ApproverID: req.ApproverID,
		Decision:   models.Decision(req.Decision),
		Comment:    req.Comment,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(group)
}

func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	groups, err := h.approvals.PendingForApprover(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(groups)
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	rules, err := h.rules.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(rules)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.rules.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req RuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rule, err := h.rules.Create(c.Context(), req.Rule())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	var req RuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rule, err := h.rules.Update(c.Context(), c.Params("id"), req.Rule())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	if err := h.rules.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	filter := models.ExecutionLogFilter{
		RuleID:   c.Query("rule_id"),
		EntityID: c.Query("entity_id"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxExecutionLogLimit {
			return badRequest(c, "limit must be between 1 and "+strconv.Itoa(maxExecutionLogLimit))
		}

		filter.Limit = limit
	}

	logs, err := h.persistence.ExecutionLogRepository().List(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(logs)
}

func (h *APIHandlers) PublishEvent(c fiber.Ctx) error {
	var req PublishEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := events.New(events.EventType(req.Type), req.EntityType, req.EntityID, req.Action, req.UserID, req.Payload)

	if err := h.publisher.Publish(c.Context(), event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(event)
}
