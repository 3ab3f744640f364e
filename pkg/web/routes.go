package web

import "github.com/gofiber/fiber/v3"

// Register mounts the API routes on router.
func Register(router fiber.Router, h *APIHandlers) {
	router.Get("/health", h.HealthCheck)

	d := router.Group("/documents")
	d.Post("/", h.CreateDocument)
	d.Get("/:type/:id", h.GetDocument)
	d.Get("/:type/:id/history", h.GetDocumentHistory)
	d.Post("/:type/:id/transitions", h.TransitionDocument)
	d.Post("/:type/:id/approvals", h.CreateApprovalGroup)
	d.Get("/:type/:id/approvals", h.GetDocumentApprovals)

	router.Get("/document-types/:type/transitions", h.GetTransitionTable)

	router.Get("/approvals/:id", h.GetApprovalGroup)
	router.Post("/approvals/:id/responses", h.RespondToApproval)
	router.Get("/approvers/:id/pending", h.GetPendingApprovals)

	r := router.Group("/rules")
	r.Get("/", h.GetRules)
	r.Post("/", h.CreateRule)
	r.Get("/:id", h.GetRule)
	r.Put("/:id", h.UpdateRule)
	r.Delete("/:id", h.DeleteRule)

	router.Get("/executions", h.GetExecutionLogs)
	router.Post("/events", h.PublishEvent)
}
