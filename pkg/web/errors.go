package web

import (
	"errors"

	"github.com/dukex/supplyflow/pkg/approvals"
	"github.com/dukex/supplyflow/pkg/lifecycle"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/dukex/supplyflow/pkg/services"
	"github.com/dukex/supplyflow/pkg/transitions"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps domain errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	var ruleErr *services.RuleError

	switch {
	case errors.As(err, &ruleErr):
		return problem(c, fiber.StatusBadRequest, ruleErr.ProblemType(), err.Error())

	case errors.Is(err, transitions.ErrUnknownDocumentType):
		return badRequest(c, err.Error())

	case transitions.IsInvalidTransition(err):
		return problem(c, fiber.StatusUnprocessableEntity, "invalid_transition", err.Error())

	case errors.Is(err, approvals.ErrInvalidState):
		return problem(c, fiber.StatusUnprocessableEntity, "invalid_state", err.Error())

	case approvals.IsValidation(err),
		errors.Is(err, lifecycle.ErrInvalidRequest):
		return badRequest(c, err.Error())

	case errors.Is(err, approvals.ErrNotEligible):
		return problem(c, fiber.StatusForbidden, "not_eligible", err.Error())

	case persistence.IsNotFound(err):
		return notFound(c, err.Error())

	case approvals.IsConflict(err), persistence.IsConflict(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	default:
		return internalError(c, err)
	}
}
