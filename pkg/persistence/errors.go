package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence errors that all implementations use.
var (
	ErrDocumentNotFound      = errors.New("document not found")
	ErrDocumentAlreadyExists = errors.New("document already exists")
	ErrRuleNotFound          = errors.New("rule not found")
	ErrApprovalGroupNotFound = errors.New("approval group not found")

	// ErrStatusConflict indicates the document left the expected status before the update.
	ErrStatusConflict = errors.New("document status changed concurrently")

	// ErrVersionConflict indicates an optimistic version check failed.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidID indicates an identifier that cannot be stored safely.
	ErrInvalidID = errors.New("invalid identifier")
)

// EntityError wraps a storage error with the operation and entity it concerns.
type EntityError struct {
	Op     string // e.g. "Get", "UpdateStatus"
	Entity string // e.g. "document wt"
	ID     string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewEntityError(op, entity, id string, err error) *EntityError {
	return &EntityError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsNotFound reports whether err means a document, rule or approval group does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrApprovalGroupNotFound)
}

// IsConflict reports whether err is a concurrent-modification or duplicate error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrStatusConflict) ||
		errors.Is(err, ErrDocumentAlreadyExists)
}
