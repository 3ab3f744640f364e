package approvals

import (
	"errors"

	"github.com/dukex/supplyflow/pkg/persistence"
)

var (
	// Validation errors.
	ErrInvalidRequest = errors.New("invalid approval request")
	ErrNotEligible    = errors.New("approver is not eligible for this group")

	// ErrInvalidState means the document cannot take new approvals, e.g. it is terminal.
	ErrInvalidState = errors.New("document state does not allow approvals")

	// Conflicts.
	ErrAlreadyResponded   = errors.New("approver already responded")
	ErrGroupFinalized     = errors.New("approval group is already finalized")
	ErrPendingGroupExists = errors.New("a pending approval group already exists for this level")
)

// IsConflict reports errors that map to a conflict with the current group state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyResponded) ||
		errors.Is(err, ErrGroupFinalized) ||
		errors.Is(err, ErrPendingGroupExists) ||
		errors.Is(err, persistence.ErrVersionConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
