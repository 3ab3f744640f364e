package transitions

import (
	"errors"
	"fmt"

	"github.com/dukex/supplyflow/pkg/models"
)

var (
	// ErrUnknownDocumentType indicates no transition table exists for a document type.
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrInvalidTable indicates a transition table breaks a structural invariant.
	ErrInvalidTable = errors.New("invalid transition table")
)

// InvalidTransitionError reports a status change that the document type's table does not declare.
type InvalidTransitionError struct {
	DocumentType models.DocumentType
	From         string
	To           string
	Err          error
}

func (e *InvalidTransitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid transition for %s from %q to %q: %v", e.DocumentType, e.From, e.To, e.Err)
	}

	return fmt.Sprintf("invalid transition for %s from %q to %q", e.DocumentType, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return e.Err
}

// IsInvalidTransition checks if an error is, or wraps, an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError

	return errors.As(err, &target)
}
