package conditions

import (
	"errors"
	"fmt"
)

var ErrMalformedCondition = errors.New("malformed condition")

// EvaluationError reports a condition tree that could not be evaluated.
// Path locates the offending node, e.g. "conditions[1].conditions[0]".
type EvaluationError struct {
	Path   string
	Reason string
}

func (e *EvaluationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("condition evaluation failed: %s", e.Reason)
	}

	return fmt.Sprintf("condition evaluation failed at %s: %s", e.Path, e.Reason)
}

func (e *EvaluationError) Unwrap() error {
	return ErrMalformedCondition
}

func IsEvaluationError(err error) bool {
	var evalErr *EvaluationError

	return errors.As(err, &evalErr)
}

func malformed(path, format string, args ...any) *EvaluationError {
	return &EvaluationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
