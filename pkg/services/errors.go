// Package services holds the rule configuration service and its errors.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidRule is wrapped by every RuleError.
	ErrInvalidRule = errors.New("invalid rule")

	ErrRuleNil = errors.New("rule cannot be nil")
)

// RuleError is a rule refused at save time. Code is a stable identifier
// such as UNKNOWN_ACTION that the API reports as the problem type.
type RuleError struct {
	Code   string
	Detail string
	Err    error
}

func (e *RuleError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}

	return e.Err.Error() + ": " + e.Detail
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// ProblemType is Code in the lower snake case used for problem types.
func (e *RuleError) ProblemType() string {
	return strings.ToLower(e.Code)
}

func newRuleError(code, detail string) *RuleError {
	return &RuleError{Code: code, Detail: detail, Err: ErrInvalidRule}
}

// IsValidationError reports whether err means the rule itself is unacceptable.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRule) || errors.Is(err, ErrRuleNil)
}
