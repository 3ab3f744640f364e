package rules

import "fmt"

// LoggingError is a failed execution log write. The engine logs it and
// never returns it.
type LoggingError struct {
	RuleID  string
	EventID string
	Err     error
}

func (e *LoggingError) Error() string {
	return fmt.Sprintf("failed to record execution log for rule %s, event %s: %v", e.RuleID, e.EventID, e.Err)
}

func (e *LoggingError) Unwrap() error {
	return e.Err
}
