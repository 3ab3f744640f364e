// Package conditions evaluates rule condition trees against event fields.
//
// A leaf compares the value at a dotted path with a literal. A group combines
// its children with AND or OR and short-circuits. An empty group is true.
package conditions

import (
	"fmt"
	"math"
	"strings"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/models"
)

// Evaluate reports whether event satisfies condition. Malformed trees evaluate to false;
// use Match to tell a mismatch from a malformed tree.
func Evaluate(condition models.Condition, event events.SystemEvent) bool {
	matched, err := Match(condition, event.Fields())
	if err != nil {
		return false
	}

	return matched
}

// Match evaluates condition against a field tree, usually SystemEvent.Fields.
// It returns an *EvaluationError for unknown operators and leaves without a field.
func Match(condition models.Condition, fields map[string]any) (bool, error) {
	return match(condition, fields, "")
}

func match(c models.Condition, fields map[string]any, path string) (bool, error) {
	if c.IsGroup() {
		return matchGroup(c, fields, path)
	}

	if c.Field == "" {
		return false, malformed(path, "leaf condition has no field")
	}

	actual, present := Lookup(fields, c.Field)

	return compare(c.Operator, actual, present, c.Value, path)
}

func matchGroup(c models.Condition, fields map[string]any, path string) (bool, error) {
	var shortCircuit bool

	switch c.LogicalOperator {
	case models.LogicalAnd:
		shortCircuit = false
	case models.LogicalOr:
		shortCircuit = true
	default:
		return false, malformed(path, "unknown logical operator %q", c.LogicalOperator)
	}

	for i, child := range c.Conditions {
		matched, err := match(child, fields, childPath(path, i))
		if err != nil {
			return false, err
		}

		if matched == shortCircuit {
			return shortCircuit, nil
		}
	}

	// AND with no false child, OR with no true child, or an empty group.
	return !shortCircuit || len(c.Conditions) == 0, nil
}

func compare(op models.ConditionOperator, actual any, present bool, expected any, path string) (bool, error) {
	switch op {
	case models.OperatorEq:
		return looseEqual(actual, present, expected), nil
	case models.OperatorNe:
		return !looseEqual(actual, present, expected), nil
	case models.OperatorGt, models.OperatorGte, models.OperatorLt, models.OperatorLte:
		return compareNumbers(op, toNumber(actual, present), toNumber(expected, true)), nil
	case models.OperatorIn:
		members, ok := asSlice(expected)
		if !ok {
			return false, nil
		}

		for _, member := range members {
			if strictEqual(actual, present, member) {
				return true, nil
			}
		}

		return false, nil
	case models.OperatorContains:
		haystack, ok := actual.(string)
		if !ok || !present {
			return false, nil
		}

		needle, ok := expected.(string)
		if !ok {
			return false, nil
		}

		return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle)), nil
	default:
		return false, malformed(path, "unknown operator %q", op)
	}
}

func compareNumbers(op models.ConditionOperator, a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}

	switch op {
	case models.OperatorGt:
		return a > b
	case models.OperatorGte:
		return a >= b
	case models.OperatorLt:
		return a < b
	default:
		return a <= b
	}
}

func childPath(parent string, i int) string {
	if parent == "" {
		return fmt.Sprintf("conditions[%d]", i)
	}

	return fmt.Sprintf("%s.conditions[%d]", parent, i)
}
