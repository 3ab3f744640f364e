package conditions

import (
	"math"

	"github.com/dukex/supplyflow/pkg/models"
)

// MaxDepth bounds how deeply groups may nest in a saved rule.
const MaxDepth = 8

// Validate checks a condition tree before it is stored. It is stricter than
// Match: nested empty groups are rejected, "in" needs a list and "contains" a string.
// An empty root group is allowed and means "always".
func Validate(condition models.Condition) error {
	return validate(condition, "", 1)
}

func validate(c models.Condition, path string, depth int) error {
	if depth > MaxDepth {
		return malformed(path, "nesting deeper than %d levels", MaxDepth)
	}

	if c.IsGroup() {
		if c.LogicalOperator != models.LogicalAnd && c.LogicalOperator != models.LogicalOr {
			return malformed(path, "unknown logical operator %q", c.LogicalOperator)
		}

		if c.Field != "" || c.Operator != "" {
			return malformed(path, "group must not set field or operator")
		}

		if len(c.Conditions) == 0 && depth > 1 {
			return malformed(path, "nested group has no conditions")
		}

		for i, child := range c.Conditions {
			err := validate(child, childPath(path, i), depth+1)
			if err != nil {
				return err
			}
		}

		return nil
	}

	if len(c.Conditions) > 0 {
		return malformed(path, "conditions set without a logical operator")
	}

	if c.Field == "" {
		return malformed(path, "leaf condition has no field")
	}

	switch c.Operator {
	case models.OperatorEq, models.OperatorNe:
		return nil
	case models.OperatorGt, models.OperatorGte, models.OperatorLt, models.OperatorLte:
		if !isNumber(c.Value) {
			if s, ok := c.Value.(string); !ok || math.IsNaN(toNumber(s, true)) {
				return malformed(path, "operator %s needs a numeric value", c.Operator)
			}
		}

		return nil
	case models.OperatorIn:
		if _, ok := asSlice(c.Value); !ok {
			return malformed(path, "operator in needs a list value")
		}

		return nil
	case models.OperatorContains:
		if _, ok := c.Value.(string); !ok {
			return malformed(path, "operator contains needs a string value")
		}

		return nil
	default:
		return malformed(path, "unknown operator %q", c.Operator)
	}
}
