package models

import "time"

type ConditionOperator string

const (
	OperatorEq       ConditionOperator = "eq"
	OperatorNe       ConditionOperator = "ne"
	OperatorGt       ConditionOperator = "gt"
	OperatorGte      ConditionOperator = "gte"
	OperatorLt       ConditionOperator = "lt"
	OperatorLte      ConditionOperator = "lte"
	OperatorIn       ConditionOperator = "in"
	OperatorContains ConditionOperator = "contains"
)

type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Condition is either a leaf comparison (Field, Operator, Value) or a group
// (LogicalOperator, Conditions). A condition with a LogicalOperator is a group.
type Condition struct {
	Field    string            `json:"field,omitempty"    yaml:"field,omitempty"`
	Operator ConditionOperator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    any               `json:"value,omitempty"    yaml:"value,omitempty"`

	LogicalOperator LogicalOperator `json:"logical_operator,omitempty" yaml:"logical_operator,omitempty"`
	Conditions      []Condition     `json:"conditions,omitempty"       yaml:"conditions,omitempty"`
}

func (c Condition) IsGroup() bool {
	return c.LogicalOperator != ""
}

// All builds an AND group.
func All(conditions ...Condition) Condition {
	return Condition{LogicalOperator: LogicalAnd, Conditions: conditions}
}

// Any builds an OR group.
func Any(conditions ...Condition) Condition {
	return Condition{LogicalOperator: LogicalOr, Conditions: conditions}
}

// Leaf builds a single comparison.
func Leaf(field string, op ConditionOperator, value any) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

// RuleAction is one step of a rule's ordered action list.
type RuleAction struct {
	Type   string         `json:"type"             yaml:"type"             validate:"required"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Rule binds a trigger/entity filter and a condition to an ordered action list.
type Rule struct {
	ID          string       `json:"id"                    yaml:"id,omitempty"`
	Name        string       `json:"name"                  yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Trigger     string       `json:"trigger"               yaml:"trigger"     validate:"required"`
	EntityType  string       `json:"entity_type"           yaml:"entity_type" validate:"required"`
	Condition   *Condition   `json:"condition,omitempty"   yaml:"condition,omitempty"`
	Actions     []RuleAction `json:"actions"               yaml:"actions"     validate:"dive"`
	StopOnMatch bool         `json:"stop_on_match"         yaml:"stop_on_match"`
	Active      bool         `json:"active"                yaml:"active"`
	CreatedBy   string       `json:"created_by,omitempty"  yaml:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"            yaml:"-"`
	UpdatedAt   time.Time    `json:"updated_at"            yaml:"-"`
}

// Matches reports whether the rule's trigger and entity filters accept the event.
func (r *Rule) Matches(eventType, entityType string) bool {
	return matchesFilter(r.Trigger, eventType) && matchesFilter(r.EntityType, entityType)
}

func matchesFilter(filter, value string) bool {
	return filter == "*" || filter == value
}
