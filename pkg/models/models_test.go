package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRule_Matches(t *testing.T) {
	tests := []struct {
		name       string
		trigger    string
		entityType string
		eventType  string
		entity     string
		want       bool
	}{
		{"exact", "document:created", "mrrv", "document:created", "mrrv", true},
		{"other event", "document:created", "mrrv", "document:status_changed", "mrrv", false},
		{"other entity", "document:created", "mrrv", "document:created", "mirv", false},
		{"wildcard trigger", "*", "mrrv", "approval:approved", "mrrv", true},
		{"wildcard entity", "document:created", "*", "document:created", "osd", true},
		{"both wildcards", "*", "*", "inventory:adjusted", "item", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &Rule{Trigger: tt.trigger, EntityType: tt.entityType}
			assert.Equal(t, tt.want, rule.Matches(tt.eventType, tt.entity))
		})
	}
}

func TestCondition_Builders(t *testing.T) {
	tree := All(
		Leaf("payload.newStatus", OperatorEq, "submitted"),
		Any(Leaf("data.qty", OperatorGt, 10), Leaf("data.urgent", OperatorEq, true)),
	)

	assert.True(t, tree.IsGroup())
	assert.Equal(t, LogicalAnd, tree.LogicalOperator)
	assert.False(t, tree.Conditions[0].IsGroup())
	assert.Equal(t, LogicalOr, tree.Conditions[1].LogicalOperator)
}

func TestRule_YAMLAndJSONShapes(t *testing.T) {
	raw := `
name: big receipts
trigger: document:created
entity_type: mrrv
active: true
condition:
  logical_operator: AND
  conditions:
    - field: data.qty
      operator: gte
      value: 100
actions:
  - type: notify
    params:
      channel: realtime
`

	var rule Rule
	require.NoError(t, yaml.Unmarshal([]byte(raw), &rule))

	require.NotNil(t, rule.Condition)
	assert.Equal(t, LogicalAnd, rule.Condition.LogicalOperator)
	assert.Equal(t, OperatorGte, rule.Condition.Conditions[0].Operator)
	assert.Equal(t, "notify", rule.Actions[0].Type)

	out, err := json.Marshal(rule)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"entity_type":"mrrv"`)
	assert.Contains(t, string(out), `"logical_operator":"AND"`)
}

func TestApprovalGroup(t *testing.T) {
	due := time.Now()
	group := &ApprovalGroup{
		ApproverIDs: []string{"a", "b"},
		Responses:   []ApprovalResponse{{ApproverID: "a", Decision: DecisionApproved}},
		DueAt:       &due,
	}

	assert.True(t, group.IsEligible("b"))
	assert.False(t, group.IsEligible("c"))
	assert.True(t, group.HasResponded("a"))
	assert.False(t, group.HasResponded("b"))

	clone := group.Clone()
	clone.ApproverIDs[0] = "z"
	clone.Responses = append(clone.Responses, ApprovalResponse{ApproverID: "b"})

	assert.Equal(t, "a", group.ApproverIDs[0])
	assert.Len(t, group.Responses, 1)
}

func TestApprovalEnums(t *testing.T) {
	assert.True(t, ApprovalModeAll.Valid())
	assert.True(t, ApprovalModeAny.Valid())
	assert.False(t, ApprovalMode("majority").Valid())

	assert.True(t, DecisionRejected.Valid())
	assert.False(t, Decision("maybe").Valid())

	assert.False(t, ApprovalStatusPending.Terminal())
	assert.True(t, ApprovalStatusApproved.Terminal())
	assert.True(t, ApprovalStatusRejected.Terminal())
}
