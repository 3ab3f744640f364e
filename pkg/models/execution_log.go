package models

import (
	"time"

	"github.com/dukex/supplyflow/pkg/events"
)

type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
)

// ActionResult is the outcome of one dispatched action.
type ActionResult struct {
	Type       string       `json:"type"`
	Status     ActionStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

// ExecutionLog records one rule's evaluation against one event. Write-once.
type ExecutionLog struct {
	ID         string             `json:"id"`
	RuleID     string             `json:"rule_id"`
	RuleName   string             `json:"rule_name,omitempty"`
	EventID    string             `json:"event_id"`
	EventType  string             `json:"event_type"`
	EntityType string             `json:"entity_type"`
	EntityID   string             `json:"entity_id"`
	Matched    bool               `json:"matched"`
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
	Event      events.SystemEvent `json:"event"`
	ActionsRun []ActionResult     `json:"actions_run"`
	DurationMs int64              `json:"duration_ms"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ExecutionLogFilter narrows execution log queries. Empty fields match everything.
type ExecutionLogFilter struct {
	RuleID   string
	EntityID string
	Limit    int
}
