package transitions

import "github.com/dukex/supplyflow/pkg/models"

const initialStatus = "draft"

// builtinTables holds the lifecycle of every supported document type.
var builtinTables = map[models.DocumentType]Table{
	models.DocumentTypeGoodsReceipt: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":         {"submitted", "cancelled"},
			"submitted":     {"qc_inspection", "approved", "rejected"},
			"qc_inspection": {"approved", "rejected"},
			"approved":      {"received"},
			"received":      {"stored"},
			"rejected":      {"draft"},
			"stored":        {},
			"cancelled":     {},
		},
	},
	models.DocumentTypeMaterialIssue: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":            {"pending_approval", "cancelled"},
			"pending_approval": {"approved", "rejected"},
			"approved":         {"issued", "cancelled"},
			"issued":           {"completed"},
			"rejected":         {"draft"},
			"completed":        {},
			"cancelled":        {},
		},
	},
	models.DocumentTypeMaterialReturn: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":     {"submitted", "cancelled"},
			"submitted": {"received", "rejected"},
			"received":  {"completed"},
			"rejected":  {"draft"},
			"completed": {},
			"cancelled": {},
		},
	},
	models.DocumentTypeInspection: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":       {"requested", "cancelled"},
			"requested":   {"in_progress", "cancelled"},
			"in_progress": {"passed", "failed", "conditional"},
			"conditional": {"passed", "failed"},
			"passed":      {},
			"failed":      {},
			"cancelled":   {},
		},
	},
	models.DocumentTypeDiscrepancy: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":        {"reported"},
			"reported":     {"under_review"},
			"under_review": {"claim_raised", "resolved"},
			"claim_raised": {"resolved"},
			"resolved":     {"closed"},
			"closed":       {},
		},
	},
	models.DocumentTypeJobOrder: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":            {"pending_approval", "cancelled"},
			"pending_approval": {"approved", "rejected"},
			"approved":         {"assigned", "cancelled"},
			"assigned":         {"in_progress"},
			"in_progress":      {"on_hold", "completed"},
			"on_hold":          {"in_progress", "cancelled"},
			"completed":        {"closed"},
			"rejected":         {"draft"},
			"closed":           {},
			"cancelled":        {},
		},
	},
	models.DocumentTypeGatePass: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":            {"pending_approval", "cancelled"},
			"pending_approval": {"approved", "rejected"},
			"approved":         {"released", "cancelled"},
			"released":         {"returned", "closed"},
			"returned":         {"closed"},
			"closed":           {},
			"rejected":         {},
			"cancelled":        {},
		},
	},
	models.DocumentTypeRequisition: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":               {"submitted", "cancelled"},
			"submitted":           {"approved", "rejected"},
			"approved":            {"partially_fulfilled", "fulfilled"},
			"partially_fulfilled": {"fulfilled", "closed"},
			"fulfilled":           {"closed"},
			"rejected":            {"draft"},
			"closed":              {},
			"cancelled":           {},
		},
	},
	models.DocumentTypeWarehouseTransfer: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":            {"pending_approval", "cancelled"},
			"pending_approval": {"approved", "rejected"},
			"approved":         {"in_transit", "cancelled"},
			"in_transit":       {"received"},
			"received":         {"completed"},
			"rejected":         {"draft"},
			"completed":        {},
			"cancelled":        {},
		},
	},
	models.DocumentTypeMaterialShifting: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":            {"pending_approval", "cancelled"},
			"pending_approval": {"approved", "rejected"},
			"approved":         {"shifted"},
			"shifted":          {"completed"},
			"completed":        {},
			"rejected":         {},
			"cancelled":        {},
		},
	},
	models.DocumentTypeShipment: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":           {"booked", "cancelled"},
			"booked":          {"in_transit", "cancelled"},
			"in_transit":      {"arrived"},
			"arrived":         {"customs_cleared", "delivered"},
			"customs_cleared": {"delivered"},
			"delivered":       {"closed"},
			"closed":          {},
			"cancelled":       {},
		},
	},
	models.DocumentTypeCustoms: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":        {"submitted"},
			"submitted":    {"under_review"},
			"under_review": {"cleared", "held"},
			"held":         {"under_review", "rejected"},
			"cleared":      {},
			"rejected":     {},
		},
	},
	models.DocumentTypeScrap: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":            {"pending_approval", "cancelled"},
			"pending_approval": {"approved", "rejected"},
			"approved":         {"disposed"},
			"disposed":         {},
			"rejected":         {},
			"cancelled":        {},
		},
	},
	models.DocumentTypeSurplus: {
		Initial: initialStatus,
		Transitions: map[string][]string{
			"draft":            {"pending_approval", "cancelled"},
			"pending_approval": {"approved", "rejected"},
			"approved":         {"listed"},
			"listed":           {"sold", "transferred", "scrapped"},
			"sold":             {},
			"transferred":      {},
			"scrapped":         {},
			"rejected":         {},
			"cancelled":        {},
		},
	},
}
