package approvals

import "github.com/dukex/supplyflow/pkg/models"

// decide computes the group status from its responses.
//
// all: approved once every approver approved, rejected on the first rejection.
// any: approved on the first approval, rejected once every approver rejected.
func decide(group *models.ApprovalGroup) models.ApprovalStatus {
	var approved, rejected int

	for _, r := range group.Responses {
		switch r.Decision {
		case models.DecisionApproved:
			approved++
		case models.DecisionRejected:
			rejected++
		}
	}

	total := len(group.ApproverIDs)

	switch group.Mode {
	case models.ApprovalModeAll:
		if rejected > 0 {
			return models.ApprovalStatusRejected
		}

		if approved >= total {
			return models.ApprovalStatusApproved
		}
	case models.ApprovalModeAny:
		if approved > 0 {
			return models.ApprovalStatusApproved
		}

		if rejected >= total {
			return models.ApprovalStatusRejected
		}
	}

	return models.ApprovalStatusPending
}

// overall folds the latest group of every level into one document status:
// none without groups, rejected if any level is rejected, pending while any
// level waits, approved otherwise.
func overall(groups []*models.ApprovalGroup) OverallStatus {
	if len(groups) == 0 {
		return OverallNone
	}

	latest := make(map[int]*models.ApprovalGroup)
	for _, g := range groups {
		latest[g.Level] = g
	}

	status := OverallApproved

	for _, g := range latest {
		switch g.Status {
		case models.ApprovalStatusRejected:
			return OverallRejected
		case models.ApprovalStatusPending:
			status = OverallPending
		}
	}

	return status
}
