package file

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/dukex/supplyflow/pkg/models"
)

const defaultLogLimit = 100

// ExecutionLogRepository keeps one file per execution log under execution_logs/<id>.json.
type ExecutionLogRepository struct {
	dir string
}

func NewExecutionLogRepository(root string) *ExecutionLogRepository {
	return &ExecutionLogRepository{dir: filepath.Join(root, "execution_logs")}
}

func (r *ExecutionLogRepository) Record(_ context.Context, log *models.ExecutionLog) error {
	if err := validateID(log.ID); err != nil {
		return err
	}

	return writeJSON(filepath.Join(r.dir, log.ID+".json"), log)
}

func (r *ExecutionLogRepository) List(_ context.Context, filter models.ExecutionLogFilter) ([]*models.ExecutionLog, error) {
	logs, err := readAll[models.ExecutionLog](r.dir)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ExecutionLog, 0, len(logs))

	for _, log := range logs {
		if filter.RuleID != "" && log.RuleID != filter.RuleID {
			continue
		}

		if filter.EntityID != "" && log.EntityID != filter.EntityID {
			continue
		}

		out = append(out, log)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}

		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}
