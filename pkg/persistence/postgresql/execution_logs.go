package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/supplyflow/pkg/models"
)

const defaultLogLimit = 100

// ExecutionLogRepository appends rule execution logs.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

func (r *ExecutionLogRepository) Record(ctx context.Context, log *models.ExecutionLog) error {
	event, err := jsonb(log.Event)
	if err != nil {
		return err
	}

	actions, err := jsonb(log.ActionsRun)
	if err != nil {
		return err
	}

	if actions == nil {
		actions = []byte("[]")
	}

	query := `
		INSERT INTO execution_logs (
			id, rule_id, rule_name, event_id, event_type, entity_type, entity_id,
			matched, success, error_message, event, actions_run, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.RuleID,
		nullString(log.RuleName),
		log.EventID,
		log.EventType,
		nullString(log.EntityType),
		nullString(log.EntityID),
		log.Matched,
		log.Success,
		nullString(log.Error),
		event,
		actions,
		log.DurationMs,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	return nil
}

func (r *ExecutionLogRepository) List(ctx context.Context, filter models.ExecutionLogFilter) ([]*models.ExecutionLog, error) {
	var (
		where []string
		args  []any
	)

	if filter.RuleID != "" {
		args = append(args, filter.RuleID)
		where = append(where, "rule_id = $"+strconv.Itoa(len(args)))
	}

	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		where = append(where, "entity_id = $"+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	args = append(args, limit)

	query := `
		SELECT id, rule_id, rule_name, event_id, event_type, entity_type, entity_id,
		       matched, success, error_message, event, actions_run, duration_ms, created_at
		FROM execution_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer closeRows(rows, r.logger)

	logs := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			log                                     models.ExecutionLog
			ruleName, entityType, entityID, errText sql.NullString
			event, actions                          []byte
		)

		err := rows.Scan(
			&log.ID,
			&log.RuleID,
			&ruleName,
			&log.EventID,
			&log.EventType,
			&entityType,
			&entityID,
			&log.Matched,
			&log.Success,
			&errText,
			&event,
			&actions,
			&log.DurationMs,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		log.RuleName = ruleName.String
		log.EntityType = entityType.String
		log.EntityID = entityID.String
		log.Error = errText.String

		err = fromJSONB(event, &log.Event)
		if err != nil {
			return nil, err
		}

		err = fromJSONB(actions, &log.ActionsRun)
		if err != nil {
			return nil, err
		}

		logs = append(logs, &log)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return logs, nil
}
