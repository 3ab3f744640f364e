package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
)

const ruleColumns = `
	id
  , name
  , description
  , trigger_event
  , entity_type
  , condition_tree
  , actions
  , stop_on_match
  , active
  , created_by
  , created_at
  , updated_at
`

// RuleRepository handles rule rows.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

func (r *RuleRepository) ActiveRules(ctx context.Context) ([]*models.Rule, error) {
	return r.query(ctx, `SELECT `+ruleColumns+` FROM rules WHERE active ORDER BY created_at, id`)
}

func (r *RuleRepository) List(ctx context.Context) ([]*models.Rule, error) {
	return r.query(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY created_at, id`)
}

func (r *RuleRepository) Get(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := scanRule(r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewEntityError("Get", "rule", id, persistence.ErrRuleNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return rule, nil
}

// Save inserts or replaces a rule. created_at keeps its first value.
func (r *RuleRepository) Save(ctx context.Context, rule *models.Rule) error {
	condition, err := jsonb(rule.Condition)
	if err != nil {
		return err
	}

	actions, err := jsonb(rule.Actions)
	if err != nil {
		return err
	}

	if actions == nil {
		actions = []byte("[]")
	}

	query := `
		INSERT INTO rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , trigger_event = EXCLUDED.trigger_event
		  , entity_type = EXCLUDED.entity_type
		  , condition_tree = EXCLUDED.condition_tree
		  , actions = EXCLUDED.actions
		  , stop_on_match = EXCLUDED.stop_on_match
		  , active = EXCLUDED.active
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.Trigger,
		rule.EntityType,
		condition,
		actions,
		rule.StopOnMatch,
		rule.Active,
		nullString(rule.CreatedBy),
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Delete", "rule", id, persistence.ErrRuleNotFound)
	}

	return nil
}

func (r *RuleRepository) query(ctx context.Context, query string, args ...any) ([]*models.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer closeRows(rows, r.logger)

	rules := make([]*models.Rule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func scanRule(row scanner) (*models.Rule, error) {
	var (
		rule      models.Rule
		condition []byte
		actions   []byte
		createdBy sql.NullString
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.Trigger,
		&rule.EntityType,
		&condition,
		&actions,
		&rule.StopOnMatch,
		&rule.Active,
		&createdBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.CreatedBy = createdBy.String

	if len(condition) > 0 {
		rule.Condition = &models.Condition{}

		err = fromJSONB(condition, rule.Condition)
		if err != nil {
			return nil, err
		}
	}

	err = fromJSONB(actions, &rule.Actions)
	if err != nil {
		return nil, err
	}

	return &rule, nil
}
