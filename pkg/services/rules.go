package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dukex/supplyflow/pkg/conditions"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrRuleNotFound is returned when a rule is not found.
var ErrRuleNotFound = persistence.ErrRuleNotFound

// ActionCatalog reports which action types rules may reference.
type ActionCatalog interface {
	HasAction(actionType string) bool
}

// Invalidator drops cached rules after a write.
type Invalidator interface {
	Invalidate()
}

type Rules struct {
	repo      persistence.RuleRepository
	catalog   ActionCatalog
	cache     Invalidator
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewRules creates the rule service. cache may be nil.
func NewRules(repo persistence.RuleRepository, catalog ActionCatalog, cache Invalidator, logger *slog.Logger) *Rules {
	return &Rules{
		repo:      repo,
		catalog:   catalog,
		cache:     cache,
		validator: validator.New(),
		logger:    logger.With("module", "rules_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Rules) List(ctx context.Context) ([]*models.Rule, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return rules, nil
}

func (s *Rules) Get(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// Create validates and stores a new rule. An empty id gets a fresh one.
func (s *Rules) Create(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	if err := s.Validate(rule); err != nil {
		return nil, err
	}

	created := *rule
	if created.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate rule id: %w", err)
		}

		created.ID = id.String()
	}

	now := s.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := s.repo.Save(ctx, &created); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.invalidate()
	s.logger.InfoContext(ctx, "rule created", "rule_id", created.ID, "trigger", created.Trigger, "entity_type", created.EntityType)

	return &created, nil
}

// Update replaces an existing rule. Id, creation time and author are kept.
func (s *Rules) Update(ctx context.Context, id string, rule *models.Rule) (*models.Rule, error) {
	if err := s.Validate(rule); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	updated := *rule
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.CreatedBy = existing.CreatedBy
	updated.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.invalidate()
	s.logger.InfoContext(ctx, "rule updated", "rule_id", id)

	return &updated, nil
}

func (s *Rules) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	s.invalidate()
	s.logger.InfoContext(ctx, "rule deleted", "rule_id", id)

	return nil
}

// Validate checks a rule before it is stored. Rules that fail here would
// otherwise only show up as failed execution logs.
func (s *Rules) Validate(rule *models.Rule) error {
	if rule == nil {
		return &RuleError{Code: "RULE_NIL", Err: ErrRuleNil}
	}

	rule.Trigger = strings.TrimSpace(rule.Trigger)
	rule.EntityType = strings.TrimSpace(rule.EntityType)

	if err := s.validator.Struct(rule); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return newRuleError("INVALID_FIELD",
				fmt.Sprintf("field %s failed on %s", verrs[0].Namespace(), verrs[0].Tag()))
		}

		return newRuleError("INVALID_RULE", err.Error())
	}

	if rule.Condition != nil {
		if err := conditions.Validate(*rule.Condition); err != nil {
			return newRuleError("INVALID_CONDITION", err.Error())
		}
	}

	for i, action := range rule.Actions {
		if !s.catalog.HasAction(action.Type) {
			return newRuleError("UNKNOWN_ACTION",
				fmt.Sprintf("actions[%d]: action type %q is not registered", i, action.Type))
		}
	}

	return nil
}

type ruleFile struct {
	Rules []*models.Rule `yaml:"rules"`
}

// SeedFromFile loads rules from a YAML file with a top-level "rules" list.
// Rules with an id that already exists are updated, the rest created. The
// whole file is validated before anything is written.
func (s *Rules) SeedFromFile(ctx context.Context, path string) (int, error) {
	rules, err := LoadRulesFile(path)
	if err != nil {
		return 0, err
	}

	for i, rule := range rules {
		if err := s.Validate(rule); err != nil {
			return 0, fmt.Errorf("rule %d (%s): %w", i, rule.Name, err)
		}
	}

	for _, rule := range rules {
		if rule.ID != "" {
			_, err = s.repo.Get(ctx, rule.ID)

			switch {
			case err == nil:
				_, err = s.Update(ctx, rule.ID, rule)
			case persistence.IsNotFound(err):
				_, err = s.Create(ctx, rule)
			}
		} else {
			_, err = s.Create(ctx, rule)
		}

		if err != nil {
			return 0, fmt.Errorf("failed to seed rule %s: %w", rule.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "rules seeded", "path", path, "count", len(rules))

	return len(rules), nil
}

// LoadRulesFile parses a YAML rules file without validating it.
func LoadRulesFile(path string) ([]*models.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	return file.Rules, nil
}

func (s *Rules) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}
