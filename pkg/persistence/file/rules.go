package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
)

// RuleRepository keeps one file per rule under rules/<id>.json.
type RuleRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewRuleRepository(root string) *RuleRepository {
	return &RuleRepository{dir: filepath.Join(root, "rules")}
}

func (r *RuleRepository) ActiveRules(ctx context.Context) ([]*models.Rule, error) {
	rules, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Rule, 0, len(rules))

	for _, rule := range rules {
		if rule.Active {
			active = append(active, rule)
		}
	}

	return active, nil
}

// List returns every rule, oldest first.
func (r *RuleRepository) List(_ context.Context) ([]*models.Rule, error) {
	r.mu.RLock()
	rules, err := readAll[models.Rule](r.dir)
	r.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].ID < rules[j].ID
		}

		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

func (r *RuleRepository) Get(_ context.Context, id string) (*models.Rule, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var rule models.Rule

	err := readJSON(filepath.Join(r.dir, id+".json"), &rule)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewEntityError("Get", "rule", id, persistence.ErrRuleNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &rule, nil
}

func (r *RuleRepository) Save(_ context.Context, rule *models.Rule) error {
	if err := validateID(rule.ID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(filepath.Join(r.dir, rule.ID+".json"), rule)
}

func (r *RuleRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(filepath.Join(r.dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewEntityError("Delete", "rule", id, persistence.ErrRuleNotFound)
	}

	return err
}
