package file

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/dukex/supplyflow/pkg/models"
)

// AuditRepository appends entries under audit/<entity type>/<entity id>/<entry id>.json.
type AuditRepository struct {
	dir string
}

func NewAuditRepository(root string) *AuditRepository {
	return &AuditRepository{dir: filepath.Join(root, "audit")}
}

func (r *AuditRepository) Record(_ context.Context, entry *models.AuditEntry) error {
	for _, part := range []string{entry.EntityType, entry.EntityID, entry.ID} {
		if err := validateID(part); err != nil {
			return err
		}
	}

	return writeJSON(filepath.Join(r.dir, entry.EntityType, entry.EntityID, entry.ID+".json"), entry)
}

// ListByEntity returns the entity's entries, oldest first.
func (r *AuditRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	for _, part := range []string{entityType, entityID} {
		if err := validateID(part); err != nil {
			return nil, err
		}
	}

	entries, err := readAll[models.AuditEntry](filepath.Join(r.dir, entityType, entityID))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}
