package file

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
)

// ApprovalRepository keeps one file per approval group under approvals/<id>.json.
type ApprovalRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewApprovalRepository(root string) *ApprovalRepository {
	return &ApprovalRepository{dir: filepath.Join(root, "approvals")}
}

func (r *ApprovalRepository) Create(_ context.Context, group *models.ApprovalGroup) error {
	if err := validateID(group.ID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(filepath.Join(r.dir, group.ID+".json"), group)
}

func (r *ApprovalRepository) Get(_ context.Context, id string) (*models.ApprovalGroup, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(id)
}

func (r *ApprovalRepository) Update(_ context.Context, group *models.ApprovalGroup) error {
	if err := validateID(group.ID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.read(group.ID)
	if err != nil {
		return err
	}

	if stored.Version != group.Version {
		return persistence.NewEntityError("Update", "approval group", group.ID, persistence.ErrVersionConflict)
	}

	next := group.Clone()
	next.Version++

	err = writeJSON(filepath.Join(r.dir, group.ID+".json"), next)
	if err != nil {
		return err
	}

	group.Version = next.Version

	return nil
}

func (r *ApprovalRepository) ListByDocument(
	_ context.Context,
	docType models.DocumentType,
	docID string,
) ([]*models.ApprovalGroup, error) {
	return r.filter(func(g *models.ApprovalGroup) bool {
		return g.DocumentType == docType && g.DocumentID == docID
	}, func(a, b *models.ApprovalGroup) bool {
		if a.Level != b.Level {
			return a.Level < b.Level
		}

		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (r *ApprovalRepository) ListPending(_ context.Context, approverID string) ([]*models.ApprovalGroup, error) {
	return r.filter(func(g *models.ApprovalGroup) bool {
		return g.Status == models.ApprovalStatusPending && g.IsEligible(approverID)
	}, byCreation)
}

func (r *ApprovalRepository) ListOverdue(_ context.Context, now time.Time) ([]*models.ApprovalGroup, error) {
	return r.filter(func(g *models.ApprovalGroup) bool {
		return g.Status == models.ApprovalStatusPending &&
			g.DueAt != nil && !g.DueAt.After(now) &&
			g.SLABreachedAt == nil
	}, byCreation)
}

func (r *ApprovalRepository) filter(
	keep func(*models.ApprovalGroup) bool,
	less func(a, b *models.ApprovalGroup) bool,
) ([]*models.ApprovalGroup, error) {
	r.mu.RLock()
	groups, err := readAll[models.ApprovalGroup](r.dir)
	r.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	out := make([]*models.ApprovalGroup, 0, len(groups))

	for _, g := range groups {
		if keep(g) {
			out = append(out, g)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })

	return out, nil
}

func (r *ApprovalRepository) read(id string) (*models.ApprovalGroup, error) {
	var group models.ApprovalGroup

	err := readJSON(filepath.Join(r.dir, id+".json"), &group)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewEntityError("Get", "approval group", id, persistence.ErrApprovalGroupNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &group, nil
}

func byCreation(a, b *models.ApprovalGroup) bool {
	return a.CreatedAt.Before(b.CreatedAt)
}
