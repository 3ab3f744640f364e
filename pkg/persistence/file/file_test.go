package file

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.Root())

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.Root())
	assert.Equal(t, filepath.Join("/tmp/test", "rules"), fp.RulesDir())
}

func TestPersistence_HealthCheckAndClose(t *testing.T) {
	fp := NewPersistence(filepath.Join(t.TempDir(), "nested"))

	require.NoError(t, fp.HealthCheck(t.Context()))
	assert.DirExists(t, fp.Root())
	assert.NoError(t, fp.Close(t.Context()))
}

func newDocument(id string) *models.Document {
	now := time.Now().UTC()

	return &models.Document{
		ID:          id,
		Type:        models.DocumentTypeWarehouseTransfer,
		Status:      "draft",
		WarehouseID: "wh-1",
		Data:        map[string]any{"lines": 3.0},
		CreatedBy:   "user-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestDocumentRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).DocumentRepository()
	ctx := t.Context()

	doc := newDocument("doc-1")
	require.NoError(t, repo.Create(ctx, doc))

	err := repo.Create(ctx, doc)
	assert.ErrorIs(t, err, persistence.ErrDocumentAlreadyExists)

	got, err := repo.Get(ctx, models.DocumentTypeWarehouseTransfer, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Status)
	assert.Equal(t, "wh-1", got.WarehouseID)
	assert.Equal(t, 3.0, got.Data["lines"])

	later := time.Now().UTC().Add(time.Minute)
	updated, err := repo.UpdateStatus(ctx, models.DocumentTypeWarehouseTransfer, "doc-1", "draft", "pending_approval", later)
	require.NoError(t, err)
	assert.Equal(t, "pending_approval", updated.Status)
	assert.True(t, updated.UpdatedAt.Equal(later))

	_, err = repo.UpdateStatus(ctx, models.DocumentTypeWarehouseTransfer, "doc-1", "draft", "cancelled", later)
	assert.ErrorIs(t, err, persistence.ErrStatusConflict)

	_, err = repo.Get(ctx, models.DocumentTypeGoodsReceipt, "doc-1")
	assert.True(t, persistence.IsNotFound(err))

	_, err = repo.UpdateStatus(ctx, models.DocumentTypeWarehouseTransfer, "missing", "draft", "cancelled", later)
	assert.ErrorIs(t, err, persistence.ErrDocumentNotFound)
}

func TestDocumentRepository_RejectsPathTraversal(t *testing.T) {
	repo := NewPersistence(t.TempDir()).DocumentRepository()

	_, err := repo.Get(t.Context(), models.DocumentTypeWarehouseTransfer, "../../etc/passwd")
	assert.ErrorIs(t, err, persistence.ErrInvalidID)

	err = repo.Create(t.Context(), newDocument(""))
	assert.ErrorIs(t, err, persistence.ErrInvalidID)
}

func TestDocumentRepository_ConcurrentStatusUpdateHasOneWinner(t *testing.T) {
	repo := NewPersistence(t.TempDir()).DocumentRepository()
	require.NoError(t, repo.Create(t.Context(), newDocument("doc-1")))

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.UpdateStatus(t.Context(), models.DocumentTypeWarehouseTransfer, "doc-1",
				"draft", "pending_approval", time.Now())
			if err == nil {
				successes.Add(1)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), successes.Load())
}

func TestRuleRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).RuleRepository()
	ctx := t.Context()

	base := time.Now().UTC()
	second := &models.Rule{ID: "rule-b", Name: "second", Trigger: "*", EntityType: "*", Active: true, CreatedAt: base.Add(time.Second)}
	first := &models.Rule{ID: "rule-a", Name: "first", Trigger: "*", EntityType: "*", Active: true, CreatedAt: base}
	inactive := &models.Rule{ID: "rule-c", Name: "off", Trigger: "*", EntityType: "*", CreatedAt: base.Add(-time.Second)}

	for _, rule := range []*models.Rule{second, first, inactive} {
		require.NoError(t, repo.Save(ctx, rule))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"rule-c", "rule-a", "rule-b"}, []string{all[0].ID, all[1].ID, all[2].ID})

	active, err := repo.ActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "rule-a", active[0].ID)

	got, err := repo.Get(ctx, "rule-b")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)

	require.NoError(t, repo.Delete(ctx, "rule-b"))
	_, err = repo.Get(ctx, "rule-b")
	assert.ErrorIs(t, err, persistence.ErrRuleNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "rule-b"), persistence.ErrRuleNotFound)
}

func TestRuleRepository_EmptyDirectory(t *testing.T) {
	rules, err := NewPersistence(t.TempDir()).RuleRepository().ActiveRules(t.Context())
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func newGroup(id string, level int, approvers ...string) *models.ApprovalGroup {
	now := time.Now().UTC()

	return &models.ApprovalGroup{
		ID:           id,
		DocumentType: models.DocumentTypeGoodsReceipt,
		DocumentID:   "doc-1",
		Level:        level,
		Mode:         models.ApprovalModeAll,
		ApproverIDs:  approvers,
		Status:       models.ApprovalStatusPending,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestApprovalRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ApprovalRepository()
	ctx := t.Context()

	levelTwo := newGroup("group-2", 2, "u1")
	levelOne := newGroup("group-1", 1, "u1", "u2")

	require.NoError(t, repo.Create(ctx, levelTwo))
	require.NoError(t, repo.Create(ctx, levelOne))

	groups, err := repo.ListByDocument(ctx, models.DocumentTypeGoodsReceipt, "doc-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "group-1", groups[0].ID)

	pending, err := repo.ListPending(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "group-1", pending[0].ID)

	stale, err := repo.Get(ctx, "group-1")
	require.NoError(t, err)

	fresh, err := repo.Get(ctx, "group-1")
	require.NoError(t, err)

	fresh.Status = models.ApprovalStatusApproved
	require.NoError(t, repo.Update(ctx, fresh))
	assert.Equal(t, 2, fresh.Version)

	stale.Status = models.ApprovalStatusRejected
	assert.ErrorIs(t, repo.Update(ctx, stale), persistence.ErrVersionConflict)

	stored, err := repo.Get(ctx, "group-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, stored.Status)
	assert.Equal(t, 2, stored.Version)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrApprovalGroupNotFound)
}

func TestApprovalRepository_ListOverdue(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ApprovalRepository()
	ctx := t.Context()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := newGroup("overdue", 1, "u1")
	overdue.DueAt = &past

	notDue := newGroup("not-due", 1, "u1")
	notDue.DueAt = &future

	breached := newGroup("breached", 1, "u1")
	breached.DueAt = &past
	breached.SLABreachedAt = &now

	done := newGroup("done", 1, "u1")
	done.DueAt = &past
	done.Status = models.ApprovalStatusApproved

	for _, g := range []*models.ApprovalGroup{overdue, notDue, breached, done, newGroup("no-sla", 1, "u1")} {
		require.NoError(t, repo.Create(ctx, g))
	}

	groups, err := repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "overdue", groups[0].ID)
}

func TestAuditRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).AuditRepository()
	ctx := t.Context()
	now := time.Now().UTC()

	require.NoError(t, repo.Record(ctx, &models.AuditEntry{
		ID: "a2", EntityType: "wt", EntityID: "doc-1", Action: "status_change",
		StatusBefore: "pending_approval", StatusAfter: "approved", CreatedAt: now.Add(time.Second),
	}))
	require.NoError(t, repo.Record(ctx, &models.AuditEntry{
		ID: "a1", EntityType: "wt", EntityID: "doc-1", Action: "status_change",
		StatusBefore: "draft", StatusAfter: "pending_approval", CreatedAt: now,
	}))

	entries, err := repo.ListByEntity(ctx, "wt", "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a1", entries[0].ID)

	entries, err = repo.ListByEntity(ctx, "wt", "doc-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecutionLogRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).ExecutionLogRepository()
	ctx := t.Context()
	now := time.Now().UTC()

	logs := []*models.ExecutionLog{
		{ID: "l1", RuleID: "r1", EntityID: "doc-1", Matched: true, Success: true, CreatedAt: now},
		{ID: "l2", RuleID: "r2", EntityID: "doc-1", CreatedAt: now.Add(time.Second)},
		{ID: "l3", RuleID: "r1", EntityID: "doc-2", Matched: true, CreatedAt: now.Add(2 * time.Second)},
	}
	for _, l := range logs {
		require.NoError(t, repo.Record(ctx, l))
	}

	all, err := repo.List(ctx, models.ExecutionLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "l3", all[0].ID)

	byRule, err := repo.List(ctx, models.ExecutionLogFilter{RuleID: "r1"})
	require.NoError(t, err)
	assert.Len(t, byRule, 2)

	byEntity, err := repo.List(ctx, models.ExecutionLogFilter{EntityID: "doc-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byEntity, 1)
	assert.Equal(t, "l2", byEntity[0].ID)
}
