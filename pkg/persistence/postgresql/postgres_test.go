package postgresql_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/log"
	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/dukex/supplyflow/pkg/persistence/postgresql"
	"github.com/dukex/supplyflow/pkg/persistence/sqlbase"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = testcontainers.TerminateContainer(postgresContainer)
	}

	os.Exit(code)
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"approval_groups", "execution_logs", "audit_entries", "rules", "documents", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("supplyflow_test"),
			postgres.WithUsername("supplyflow"),
			postgres.WithPassword("supplyflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	p, err := postgresql.NewPersistence(ctx, log.Discard(), databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"documents", "rules", "approval_groups", "audit_entries", "execution_logs"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_ConcurrentStartupsMigrateOnce(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	var wg sync.WaitGroup

	errs := make(chan error, 3)

	for range 3 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			p, err := postgresql.NewPersistence(ctx, log.Discard(), databaseURL)
			if err == nil {
				err = p.Close(ctx)
			}

			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	manager := sqlbase.NewMigrationManager(log.Discard(), db, map[int]string{1: "", 2: ""})

	current, err := manager.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, manager.LatestVersion(), current)

	var applied int

	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestDocumentRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.DocumentRepository()

	at := now()
	doc := &models.Document{
		ID:          "doc-1",
		Type:        models.DocumentTypeGoodsReceipt,
		Status:      "draft",
		WarehouseID: "wh-1",
		Data:        map[string]any{"totalValue": 1250.5},
		CreatedBy:   "user-1",
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	require.NoError(t, repo.Create(ctx, doc))
	assert.ErrorIs(t, repo.Create(ctx, doc), persistence.ErrDocumentAlreadyExists)

	got, err := repo.Get(ctx, models.DocumentTypeGoodsReceipt, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Status)
	assert.Equal(t, "wh-1", got.WarehouseID)
	assert.Equal(t, 1250.5, got.Data["totalValue"])
	assert.True(t, got.CreatedAt.Equal(at))

	updated, err := repo.UpdateStatus(ctx, models.DocumentTypeGoodsReceipt, "doc-1", "draft", "pending_approval", at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "pending_approval", updated.Status)

	_, err = repo.UpdateStatus(ctx, models.DocumentTypeGoodsReceipt, "doc-1", "draft", "cancelled", at)
	assert.ErrorIs(t, err, persistence.ErrStatusConflict)

	_, err = repo.UpdateStatus(ctx, models.DocumentTypeGoodsReceipt, "missing", "draft", "cancelled", at)
	assert.ErrorIs(t, err, persistence.ErrDocumentNotFound)

	_, err = repo.Get(ctx, models.DocumentTypeMaterialIssue, "doc-1")
	assert.True(t, persistence.IsNotFound(err))
}

func TestDocumentRepository_ConcurrentStatusUpdateHasOneWinner(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.DocumentRepository()

	at := now()
	require.NoError(t, repo.Create(ctx, &models.Document{
		ID: "doc-2", Type: models.DocumentTypeJobOrder, Status: "draft", CreatedAt: at, UpdatedAt: at,
	}))

	var (
		wg        sync.WaitGroup
		winners   atomic.Int32
		conflicts atomic.Int32
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.UpdateStatus(ctx, models.DocumentTypeJobOrder, "doc-2", "draft", "pending_approval", now())
			if err == nil {
				winners.Add(1)
			} else if persistence.IsConflict(err) {
				conflicts.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(7), conflicts.Load())
}

func TestRuleRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	first := now()
	cond := models.All(models.Leaf("totalValue", models.OperatorGt, 1000.0))
	older := &models.Rule{
		ID: "rule-a", Name: "Older", Trigger: "document:status_changed", EntityType: "mrrv",
		Condition: &cond,
		Actions:   []models.RuleAction{{Type: "log", Params: map[string]any{"message": "hi"}}},
		Active:    true, CreatedAt: first, UpdatedAt: first,
	}
	newer := &models.Rule{
		ID: "rule-b", Name: "Newer", Trigger: "*", EntityType: "*",
		Actions: []models.RuleAction{{Type: "log"}}, StopOnMatch: true,
		Active: true, CreatedAt: first.Add(time.Second), UpdatedAt: first.Add(time.Second),
	}
	inactive := &models.Rule{
		ID: "rule-c", Name: "Off", Trigger: "*", EntityType: "*",
		Actions: []models.RuleAction{{Type: "log"}},
		Active:  false, CreatedAt: first.Add(2 * time.Second), UpdatedAt: first,
	}

	for _, rule := range []*models.Rule{newer, inactive, older} {
		require.NoError(t, repo.Save(ctx, rule))
	}

	active, err := repo.ActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "rule-a", active[0].ID)
	assert.Equal(t, "rule-b", active[1].ID)
	require.NotNil(t, active[0].Condition)
	assert.Equal(t, models.LogicalAnd, active[0].Condition.LogicalOperator)
	assert.Nil(t, active[1].Condition)
	assert.True(t, active[1].StopOnMatch)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	older.Name = "Renamed"
	older.CreatedAt = first.Add(time.Hour)
	require.NoError(t, repo.Save(ctx, older))

	got, err := repo.Get(ctx, "rule-a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.CreatedAt.Equal(first), "upsert keeps the original creation time")

	require.NoError(t, repo.Delete(ctx, "rule-a"))
	assert.ErrorIs(t, repo.Delete(ctx, "rule-a"), persistence.ErrRuleNotFound)

	_, err = repo.Get(ctx, "rule-a")
	assert.ErrorIs(t, err, persistence.ErrRuleNotFound)
}

func newGroup(docID string, level int, approvers ...string) *models.ApprovalGroup {
	at := now()

	return &models.ApprovalGroup{
		ID:           uuid.NewString(),
		DocumentType: models.DocumentTypeGoodsReceipt,
		DocumentID:   docID,
		Level:        level,
		Mode:         models.ApprovalModeAll,
		ApproverIDs:  approvers,
		Status:       models.ApprovalStatusPending,
		Version:      1,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func TestApprovalRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ApprovalRepository()

	second := newGroup("doc-1", 2, "u3")
	first := newGroup("doc-1", 1, "u1", "u2")
	other := newGroup("doc-9", 1, "u1")

	for _, g := range []*models.ApprovalGroup{second, first, other} {
		require.NoError(t, repo.Create(ctx, g))
	}

	groups, err := repo.ListByDocument(ctx, models.DocumentTypeGoodsReceipt, "doc-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].Level)
	assert.Equal(t, 2, groups[1].Level)
	assert.Empty(t, groups[0].Responses)

	pending, err := repo.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stale := first.Clone()

	first.Responses = append(first.Responses, models.ApprovalResponse{
		ApproverID: "u1", Decision: models.DecisionApproved, RespondedAt: now(),
	})
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	stale.Status = models.ApprovalStatusRejected
	err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, got.Status)
	require.Len(t, got.Responses, 1)
	assert.Equal(t, "u1", got.Responses[0].ApproverID)
	assert.Equal(t, 2, got.Version)

	missing := newGroup("doc-1", 3, "u9")
	assert.ErrorIs(t, repo.Update(ctx, missing), persistence.ErrApprovalGroupNotFound)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrApprovalGroupNotFound)
}

func TestApprovalRepository_ListOverdue(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ApprovalRepository()

	past := now().Add(-time.Hour)
	future := now().Add(time.Hour)

	overdue := newGroup("doc-1", 1, "u1")
	overdue.DueAt = &past

	notDue := newGroup("doc-2", 1, "u1")
	notDue.DueAt = &future

	breached := newGroup("doc-3", 1, "u1")
	breached.DueAt = &past
	breached.SLABreachedAt = &past

	noDeadline := newGroup("doc-4", 1, "u1")

	for _, g := range []*models.ApprovalGroup{overdue, notDue, breached, noDeadline} {
		require.NoError(t, repo.Create(ctx, g))
	}

	groups, err := repo.ListOverdue(ctx, now())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, overdue.ID, groups[0].ID)
	require.NotNil(t, groups[0].DueAt)
	assert.True(t, groups[0].DueAt.Equal(past))
}

func TestAuditRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.AuditRepository()

	at := now()
	for i, to := range []string{"pending_approval", "approved"} {
		require.NoError(t, repo.Record(ctx, &models.AuditEntry{
			ID:          uuid.NewString(),
			EntityType:  "mrrv",
			EntityID:    "doc-1",
			Action:      "status_changed",
			ActorID:     "user-1",
			StatusAfter: to,
			Metadata:    map[string]any{"step": float64(i)},
			CreatedAt:   at.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := repo.ListByEntity(ctx, "mrrv", "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "pending_approval", entries[0].StatusAfter)
	assert.Equal(t, "approved", entries[1].StatusAfter)
	assert.Empty(t, entries[0].StatusBefore)
	assert.Equal(t, 1.0, entries[1].Metadata["step"])

	entries, err = repo.ListByEntity(ctx, "mrrv", "doc-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecutionLogRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ExecutionLogRepository()

	event := events.New(events.DocumentStatusChanged, "mrrv", "doc-1", "status_changed", "user-1", map[string]any{"status": "approved"})
	at := now()

	for i, ruleID := range []string{"rule-a", "rule-b", "rule-a"} {
		errText := ""
		if i == 1 {
			errText = "boom"
		}

		require.NoError(t, repo.Record(ctx, &models.ExecutionLog{
			ID:         uuid.NewString(),
			RuleID:     ruleID,
			RuleName:   ruleID,
			EventID:    event.ID,
			EventType:  string(event.Type),
			EntityType: event.EntityType,
			EntityID:   event.EntityID,
			Matched:    true,
			Success:    i != 1,
			Error:      errText,
			Event:      event,
			ActionsRun: []models.ActionResult{{Type: "log", Status: models.ActionStatusSuccess, DurationMs: 1}},
			DurationMs: int64(i),
			CreatedAt:  at.Add(time.Duration(i) * time.Second),
		}))
	}

	logs, err := repo.List(ctx, models.ExecutionLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, int64(2), logs[0].DurationMs, "newest first")
	assert.Equal(t, event.ID, logs[0].Event.ID)
	require.Len(t, logs[0].ActionsRun, 1)
	assert.Equal(t, "log", logs[0].ActionsRun[0].Type)

	logs, err = repo.List(ctx, models.ExecutionLogFilter{RuleID: "rule-b"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Equal(t, "boom", logs[0].Error)

	logs, err = repo.List(ctx, models.ExecutionLogFilter{EntityID: "doc-1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = repo.List(ctx, models.ExecutionLogFilter{RuleID: "rule-a", EntityID: "doc-2"})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
