package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
)

const approvalColumns = `
	id
  , document_type
  , document_id
  , level
  , mode
  , approver_ids
  , status
  , responses
  , requested_by
  , due_at
  , sla_breached_at
  , completed_at
  , version
  , created_at
  , updated_at
`

// ApprovalRepository handles approval group rows. Updates are conditional on
// the version column.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

func (r *ApprovalRepository) Create(ctx context.Context, group *models.ApprovalGroup) error {
	approvers, responses, err := encodeGroup(group)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_groups (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		group.ID,
		group.DocumentType,
		group.DocumentID,
		group.Level,
		group.Mode,
		approvers,
		group.Status,
		responses,
		nullString(group.RequestedBy),
		group.DueAt,
		group.SLABreachedAt,
		group.CompletedAt,
		group.Version,
		group.CreatedAt,
		group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert approval group: %w", err)
	}

	return nil
}

func (r *ApprovalRepository) Get(ctx context.Context, id string) (*models.ApprovalGroup, error) {
	group, err := scanGroup(r.db.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approval_groups WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewEntityError("Get", "approval group", id, persistence.ErrApprovalGroupNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan approval group: %w", err)
	}

	return group, nil
}

func (r *ApprovalRepository) Update(ctx context.Context, group *models.ApprovalGroup) error {
	_, responses, err := encodeGroup(group)
	if err != nil {
		return err
	}

	query := `
		UPDATE approval_groups
		SET status = $3
		  , responses = $4
		  , due_at = $5
		  , sla_breached_at = $6
		  , completed_at = $7
		  , updated_at = $8
		  , version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		group.ID,
		group.Version,
		group.Status,
		responses,
		group.DueAt,
		group.SLABreachedAt,
		group.CompletedAt,
		group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval group: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		_, getErr := r.Get(ctx, group.ID)
		if getErr != nil {
			return getErr
		}

		return persistence.NewEntityError("Update", "approval group", group.ID, persistence.ErrVersionConflict)
	}

	group.Version++

	return nil
}

func (r *ApprovalRepository) ListByDocument(
	ctx context.Context,
	docType models.DocumentType,
	docID string,
) ([]*models.ApprovalGroup, error) {
	return r.query(ctx,
		`SELECT `+approvalColumns+` FROM approval_groups
		 WHERE document_type = $1 AND document_id = $2
		 ORDER BY level, created_at`,
		docType, docID)
}

func (r *ApprovalRepository) ListPending(ctx context.Context, approverID string) ([]*models.ApprovalGroup, error) {
	return r.query(ctx,
		`SELECT `+approvalColumns+` FROM approval_groups
		 WHERE status = 'pending' AND approver_ids ? $1
		 ORDER BY created_at`,
		approverID)
}

func (r *ApprovalRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.ApprovalGroup, error) {
	return r.query(ctx,
		`SELECT `+approvalColumns+` FROM approval_groups
		 WHERE status = 'pending' AND due_at IS NOT NULL AND due_at <= $1 AND sla_breached_at IS NULL
		 ORDER BY created_at`,
		now)
}

func (r *ApprovalRepository) query(ctx context.Context, query string, args ...any) ([]*models.ApprovalGroup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval groups: %w", err)
	}

	defer closeRows(rows, r.logger)

	groups := make([]*models.ApprovalGroup, 0)

	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval group: %w", err)
		}

		groups = append(groups, group)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approval groups: %w", err)
	}

	return groups, nil
}

func encodeGroup(group *models.ApprovalGroup) ([]byte, []byte, error) {
	approvers, err := jsonb(group.ApproverIDs)
	if err != nil {
		return nil, nil, err
	}

	if approvers == nil {
		approvers = []byte("[]")
	}

	responses, err := jsonb(group.Responses)
	if err != nil {
		return nil, nil, err
	}

	if responses == nil {
		responses = []byte("[]")
	}

	return approvers, responses, nil
}

func scanGroup(row scanner) (*models.ApprovalGroup, error) {
	var (
		group                          models.ApprovalGroup
		approvers, responses           []byte
		requestedBy                    sql.NullString
		dueAt, breachedAt, completedAt sql.NullTime
	)

	err := row.Scan(
		&group.ID,
		&group.DocumentType,
		&group.DocumentID,
		&group.Level,
		&group.Mode,
		&approvers,
		&group.Status,
		&responses,
		&requestedBy,
		&dueAt,
		&breachedAt,
		&completedAt,
		&group.Version,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	group.RequestedBy = requestedBy.String
	group.DueAt = timePtr(dueAt)
	group.SLABreachedAt = timePtr(breachedAt)
	group.CompletedAt = timePtr(completedAt)

	err = fromJSONB(approvers, &group.ApproverIDs)
	if err != nil {
		return nil, err
	}

	err = fromJSONB(responses, &group.Responses)
	if err != nil {
		return nil, err
	}

	return &group, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time

	return &v
}
