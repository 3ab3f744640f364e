package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/supplyflow/pkg/models"
)

// AuditRepository appends audit rows.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

func (r *AuditRepository) Record(ctx context.Context, entry *models.AuditEntry) error {
	metadata, err := jsonb(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_entries (
			id, entity_type, entity_id, action, actor_id, status_before, status_after, comment, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		nullString(entry.ActorID),
		nullString(entry.StatusBefore),
		nullString(entry.StatusAfter),
		nullString(entry.Comment),
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, actor_id, status_before, status_after, comment, metadata, created_at
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	defer closeRows(rows, r.logger)

	entries := make([]*models.AuditEntry, 0)

	for rows.Next() {
		var (
			entry                                       models.AuditEntry
			actorID, statusBefore, statusAfter, comment sql.NullString
			metadata                                    []byte
		)

		err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Action,
			&actorID,
			&statusBefore,
			&statusAfter,
			&comment,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.ActorID = actorID.String
		entry.StatusBefore = statusBefore.String
		entry.StatusAfter = statusAfter.String
		entry.Comment = comment.String

		err = fromJSONB(metadata, &entry.Metadata)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
