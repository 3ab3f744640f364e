package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/lib/pq"
)

const documentColumns = `
	document_type
  , id
  , status
  , warehouse_id
  , project_id
  , data
  , created_by
  , created_at
  , updated_at
`

// DocumentRepository handles document rows.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	data, err := jsonb(doc.Data)
	if err != nil {
		return err
	}

	if data == nil {
		data = []byte("{}")
	}

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		doc.Type,
		doc.ID,
		doc.Status,
		nullString(doc.WarehouseID),
		nullString(doc.ProjectID),
		data,
		nullString(doc.CreatedBy),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return persistence.NewEntityError("Create", "document "+string(doc.Type), doc.ID, persistence.ErrDocumentAlreadyExists)
		}

		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, docType models.DocumentType, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE document_type = $1 AND id = $2`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, docType, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewEntityError("Get", "document "+string(docType), id, persistence.ErrDocumentNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return doc, nil
}

// UpdateStatus is a conditional update on the current status, so concurrent
// writers across processes cannot both move the same document.
func (r *DocumentRepository) UpdateStatus(
	ctx context.Context,
	docType models.DocumentType,
	id, from, to string,
	at time.Time,
) (*models.Document, error) {
	query := `
		UPDATE documents
		SET status = $4, updated_at = $5
		WHERE document_type = $1 AND id = $2 AND status = $3
		RETURNING ` + documentColumns

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, docType, id, from, to, at))
	if err == nil {
		return doc, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}

	_, getErr := r.Get(ctx, docType, id)
	if getErr != nil {
		return nil, getErr
	}

	return nil, persistence.NewEntityError("UpdateStatus", "document "+string(docType), id, persistence.ErrStatusConflict)
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		doc                               models.Document
		warehouseID, projectID, createdBy sql.NullString
		data                              []byte
	)

	err := row.Scan(
		&doc.Type,
		&doc.ID,
		&doc.Status,
		&warehouseID,
		&projectID,
		&data,
		&createdBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.WarehouseID = warehouseID.String
	doc.ProjectID = projectID.String
	doc.CreatedBy = createdBy.String

	err = fromJSONB(data, &doc.Data)
	if err != nil {
		return nil, err
	}

	return &doc, nil
}
