package file

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/dukex/supplyflow/pkg/persistence"
)

// DocumentRepository keeps one file per document under documents/<type>/<id>.json.
type DocumentRepository struct {
	dir string
	mu  sync.Mutex
}

func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{dir: filepath.Join(root, "documents")}
}

func (r *DocumentRepository) path(docType models.DocumentType, id string) (string, error) {
	if err := validateID(string(docType)); err != nil {
		return "", err
	}

	if err := validateID(id); err != nil {
		return "", err
	}

	return filepath.Join(r.dir, string(docType), id+".json"), nil
}

func (r *DocumentRepository) Create(_ context.Context, doc *models.Document) error {
	path, err := r.path(doc.Type, doc.ID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var existing models.Document

	err = readJSON(path, &existing)
	if err == nil {
		return persistence.NewEntityError("Create", "document "+string(doc.Type), doc.ID, persistence.ErrDocumentAlreadyExists)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return writeJSON(path, doc)
}

func (r *DocumentRepository) Get(_ context.Context, docType models.DocumentType, id string) (*models.Document, error) {
	path, err := r.path(docType, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(path, docType, id)
}

func (r *DocumentRepository) UpdateStatus(
	_ context.Context,
	docType models.DocumentType,
	id, from, to string,
	at time.Time,
) (*models.Document, error) {
	path, err := r.path(docType, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read(path, docType, id)
	if err != nil {
		return nil, err
	}

	if doc.Status != from {
		return nil, persistence.NewEntityError("UpdateStatus", "document "+string(docType), id, persistence.ErrStatusConflict)
	}

	doc.Status = to
	doc.UpdatedAt = at

	err = writeJSON(path, doc)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *DocumentRepository) read(path string, docType models.DocumentType, id string) (*models.Document, error) {
	var doc models.Document

	err := readJSON(path, &doc)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewEntityError("Get", "document "+string(docType), id, persistence.ErrDocumentNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &doc, nil
}
