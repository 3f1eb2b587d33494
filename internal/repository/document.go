package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/ujenzipro/internal/models"
)

// DocumentListFilter narrows a document listing
type DocumentListFilter struct {
	BuilderID  *uuid.UUID
	SupplierID *uuid.UUID
	ProjectID  *uuid.UUID
	Status     string
	Page       int
	PageSize   int
}

// Document is the constraint for flat marketplace document records
type Document interface {
	models.PurchaseOrder | models.DeliveryNote | models.GoodsReceivedNote | models.Quotation
}

// DocumentRepository provides CRUD access to one document table.
// Documents are flat records: no transition logic lives here.
type DocumentRepository[T Document] struct {
	db *gorm.DB
}

// NewDocumentRepository creates a repository for one document type
func NewDocumentRepository[T Document](db *gorm.DB) *DocumentRepository[T] {
	return &DocumentRepository[T]{db: db}
}

// Create inserts a new document
func (r *DocumentRepository[T]) Create(ctx context.Context, doc *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(doc).Error; err != nil {
		return errors.Wrap(translateError(err), "failed to create document")
	}
	return nil
}

// GetByID gets a document by id
func (r *DocumentRepository[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var doc T
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get document")
	}
	return &doc, nil
}

// List returns a page of documents matching the filter, newest first
func (r *DocumentRepository[T]) List(ctx context.Context, filter DocumentListFilter) ([]T, int64, error) {
	var model T
	query := r.db.WithContext(ctx).Model(&model)

	if filter.BuilderID != nil {
		query = query.Where("builder_id = ?", *filter.BuilderID)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count documents")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var docs []T
	err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&docs).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list documents")
	}

	return docs, total, nil
}

// Update saves changes to a document
func (r *DocumentRepository[T]) Update(ctx context.Context, doc *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(doc).Error; err != nil {
		return errors.Wrap(err, "failed to update document")
	}
	return nil
}

// Delete soft-deletes a document
func (r *DocumentRepository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	var model T
	result := r.db.WithContext(ctx).Delete(&model, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete document")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
