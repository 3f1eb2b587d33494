package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/ujenzipro/internal/models"
)

// DeliveryListFilter narrows a delivery listing
type DeliveryListFilter struct {
	SupplierID *uuid.UUID
	BuilderID  *uuid.UUID
	ProjectID  *uuid.UUID
	Status     models.DeliveryStatus
	Page       int
	PageSize   int
}

// DeliveryRepository defines the interface for delivery data access
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *models.Delivery, initial *models.TrackingUpdate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Delivery, error)
	List(ctx context.Context, filter DeliveryListFilter) ([]models.Delivery, int64, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to models.DeliveryStatus, update *models.TrackingUpdate) (*models.Delivery, error)
	ListDiverged(ctx context.Context, limit int) ([]models.Delivery, error)
}

type deliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

// Create inserts the delivery together with its initial ledger entry
// in one transaction
func (r *deliveryRepository) Create(ctx context.Context, delivery *models.Delivery, initial *models.TrackingUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(delivery).Error; err != nil {
			return errors.Wrap(translateError(err), "failed to create delivery")
		}
		initial.DeliveryID = delivery.ID
		if err := tx.Omit(clause.Associations).Create(initial).Error; err != nil {
			return errors.Wrap(err, "failed to create initial tracking update")
		}
		return nil
	})
}

// GetByID gets a delivery by its id
func (r *deliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).First(&delivery, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get delivery by id")
	}
	return &delivery, nil
}

// GetByTrackingNumber gets a delivery by its public tracking number
func (r *deliveryRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).First(&delivery, "tracking_number = ?", trackingNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get delivery by tracking number")
	}
	return &delivery, nil
}

// List returns a page of deliveries matching the filter, newest first
func (r *deliveryRepository) List(ctx context.Context, filter DeliveryListFilter) ([]models.Delivery, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Delivery{})

	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.BuilderID != nil {
		query = query.Where("builder_id = ?", *filter.BuilderID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count deliveries")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var deliveries []models.Delivery
	err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&deliveries).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list deliveries")
	}

	return deliveries, total, nil
}

// SetStatus moves the delivery from one status to another and appends
// the corresponding ledger entry in a single transaction. The current
// status is a precondition of the UPDATE, so a concurrent writer that
// got there first turns this call into ErrStatusConflict instead of a
// lost update.
func (r *deliveryRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.DeliveryStatus, update *models.TrackingUpdate) (*models.Delivery, error) {
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]interface{}{
			"status":     to,
			"updated_at": now,
		}
		if to == models.StatusDelivered {
			values["actual_delivery"] = now
		}

		result := tx.Model(&models.Delivery{}).
			Where("id = ? AND status = ?", id, from).
			Updates(values)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to update delivery status")
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}

		update.DeliveryID = id
		update.Status = to
		if err := tx.Omit(clause.Associations).Create(update).Error; err != nil {
			return errors.Wrap(err, "failed to append tracking update")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// ListDiverged returns deliveries whose cached status no longer matches
// the newest entry in their tracking ledger. Used by the reconciliation
// worker to heal drift left by direct status writes.
func (r *deliveryRepository) ListDiverged(ctx context.Context, limit int) ([]models.Delivery, error) {
	if limit < 1 {
		limit = 100
	}

	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.* FROM deliveries d
		JOIN LATERAL (
			SELECT status FROM tracking_updates tu
			WHERE tu.delivery_id = d.id
			ORDER BY tu.created_at DESC, tu.id DESC
			LIMIT 1
		) latest ON TRUE
		WHERE d.deleted_at IS NULL AND latest.status <> d.status
		LIMIT ?`, limit).
		Scan(&deliveries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list diverged deliveries")
	}

	return deliveries, nil
}
