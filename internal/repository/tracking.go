package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/ujenzipro/internal/models"
)

// TrackingRepository defines the interface for tracking ledger access.
// The ledger is append-only: there are deliberately no update or delete
// methods.
type TrackingRepository interface {
	Append(ctx context.Context, update *models.TrackingUpdate) error
	ListByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]models.TrackingUpdate, error)
	LatestByDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.TrackingUpdate, error)
}

type trackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository creates a new tracking repository
func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

// Append inserts a new ledger entry
func (r *trackingRepository) Append(ctx context.Context, update *models.TrackingUpdate) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(update).Error; err != nil {
		return errors.Wrap(err, "failed to append tracking update")
	}
	return nil
}

// ListByDelivery returns all ledger entries for a delivery, newest first
func (r *trackingRepository) ListByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]models.TrackingUpdate, error) {
	var updates []models.TrackingUpdate
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID).
		Order("created_at DESC, id DESC").
		Find(&updates).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tracking updates")
	}
	return updates, nil
}

// LatestByDelivery returns the newest ledger entry for a delivery
func (r *trackingRepository) LatestByDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.TrackingUpdate, error) {
	var update models.TrackingUpdate
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID).
		Order("created_at DESC, id DESC").
		First(&update).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get latest tracking update")
	}
	return &update, nil
}
