package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/ujenzipro/internal/models"
)

// ProviderRepository defines the interface for delivery provider data access
type ProviderRepository interface {
	Create(ctx context.Context, provider *models.Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Provider, error)
	List(ctx context.Context, verifiedOnly bool) ([]models.Provider, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

// Create inserts a new provider registration
func (r *providerRepository) Create(ctx context.Context, provider *models.Provider) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(provider).Error; err != nil {
		return errors.Wrap(translateError(err), "failed to create provider")
	}
	return nil
}

// GetByID gets a provider by id
func (r *providerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	err := r.db.WithContext(ctx).First(&provider, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get provider")
	}
	return &provider, nil
}

// GetByUser gets the provider registered by a user
func (r *providerRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	err := r.db.WithContext(ctx).First(&provider, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get provider by user")
	}
	return &provider, nil
}

// List returns providers, optionally restricted to verified ones
func (r *providerRepository) List(ctx context.Context, verifiedOnly bool) ([]models.Provider, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if verifiedOnly {
		query = query.Where("is_verified = ?", true)
	}

	var providers []models.Provider
	if err := query.Find(&providers).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list providers")
	}
	return providers, nil
}

// SetVerified marks a provider registration as verified or not
func (r *providerRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Provider{}).
		Where("id = ?", id).
		Update("is_verified", verified)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update provider verification")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
