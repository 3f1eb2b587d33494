package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/session"
)

// ProviderService manages delivery provider registrations
type ProviderService struct {
	providerRepo repository.ProviderRepository
}

// NewProviderService creates a new provider service
func NewProviderService(providerRepo repository.ProviderRepository) *ProviderService {
	return &ProviderService{providerRepo: providerRepo}
}

// ProviderInput carries a provider registration
type ProviderInput struct {
	CompanyName  string `validate:"required"`
	Phone        string `validate:"required"`
	Email        string `validate:"omitempty,email"`
	Address      string
	VehicleTypes json.RawMessage
	CapacityKg   float64 `validate:"gte=0"`
	ServiceAreas json.RawMessage
}

// Register creates a provider registration for the calling user.
// Registrations start unverified; an admin flips the flag later.
func (s *ProviderService) Register(ctx context.Context, actor session.Actor, input ProviderInput) (*models.Provider, error) {
	if err := validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	if existing, err := s.providerRepo.GetByUser(ctx, actor.UserID); err == nil && existing != nil {
		return nil, errors.Wrap(ErrValidation, "provider already registered for this user")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	provider := &models.Provider{
		ID:           uuid.New(),
		UserID:       actor.UserID,
		CompanyName:  input.CompanyName,
		Phone:        input.Phone,
		Email:        input.Email,
		Address:      input.Address,
		VehicleTypes: input.VehicleTypes,
		CapacityKg:   input.CapacityKg,
		ServiceAreas: input.ServiceAreas,
		IsVerified:   false,
	}

	if err := s.providerRepo.Create(ctx, provider); err != nil {
		return nil, err
	}

	log.Info().Str("provider_id", provider.ID.String()).Str("company", provider.CompanyName).Msg("Provider registered")
	return provider, nil
}

// GetProvider returns one provider registration
func (s *ProviderService) GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	return s.providerRepo.GetByID(ctx, id)
}

// ListProviders lists providers. Non-admin callers only see verified
// registrations.
func (s *ProviderService) ListProviders(ctx context.Context, actor session.Actor) ([]models.Provider, error) {
	return s.providerRepo.List(ctx, !actor.IsAdmin())
}

// SetVerified marks a provider registration as verified. Admin only.
func (s *ProviderService) SetVerified(ctx context.Context, actor session.Actor, id uuid.UUID, verified bool) (*models.Provider, error) {
	if !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}

	if err := s.providerRepo.SetVerified(ctx, id, verified); err != nil {
		return nil, err
	}

	provider, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Info().Str("provider_id", id.String()).Bool("verified", verified).Msg("Provider verification updated")
	return provider, nil
}
