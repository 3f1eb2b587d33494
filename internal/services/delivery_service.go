package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/internal/cache"
	"example.com/ujenzipro/internal/metrics"
	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/realtime"
	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/search"
	"example.com/ujenzipro/internal/session"
	"example.com/ujenzipro/internal/tracing"
)

// DeliveryService owns the delivery lifecycle: creation, the enforced
// status state machine, the tracking ledger, and change-event fan-out
type DeliveryService struct {
	deliveryRepo repository.DeliveryRepository
	trackingRepo repository.TrackingRepository
	cache        cache.CacheClient
	broker       realtime.Broker
	elastic      *search.ElasticClient
	metrics      *metrics.Metrics
	tracer       tracing.Tracer
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	trackingRepo repository.TrackingRepository,
	cacheClient cache.CacheClient,
	broker realtime.Broker,
	elastic *search.ElasticClient,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
) *DeliveryService {
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		trackingRepo: trackingRepo,
		cache:        cacheClient,
		broker:       broker,
		elastic:      elastic,
		metrics:      collector,
		tracer:       tracer,
	}
}

// CreateDeliveryInput carries the fields a supplier provides when
// registering a new shipment
type CreateDeliveryInput struct {
	BuilderID         *uuid.UUID
	ProjectID         *uuid.UUID
	MaterialType      string
	Quantity          int
	WeightKg          float64
	PickupAddress     string
	DeliveryAddress   string
	DriverName        *string
	DriverPhone       *string
	VehicleDetails    *string
	Notes             string
	EstimatedDelivery *time.Time
}

// ListDeliveriesInput narrows a role-scoped delivery listing
type ListDeliveriesInput struct {
	ProjectID *uuid.UUID
	Status    models.DeliveryStatus
	Search    string
	Page      int
	PageSize  int
}

// newTrackingNumber generates a store-side tracking number. The UUID
// suffix keeps concurrent creations collision free.
func newTrackingNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("TRK%s-%s", now.Format("20060102"), suffix)
}

// CreateDelivery registers a new shipment for the calling supplier.
// The delivery starts at pending with one initial ledger entry.
func (s *DeliveryService) CreateDelivery(ctx context.Context, actor session.Actor, input CreateDeliveryInput) (*models.Delivery, error) {
	txn := s.tracer.StartTransaction("create-delivery")
	defer s.tracer.EndTransaction(txn)

	if actor.Role != session.RoleSupplier && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if input.MaterialType == "" {
		return nil, errors.Wrap(ErrValidation, "material_type is required")
	}
	if input.Quantity < 1 {
		return nil, errors.Wrap(ErrValidation, "quantity must be positive")
	}
	if input.PickupAddress == "" || input.DeliveryAddress == "" {
		return nil, errors.Wrap(ErrValidation, "pickup and delivery addresses are required")
	}

	now := time.Now()
	delivery := &models.Delivery{
		ID:                uuid.New(),
		TrackingNumber:    newTrackingNumber(now),
		Status:            models.StatusPending,
		SupplierID:        actor.UserID,
		BuilderID:         input.BuilderID,
		ProjectID:         input.ProjectID,
		MaterialType:      input.MaterialType,
		Quantity:          input.Quantity,
		WeightKg:          input.WeightKg,
		PickupAddress:     input.PickupAddress,
		DeliveryAddress:   input.DeliveryAddress,
		DriverName:        input.DriverName,
		DriverPhone:       input.DriverPhone,
		VehicleDetails:    input.VehicleDetails,
		Notes:             input.Notes,
		EstimatedDelivery: input.EstimatedDelivery,
	}

	initialNote := "Delivery created and pending pickup"
	initial := &models.TrackingUpdate{
		ID:     uuid.New(),
		Status: models.StatusPending,
		Notes:  &initialNote,
	}

	if err := s.deliveryRepo.Create(ctx, delivery, initial); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create delivery")
	}

	s.metrics.IncrementCounter(metrics.CounterDeliveriesCreated)

	log.Info().
		Str("delivery_id", delivery.ID.String()).
		Str("tracking_number", delivery.TrackingNumber).
		Str("supplier_id", actor.UserID.String()).
		Msg("Delivery created")

	s.refreshCaches(ctx, delivery)
	s.publish(ctx, realtime.TableDeliveries, realtime.ActionInsert, delivery.ID)

	return delivery, nil
}

// GetDelivery returns one delivery, cache first, enforcing view access
func (s *DeliveryService) GetDelivery(ctx context.Context, actor session.Actor, id uuid.UUID) (*models.Delivery, error) {
	if cached, err := s.cache.GetDelivery(ctx, id); err == nil && cached != nil {
		if !actor.CanViewDelivery(cached.SupplierID, cached.BuilderID) {
			return nil, ErrAccessDenied
		}
		return cached, nil
	}

	delivery, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanViewDelivery(delivery.SupplierID, delivery.BuilderID) {
		return nil, ErrAccessDenied
	}

	if err := s.cache.SetDelivery(ctx, delivery); err != nil {
		log.Warn().Err(err).Msg("Failed to cache delivery")
	}

	return delivery, nil
}

// ListDeliveries returns a page of deliveries scoped to the actor's
// role: suppliers see their own, builders the ones assigned to them,
// admins everything
func (s *DeliveryService) ListDeliveries(ctx context.Context, actor session.Actor, input ListDeliveriesInput) ([]models.Delivery, int64, error) {
	if input.Search != "" {
		return s.searchDeliveries(ctx, actor, input)
	}

	filter := repository.DeliveryListFilter{
		ProjectID: input.ProjectID,
		Status:    input.Status,
		Page:      input.Page,
		PageSize:  input.PageSize,
	}

	switch actor.Role {
	case session.RoleSupplier:
		id := actor.UserID
		filter.SupplierID = &id
	case session.RoleBuilder:
		id := actor.UserID
		filter.BuilderID = &id
	case session.RoleAdmin:
		// Unscoped
	default:
		return nil, 0, ErrAccessDenied
	}

	return s.deliveryRepo.List(ctx, filter)
}

// searchDeliveries resolves a free-text search through the index, then
// loads and access-filters the matching rows from the store
func (s *DeliveryService) searchDeliveries(ctx context.Context, actor session.Actor, input ListDeliveriesInput) ([]models.Delivery, int64, error) {
	ids, err := s.elastic.SearchDeliveries(ctx, input.Search, input.PageSize)
	if err != nil {
		return nil, 0, errors.Wrap(err, "delivery search failed")
	}

	deliveries := make([]models.Delivery, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		delivery, err := s.deliveryRepo.GetByID(ctx, id)
		if err != nil {
			// Index may lag the store; skip rows it no longer has
			continue
		}
		if !actor.CanViewDelivery(delivery.SupplierID, delivery.BuilderID) {
			continue
		}
		if input.Status != "" && delivery.Status != input.Status {
			continue
		}
		deliveries = append(deliveries, *delivery)
	}

	return deliveries, int64(len(deliveries)), nil
}

// SetStatus moves a delivery to the next status. The transition table
// is enforced: only forward progression plus cancellation from a
// non-terminal state is accepted. Exactly one ledger entry is appended
// per successful transition, in the same transaction as the status
// write.
func (s *DeliveryService) SetStatus(ctx context.Context, actor session.Actor, id uuid.UUID, next models.DeliveryStatus, location, notes *string) (*models.Delivery, error) {
	txn := s.tracer.StartTransaction("set-delivery-status")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "delivery_id", id.String())
	s.tracer.AddAttribute(txn, "next_status", string(next))

	if !next.IsValid() {
		return nil, ErrUnknownStatus
	}

	delivery, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutateDelivery(delivery.SupplierID) {
		return nil, ErrAccessDenied
	}
	if !delivery.Status.CanTransitionTo(next) {
		s.metrics.IncrementCounter(metrics.CounterStatusRejected)
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", delivery.Status, next)
	}

	entryNotes := notes
	if entryNotes == nil {
		generated := fmt.Sprintf("Status updated to %s", next.Label())
		entryNotes = &generated
	}
	update := &models.TrackingUpdate{
		ID:       uuid.New(),
		Location: location,
		Notes:    entryNotes,
	}

	updated, err := s.deliveryRepo.SetStatus(ctx, id, delivery.Status, next, update)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.CounterStatusUpdates)

	log.Info().
		Str("delivery_id", id.String()).
		Str("from", string(delivery.Status)).
		Str("to", string(next)).
		Msg("Delivery status updated")

	s.refreshCaches(ctx, updated)
	s.publish(ctx, realtime.TableDeliveries, realtime.ActionUpdate, id)
	s.publish(ctx, realtime.TableTrackingUpdates, realtime.ActionInsert, id)

	return updated, nil
}

// AppendWaypoint logs a manual waypoint for a delivery without changing
// its status
func (s *DeliveryService) AppendWaypoint(ctx context.Context, actor session.Actor, id uuid.UUID, location, notes *string) (*models.TrackingUpdate, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutateDelivery(delivery.SupplierID) {
		return nil, ErrAccessDenied
	}
	if location == nil && notes == nil {
		return nil, errors.Wrap(ErrValidation, "a waypoint needs a location or notes")
	}

	update := &models.TrackingUpdate{
		ID:         uuid.New(),
		DeliveryID: id,
		Status:     delivery.Status,
		Location:   location,
		Notes:      notes,
	}

	if err := s.trackingRepo.Append(ctx, update); err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.CounterLedgerAppends)

	if err := s.cache.DeleteTrackingUpdates(ctx, id); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate tracking updates cache")
	}
	s.publish(ctx, realtime.TableTrackingUpdates, realtime.ActionInsert, id)

	return update, nil
}

// ListUpdates returns a delivery's ledger newest first, enforcing view
// access
func (s *DeliveryService) ListUpdates(ctx context.Context, actor session.Actor, id uuid.UUID) ([]models.TrackingUpdate, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanViewDelivery(delivery.SupplierID, delivery.BuilderID) {
		return nil, ErrAccessDenied
	}

	return s.listUpdates(ctx, id)
}

func (s *DeliveryService) listUpdates(ctx context.Context, id uuid.UUID) ([]models.TrackingUpdate, error) {
	if cached, err := s.cache.GetTrackingUpdates(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	updates, err := s.trackingRepo.ListByDelivery(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetTrackingUpdates(ctx, id, updates); err != nil {
		log.Warn().Err(err).Msg("Failed to cache tracking updates")
	}

	return updates, nil
}

// TrackByNumber is the public tracking lookup: no session required,
// exact match only. A miss is repository.ErrNotFound, which callers
// surface as a distinct "not found" rather than a transport failure.
func (s *DeliveryService) TrackByNumber(ctx context.Context, trackingNumber string) (*models.Delivery, []models.TrackingUpdate, error) {
	s.metrics.IncrementCounter(metrics.CounterTrackingLookups)

	if cached, err := s.cache.GetDeliveryByTracking(ctx, trackingNumber); err == nil && cached != nil {
		updates, err := s.listUpdates(ctx, cached.ID)
		if err == nil {
			return cached, updates, nil
		}
	}

	delivery, err := s.deliveryRepo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, nil, err
	}

	updates, err := s.trackingRepo.ListByDelivery(ctx, delivery.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.cache.SetDeliveryByTracking(ctx, delivery); err != nil {
		log.Warn().Err(err).Msg("Failed to cache delivery by tracking number")
	}
	if err := s.cache.SetTrackingUpdates(ctx, delivery.ID, updates); err != nil {
		log.Warn().Err(err).Msg("Failed to cache tracking updates")
	}

	return delivery, updates, nil
}

// Subscribe opens a change feed scoped either to all deliveries or to
// a single delivery id
func (s *DeliveryService) Subscribe(ctx context.Context, deliveryID *uuid.UUID) (*realtime.Subscription, error) {
	topic := realtime.TopicDeliveries
	if deliveryID != nil {
		topic = realtime.DeliveryTopic(*deliveryID)
	}

	sub, err := s.broker.Subscribe(ctx, topic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open change feed")
	}

	s.metrics.IncrementCounter(metrics.CounterStreamsOpened)
	return sub, nil
}

// ReconcileLedger heals deliveries whose cached status drifted from
// their ledger by appending a corrective entry carrying the current
// status. Runs periodically from the worker as a fallback for direct
// status writes that skipped the ledger.
func (s *DeliveryService) ReconcileLedger(ctx context.Context, limit int) (int, error) {
	txn := s.tracer.StartTransaction("reconcile-ledger")
	defer s.tracer.EndTransaction(txn)

	diverged, err := s.deliveryRepo.ListDiverged(ctx, limit)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return 0, errors.Wrap(err, "failed to list diverged deliveries")
	}

	if len(diverged) == 0 {
		return 0, nil
	}

	log.Info().Int("count", len(diverged)).Msg("Found deliveries with ledger drift")

	healed := 0
	for _, delivery := range diverged {
		// The listing is a snapshot; re-check the latest entry so a
		// transition that landed since does not get a duplicate
		// corrective entry. A missing ledger still counts as drift.
		latest, err := s.trackingRepo.LatestByDelivery(ctx, delivery.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Error().Err(err).
				Str("delivery_id", delivery.ID.String()).
				Msg("Failed to re-check ledger drift")
			s.tracer.RecordError(txn, err)
			continue
		}
		if latest != nil && latest.Status == delivery.Status {
			continue
		}

		note := fmt.Sprintf("Ledger reconciled with delivery status %s", delivery.Status.Label())
		update := &models.TrackingUpdate{
			ID:         uuid.New(),
			DeliveryID: delivery.ID,
			Status:     delivery.Status,
			Notes:      &note,
		}

		if err := s.trackingRepo.Append(ctx, update); err != nil {
			log.Error().Err(err).
				Str("delivery_id", delivery.ID.String()).
				Msg("Failed to heal ledger drift")
			s.tracer.RecordError(txn, err)
			continue
		}

		healed++
		s.metrics.IncrementCounter(metrics.CounterReconcileHealed)

		if err := s.cache.DeleteTrackingUpdates(ctx, delivery.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate tracking updates cache")
		}
		s.publish(ctx, realtime.TableTrackingUpdates, realtime.ActionInsert, delivery.ID)
	}

	return healed, nil
}

// IndexDelivery pushes one delivery into the search index; called by
// the worker off the change feed
func (s *DeliveryService) IndexDelivery(ctx context.Context, id uuid.UUID) error {
	delivery, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.elastic.DeleteDelivery(ctx, id.String())
		}
		return err
	}

	return s.elastic.IndexDelivery(ctx, delivery)
}

// refreshCaches updates the id and tracking-number projections and
// invalidates the ledger list
func (s *DeliveryService) refreshCaches(ctx context.Context, delivery *models.Delivery) {
	if err := s.cache.SetDelivery(ctx, delivery); err != nil {
		log.Warn().Err(err).Msg("Failed to cache delivery")
	}
	if err := s.cache.SetDeliveryByTracking(ctx, delivery); err != nil {
		log.Warn().Err(err).Msg("Failed to cache delivery by tracking number")
	}
	if err := s.cache.DeleteTrackingUpdates(ctx, delivery.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate tracking updates cache")
	}
}

// publish emits a change event; fan-out is best effort and never fails
// the originating write
func (s *DeliveryService) publish(ctx context.Context, table string, action realtime.Action, deliveryID uuid.UUID) {
	event := realtime.ChangeEvent{
		Table:      table,
		Action:     action,
		DeliveryID: deliveryID,
		At:         time.Now(),
	}
	if err := s.broker.Publish(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("table", table).
			Str("delivery_id", deliveryID.String()).
			Msg("Failed to publish change event")
	}
}
