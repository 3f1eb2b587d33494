package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/ujenzipro/config"
	"example.com/ujenzipro/internal/cache"
	"example.com/ujenzipro/internal/metrics"
	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/realtime"
	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/session"
	"example.com/ujenzipro/internal/tracing"
)

// Mock repositories for testing
type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Create(ctx context.Context, delivery *models.Delivery, initial *models.TrackingUpdate) error {
	args := m.Called(ctx, delivery, initial)
	return args.Error(0)
}

func (m *MockDeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Delivery, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) List(ctx context.Context, filter repository.DeliveryListFilter) ([]models.Delivery, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Delivery), args.Get(1).(int64), args.Error(2)
}

func (m *MockDeliveryRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.DeliveryStatus, update *models.TrackingUpdate) (*models.Delivery, error) {
	args := m.Called(ctx, id, from, to, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delivery), args.Error(1)
}

func (m *MockDeliveryRepository) ListDiverged(ctx context.Context, limit int) ([]models.Delivery, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Delivery), args.Error(1)
}

type MockTrackingRepository struct {
	mock.Mock
}

func (m *MockTrackingRepository) Append(ctx context.Context, update *models.TrackingUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockTrackingRepository) ListByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]models.TrackingUpdate, error) {
	args := m.Called(ctx, deliveryID)
	return args.Get(0).([]models.TrackingUpdate), args.Error(1)
}

func (m *MockTrackingRepository) LatestByDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.TrackingUpdate, error) {
	args := m.Called(ctx, deliveryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackingUpdate), args.Error(1)
}

func newTestService(deliveryRepo repository.DeliveryRepository, trackingRepo repository.TrackingRepository) *DeliveryService {
	tracer, _ := tracing.NewTracer(config.TracingConfig{})
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		trackingRepo: trackingRepo,
		cache:        cache.Disabled(),
		broker:       realtime.NewMemoryBroker(),
		metrics:      metrics.NewMetrics(),
		tracer:       tracer,
	}
}

func supplierActor() session.Actor {
	return session.Actor{UserID: uuid.New(), Role: session.RoleSupplier, Name: "Mamba Cement Ltd"}
}

func TestCreateDelivery(t *testing.T) {
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Delivery"), mock.AnythingOfType("*models.TrackingUpdate")).Return(nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))
	actor := supplierActor()

	delivery, err := service.CreateDelivery(context.Background(), actor, CreateDeliveryInput{
		MaterialType:    "cement",
		Quantity:        200,
		WeightKg:        10000,
		PickupAddress:   "Athi River depot",
		DeliveryAddress: "Kilimani site, Nairobi",
	})

	require.NoError(t, err)
	require.NotNil(t, delivery)
	require.Equal(t, models.StatusPending, delivery.Status)
	require.Equal(t, actor.UserID, delivery.SupplierID)
	require.True(t, strings.HasPrefix(delivery.TrackingNumber, "TRK"))

	// The initial ledger entry is written in the same call as the row
	initial := mockRepo.Calls[0].Arguments.Get(2).(*models.TrackingUpdate)
	require.Equal(t, models.StatusPending, initial.Status)
	require.NotNil(t, initial.Notes)

	mockRepo.AssertExpectations(t)
}

func TestCreateDeliveryRequiresSupplier(t *testing.T) {
	service := newTestService(new(MockDeliveryRepository), new(MockTrackingRepository))

	builder := session.Actor{UserID: uuid.New(), Role: session.RoleBuilder}
	_, err := service.CreateDelivery(context.Background(), builder, CreateDeliveryInput{
		MaterialType:    "sand",
		Quantity:        5,
		PickupAddress:   "Quarry",
		DeliveryAddress: "Site",
	})

	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestCreateDeliveryValidation(t *testing.T) {
	service := newTestService(new(MockDeliveryRepository), new(MockTrackingRepository))
	actor := supplierActor()

	_, err := service.CreateDelivery(context.Background(), actor, CreateDeliveryInput{
		Quantity:        5,
		PickupAddress:   "Quarry",
		DeliveryAddress: "Site",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = service.CreateDelivery(context.Background(), actor, CreateDeliveryInput{
		MaterialType:    "sand",
		Quantity:        0,
		PickupAddress:   "Quarry",
		DeliveryAddress: "Site",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateDeliverySurfacesDuplicateKey(t *testing.T) {
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Delivery"), mock.AnythingOfType("*models.TrackingUpdate")).
		Return(repository.ErrDuplicateKey)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	_, err := service.CreateDelivery(context.Background(), supplierActor(), CreateDeliveryInput{
		MaterialType:    "sand",
		Quantity:        5,
		PickupAddress:   "Quarry",
		DeliveryAddress: "Site",
	})

	// The sentinel survives the service's wrapping so handlers can map
	// it to a conflict instead of a server error
	require.ErrorIs(t, err, repository.ErrDuplicateKey)
}

func TestSetStatusValidTransition(t *testing.T) {
	actor := supplierActor()
	deliveryID := uuid.New()

	current := &models.Delivery{ID: deliveryID, Status: models.StatusPending, SupplierID: actor.UserID}
	updated := &models.Delivery{ID: deliveryID, Status: models.StatusPickedUp, SupplierID: actor.UserID}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByID", mock.Anything, deliveryID).Return(current, nil)
	mockRepo.On("SetStatus", mock.Anything, deliveryID, models.StatusPending, models.StatusPickedUp, mock.AnythingOfType("*models.TrackingUpdate")).Return(updated, nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	result, err := service.SetStatus(context.Background(), actor, deliveryID, models.StatusPickedUp, nil, nil)

	require.NoError(t, err)
	require.Equal(t, models.StatusPickedUp, result.Status)

	// Without caller notes the ledger entry gets a generated one
	entry := mockRepo.Calls[1].Arguments.Get(4).(*models.TrackingUpdate)
	require.NotNil(t, entry.Notes)
	require.Contains(t, *entry.Notes, "Picked Up")

	mockRepo.AssertExpectations(t)
}

func TestSetStatusRejectsInvalidTransition(t *testing.T) {
	actor := supplierActor()
	deliveryID := uuid.New()

	current := &models.Delivery{ID: deliveryID, Status: models.StatusPending, SupplierID: actor.UserID}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByID", mock.Anything, deliveryID).Return(current, nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	_, err := service.SetStatus(context.Background(), actor, deliveryID, models.StatusDelivered, nil, nil)

	require.ErrorIs(t, err, ErrInvalidTransition)
	mockRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.Equal(t, int64(1), service.metrics.GetCounters()[metrics.CounterStatusRejected])
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	service := newTestService(new(MockDeliveryRepository), new(MockTrackingRepository))

	_, err := service.SetStatus(context.Background(), supplierActor(), uuid.New(), models.DeliveryStatus("shipped"), nil, nil)

	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestSetStatusRequiresOwnership(t *testing.T) {
	actor := supplierActor()
	deliveryID := uuid.New()

	// Owned by a different supplier
	current := &models.Delivery{ID: deliveryID, Status: models.StatusPending, SupplierID: uuid.New()}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByID", mock.Anything, deliveryID).Return(current, nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	_, err := service.SetStatus(context.Background(), actor, deliveryID, models.StatusPickedUp, nil, nil)

	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestSetStatusPropagatesConflict(t *testing.T) {
	actor := supplierActor()
	deliveryID := uuid.New()

	current := &models.Delivery{ID: deliveryID, Status: models.StatusPending, SupplierID: actor.UserID}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByID", mock.Anything, deliveryID).Return(current, nil)
	mockRepo.On("SetStatus", mock.Anything, deliveryID, models.StatusPending, models.StatusPickedUp, mock.Anything).Return(nil, repository.ErrStatusConflict)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	_, err := service.SetStatus(context.Background(), actor, deliveryID, models.StatusPickedUp, nil, nil)

	require.ErrorIs(t, err, repository.ErrStatusConflict)
}

func TestSetStatusPublishesChangeEvents(t *testing.T) {
	actor := supplierActor()
	deliveryID := uuid.New()

	current := &models.Delivery{ID: deliveryID, Status: models.StatusInTransit, SupplierID: actor.UserID}
	updated := &models.Delivery{ID: deliveryID, Status: models.StatusOutForDelivery, SupplierID: actor.UserID}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByID", mock.Anything, deliveryID).Return(current, nil)
	mockRepo.On("SetStatus", mock.Anything, deliveryID, models.StatusInTransit, models.StatusOutForDelivery, mock.Anything).Return(updated, nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	sub, err := service.Subscribe(context.Background(), &deliveryID)
	require.NoError(t, err)
	defer sub.Close()

	_, err = service.SetStatus(context.Background(), actor, deliveryID, models.StatusOutForDelivery, nil, nil)
	require.NoError(t, err)

	// One event for the delivery row, one for the ledger insert
	first := receiveEvent(t, sub)
	second := receiveEvent(t, sub)

	require.Equal(t, realtime.TableDeliveries, first.Table)
	require.Equal(t, realtime.ActionUpdate, first.Action)
	require.Equal(t, deliveryID, first.DeliveryID)

	require.Equal(t, realtime.TableTrackingUpdates, second.Table)
	require.Equal(t, realtime.ActionInsert, second.Action)
}

func receiveEvent(t *testing.T, sub *realtime.Subscription) realtime.ChangeEvent {
	t.Helper()
	select {
	case event := <-sub.C:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
		return realtime.ChangeEvent{}
	}
}

func TestAppendWaypointRequiresContent(t *testing.T) {
	actor := supplierActor()
	deliveryID := uuid.New()

	current := &models.Delivery{ID: deliveryID, Status: models.StatusInTransit, SupplierID: actor.UserID}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByID", mock.Anything, deliveryID).Return(current, nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	_, err := service.AppendWaypoint(context.Background(), actor, deliveryID, nil, nil)

	require.ErrorIs(t, err, ErrValidation)
}

func TestAppendWaypointKeepsStatus(t *testing.T) {
	actor := supplierActor()
	deliveryID := uuid.New()

	current := &models.Delivery{ID: deliveryID, Status: models.StatusInTransit, SupplierID: actor.UserID}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByID", mock.Anything, deliveryID).Return(current, nil)

	mockTracking := new(MockTrackingRepository)
	mockTracking.On("Append", mock.Anything, mock.AnythingOfType("*models.TrackingUpdate")).Return(nil)

	service := newTestService(mockRepo, mockTracking)

	location := "Mlolongo weighbridge"
	update, err := service.AppendWaypoint(context.Background(), actor, deliveryID, &location, nil)

	require.NoError(t, err)
	require.Equal(t, models.StatusInTransit, update.Status)
	require.Equal(t, deliveryID, update.DeliveryID)
	mockTracking.AssertExpectations(t)
}

func TestTrackByNumber(t *testing.T) {
	deliveryID := uuid.New()
	trackingNumber := "TRK20260831-ABCD1234"

	delivery := &models.Delivery{ID: deliveryID, TrackingNumber: trackingNumber, Status: models.StatusInTransit, SupplierID: uuid.New()}
	updates := []models.TrackingUpdate{
		{ID: uuid.New(), DeliveryID: deliveryID, Status: models.StatusInTransit},
		{ID: uuid.New(), DeliveryID: deliveryID, Status: models.StatusPickedUp},
		{ID: uuid.New(), DeliveryID: deliveryID, Status: models.StatusPending},
	}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByTrackingNumber", mock.Anything, trackingNumber).Return(delivery, nil)

	mockTracking := new(MockTrackingRepository)
	mockTracking.On("ListByDelivery", mock.Anything, deliveryID).Return(updates, nil)

	service := newTestService(mockRepo, mockTracking)

	// No actor: the tracking number is the only credential
	got, history, err := service.TrackByNumber(context.Background(), trackingNumber)

	require.NoError(t, err)
	require.Equal(t, trackingNumber, got.TrackingNumber)
	require.Len(t, history, 3)
	require.Equal(t, models.StatusInTransit, history[0].Status)
}

func TestTrackByNumberNotFound(t *testing.T) {
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("GetByTrackingNumber", mock.Anything, "TRK00000000-NOPE0000").Return(nil, repository.ErrNotFound)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	_, _, err := service.TrackByNumber(context.Background(), "TRK00000000-NOPE0000")

	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReconcileLedgerHealsDrift(t *testing.T) {
	diverged := []models.Delivery{
		{ID: uuid.New(), Status: models.StatusDelivered},
		{ID: uuid.New(), Status: models.StatusInTransit},
	}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("ListDiverged", mock.Anything, 100).Return(diverged, nil)

	mockTracking := new(MockTrackingRepository)
	stale := &models.TrackingUpdate{ID: uuid.New(), DeliveryID: diverged[0].ID, Status: models.StatusOutForDelivery}
	mockTracking.On("LatestByDelivery", mock.Anything, diverged[0].ID).Return(stale, nil)
	// An empty ledger is drift too
	mockTracking.On("LatestByDelivery", mock.Anything, diverged[1].ID).Return(nil, repository.ErrNotFound)
	mockTracking.On("Append", mock.Anything, mock.AnythingOfType("*models.TrackingUpdate")).Return(nil)

	service := newTestService(mockRepo, mockTracking)

	healed, err := service.ReconcileLedger(context.Background(), 100)

	require.NoError(t, err)
	require.Equal(t, 2, healed)
	mockTracking.AssertNumberOfCalls(t, "Append", 2)

	// The corrective entry carries the delivery's current status
	var entries []*models.TrackingUpdate
	for _, call := range mockTracking.Calls {
		if call.Method == "Append" {
			entries = append(entries, call.Arguments.Get(1).(*models.TrackingUpdate))
		}
	}
	require.Len(t, entries, 2)
	require.Equal(t, models.StatusDelivered, entries[0].Status)
	require.NotNil(t, entries[0].Notes)
}

func TestReconcileLedgerSkipsResolvedDrift(t *testing.T) {
	delivery := models.Delivery{ID: uuid.New(), Status: models.StatusInTransit}

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("ListDiverged", mock.Anything, 100).Return([]models.Delivery{delivery}, nil)

	// A transition landed between the listing and the re-check, so the
	// ledger already matches and no corrective entry is needed
	mockTracking := new(MockTrackingRepository)
	current := &models.TrackingUpdate{ID: uuid.New(), DeliveryID: delivery.ID, Status: models.StatusInTransit}
	mockTracking.On("LatestByDelivery", mock.Anything, delivery.ID).Return(current, nil)

	service := newTestService(mockRepo, mockTracking)

	healed, err := service.ReconcileLedger(context.Background(), 100)

	require.NoError(t, err)
	require.Zero(t, healed)
	mockTracking.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestReconcileLedgerNothingDiverged(t *testing.T) {
	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("ListDiverged", mock.Anything, 50).Return([]models.Delivery{}, nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	healed, err := service.ReconcileLedger(context.Background(), 50)

	require.NoError(t, err)
	require.Zero(t, healed)
}

func TestListDeliveriesScopesByRole(t *testing.T) {
	actor := supplierActor()

	mockRepo := new(MockDeliveryRepository)
	mockRepo.On("List", mock.Anything, mock.MatchedBy(func(filter repository.DeliveryListFilter) bool {
		return filter.SupplierID != nil && *filter.SupplierID == actor.UserID
	})).Return([]models.Delivery{}, int64(0), nil)

	service := newTestService(mockRepo, new(MockTrackingRepository))

	_, _, err := service.ListDeliveries(context.Background(), actor, ListDeliveriesInput{Page: 1, PageSize: 20})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
