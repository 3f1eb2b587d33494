package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/session"
)

var validate = validator.New()

// DocumentService handles the flat marketplace documents: purchase
// orders, delivery notes, goods received notes and quotations. These
// records have no transition logic; status is set at creation and only
// ever changed by a single direct write.
type DocumentService struct {
	purchaseOrders *repository.DocumentRepository[models.PurchaseOrder]
	deliveryNotes  *repository.DocumentRepository[models.DeliveryNote]
	goodsReceived  *repository.DocumentRepository[models.GoodsReceivedNote]
	quotations     *repository.DocumentRepository[models.Quotation]
}

// NewDocumentService creates a new document service
func NewDocumentService(
	purchaseOrders *repository.DocumentRepository[models.PurchaseOrder],
	deliveryNotes *repository.DocumentRepository[models.DeliveryNote],
	goodsReceived *repository.DocumentRepository[models.GoodsReceivedNote],
	quotations *repository.DocumentRepository[models.Quotation],
) *DocumentService {
	return &DocumentService{
		purchaseOrders: purchaseOrders,
		deliveryNotes:  deliveryNotes,
		goodsReceived:  goodsReceived,
		quotations:     quotations,
	}
}

// newDocumentNumber generates a store-side document number
func newDocumentNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("%s%s-%s", prefix, now.Format("20060102"), suffix)
}

// PurchaseOrderInput carries the fields for a new purchase order
type PurchaseOrderInput struct {
	SupplierID      uuid.UUID       `validate:"required"`
	ProjectID       *uuid.UUID      `validate:"omitempty"`
	Items           json.RawMessage `validate:"required"`
	TotalAmountKsh  int64           `validate:"gte=0"`
	DeliveryAddress string          `validate:"required"`
	PaymentNotes    string
	Notes           string
}

// CreatePurchaseOrder creates a purchase order for the calling builder
func (s *DocumentService) CreatePurchaseOrder(ctx context.Context, actor session.Actor, input PurchaseOrderInput) (*models.PurchaseOrder, error) {
	if actor.Role != session.RoleBuilder && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if err := validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	order := &models.PurchaseOrder{
		ID:              uuid.New(),
		PoNumber:        newDocumentNumber("PO", time.Now()),
		BuilderID:       actor.UserID,
		SupplierID:      input.SupplierID,
		ProjectID:       input.ProjectID,
		Status:          "pending",
		Items:           input.Items,
		TotalAmountKsh:  input.TotalAmountKsh,
		DeliveryAddress: input.DeliveryAddress,
		PaymentNotes:    input.PaymentNotes,
		Notes:           input.Notes,
	}

	if err := s.purchaseOrders.Create(ctx, order); err != nil {
		return nil, err
	}

	log.Info().Str("po_number", order.PoNumber).Msg("Purchase order created")
	return order, nil
}

// GetPurchaseOrder returns one purchase order, enforcing party access
func (s *DocumentService) GetPurchaseOrder(ctx context.Context, actor session.Actor, id uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.purchaseOrders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != order.BuilderID && actor.UserID != order.SupplierID {
		return nil, ErrAccessDenied
	}
	return order, nil
}

// ListPurchaseOrders lists purchase orders visible to the actor
func (s *DocumentService) ListPurchaseOrders(ctx context.Context, actor session.Actor, status string, page, pageSize int) ([]models.PurchaseOrder, int64, error) {
	filter := repository.DocumentListFilter{Status: status, Page: page, PageSize: pageSize}
	switch actor.Role {
	case session.RoleBuilder:
		id := actor.UserID
		filter.BuilderID = &id
	case session.RoleSupplier:
		id := actor.UserID
		filter.SupplierID = &id
	case session.RoleAdmin:
	default:
		return nil, 0, ErrAccessDenied
	}
	return s.purchaseOrders.List(ctx, filter)
}

// SetPurchaseOrderStatus applies the single direct status write a
// purchase order supports
func (s *DocumentService) SetPurchaseOrderStatus(ctx context.Context, actor session.Actor, id uuid.UUID, status string) (*models.PurchaseOrder, error) {
	order, err := s.purchaseOrders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != order.SupplierID {
		return nil, ErrAccessDenied
	}
	if status == "" {
		return nil, errors.Wrap(ErrValidation, "status is required")
	}

	order.Status = status
	if err := s.purchaseOrders.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// DeliveryNoteInput carries the fields for a new delivery note
type DeliveryNoteInput struct {
	PurchaseOrderID *uuid.UUID
	DeliveryID      *uuid.UUID
	Items           json.RawMessage `validate:"required"`
	DispatchDate    *time.Time
	Notes           string
}

// CreateDeliveryNote creates a delivery note for the calling supplier
func (s *DocumentService) CreateDeliveryNote(ctx context.Context, actor session.Actor, input DeliveryNoteInput) (*models.DeliveryNote, error) {
	if actor.Role != session.RoleSupplier && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if err := validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	note := &models.DeliveryNote{
		ID:              uuid.New(),
		DnNumber:        newDocumentNumber("DN", time.Now()),
		SupplierID:      actor.UserID,
		PurchaseOrderID: input.PurchaseOrderID,
		DeliveryID:      input.DeliveryID,
		Status:          "issued",
		Items:           input.Items,
		DispatchDate:    input.DispatchDate,
		Notes:           input.Notes,
	}

	if err := s.deliveryNotes.Create(ctx, note); err != nil {
		return nil, err
	}

	log.Info().Str("dn_number", note.DnNumber).Msg("Delivery note created")
	return note, nil
}

// ListDeliveryNotes lists delivery notes visible to the actor
func (s *DocumentService) ListDeliveryNotes(ctx context.Context, actor session.Actor, status string, page, pageSize int) ([]models.DeliveryNote, int64, error) {
	filter := repository.DocumentListFilter{Status: status, Page: page, PageSize: pageSize}
	switch actor.Role {
	case session.RoleSupplier:
		id := actor.UserID
		filter.SupplierID = &id
	case session.RoleAdmin:
	default:
		return nil, 0, ErrAccessDenied
	}
	return s.deliveryNotes.List(ctx, filter)
}

// GoodsReceivedNoteInput carries the fields for a new GRN
type GoodsReceivedNoteInput struct {
	DeliveryNoteID *uuid.UUID
	Items          json.RawMessage `validate:"required"`
	ReceivedDate   *time.Time
	Discrepancies  string
	Notes          string
}

// CreateGoodsReceivedNote records what the calling builder received
func (s *DocumentService) CreateGoodsReceivedNote(ctx context.Context, actor session.Actor, input GoodsReceivedNoteInput) (*models.GoodsReceivedNote, error) {
	if actor.Role != session.RoleBuilder && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if err := validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	status := "received"
	if input.Discrepancies != "" {
		status = "disputed"
	}

	grn := &models.GoodsReceivedNote{
		ID:             uuid.New(),
		GrnNumber:      newDocumentNumber("GRN", time.Now()),
		BuilderID:      actor.UserID,
		DeliveryNoteID: input.DeliveryNoteID,
		Status:         status,
		Items:          input.Items,
		ReceivedDate:   input.ReceivedDate,
		Discrepancies:  input.Discrepancies,
		Notes:          input.Notes,
	}

	if err := s.goodsReceived.Create(ctx, grn); err != nil {
		return nil, err
	}

	log.Info().Str("grn_number", grn.GrnNumber).Msg("Goods received note created")
	return grn, nil
}

// ListGoodsReceivedNotes lists GRNs visible to the actor
func (s *DocumentService) ListGoodsReceivedNotes(ctx context.Context, actor session.Actor, status string, page, pageSize int) ([]models.GoodsReceivedNote, int64, error) {
	filter := repository.DocumentListFilter{Status: status, Page: page, PageSize: pageSize}
	switch actor.Role {
	case session.RoleBuilder:
		id := actor.UserID
		filter.BuilderID = &id
	case session.RoleAdmin:
	default:
		return nil, 0, ErrAccessDenied
	}
	return s.goodsReceived.List(ctx, filter)
}

// QuotationInput carries the fields for a new quotation
type QuotationInput struct {
	BuilderID      uuid.UUID  `validate:"required"`
	ProjectID      *uuid.UUID `validate:"omitempty"`
	MaterialType   string     `validate:"required"`
	Quantity       int        `validate:"gt=0"`
	UnitPriceKsh   int64      `validate:"gte=0"`
	TotalAmountKsh int64      `validate:"gte=0"`
	ValidUntil     *time.Time
	Notes          string
}

// CreateQuotation creates a quotation from the calling supplier
func (s *DocumentService) CreateQuotation(ctx context.Context, actor session.Actor, input QuotationInput) (*models.Quotation, error) {
	if actor.Role != session.RoleSupplier && !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if err := validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	quote := &models.Quotation{
		ID:             uuid.New(),
		QuoteNumber:    newDocumentNumber("QT", time.Now()),
		SupplierID:     actor.UserID,
		BuilderID:      input.BuilderID,
		ProjectID:      input.ProjectID,
		Status:         "open",
		MaterialType:   input.MaterialType,
		Quantity:       input.Quantity,
		UnitPriceKsh:   input.UnitPriceKsh,
		TotalAmountKsh: input.TotalAmountKsh,
		ValidUntil:     input.ValidUntil,
		Notes:          input.Notes,
	}

	if err := s.quotations.Create(ctx, quote); err != nil {
		return nil, err
	}

	log.Info().Str("quote_number", quote.QuoteNumber).Msg("Quotation created")
	return quote, nil
}

// ListQuotations lists quotations visible to the actor
func (s *DocumentService) ListQuotations(ctx context.Context, actor session.Actor, status string, page, pageSize int) ([]models.Quotation, int64, error) {
	filter := repository.DocumentListFilter{Status: status, Page: page, PageSize: pageSize}
	switch actor.Role {
	case session.RoleSupplier:
		id := actor.UserID
		filter.SupplierID = &id
	case session.RoleBuilder:
		id := actor.UserID
		filter.BuilderID = &id
	case session.RoleAdmin:
	default:
		return nil, 0, ErrAccessDenied
	}
	return s.quotations.List(ctx, filter)
}

// SetQuotationStatus applies the single direct status write a
// quotation supports (accepted / declined by the builder)
func (s *DocumentService) SetQuotationStatus(ctx context.Context, actor session.Actor, id uuid.UUID, status string) (*models.Quotation, error) {
	quote, err := s.quotations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != quote.BuilderID {
		return nil, ErrAccessDenied
	}
	if status == "" {
		return nil, errors.Wrap(ErrValidation, "status is required")
	}

	quote.Status = status
	if err := s.quotations.Update(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}
