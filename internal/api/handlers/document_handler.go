package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/ujenzipro/internal/services"
)

// DocumentHandler handles the marketplace document HTTP requests
type DocumentHandler struct {
	documentService *services.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func listParams(c *gin.Context) (status string, page, pageSize int) {
	status = c.Query("status")
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return status, page, pageSize
}

// PurchaseOrderRequest represents a new purchase order payload
type PurchaseOrderRequest struct {
	SupplierID      uuid.UUID       `json:"supplier_id" binding:"required"`
	ProjectID       *uuid.UUID      `json:"project_id"`
	Items           json.RawMessage `json:"items" binding:"required"`
	TotalAmountKsh  int64           `json:"total_amount_ksh"`
	DeliveryAddress string          `json:"delivery_address" binding:"required"`
	PaymentNotes    string          `json:"payment_notes"`
	Notes           string          `json:"notes"`
}

// HandleCreatePurchaseOrder creates a purchase order
func (h *DocumentHandler) HandleCreatePurchaseOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req PurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	order, err := h.documentService.CreatePurchaseOrder(c.Request.Context(), actor, services.PurchaseOrderInput{
		SupplierID:      req.SupplierID,
		ProjectID:       req.ProjectID,
		Items:           req.Items,
		TotalAmountKsh:  req.TotalAmountKsh,
		DeliveryAddress: req.DeliveryAddress,
		PaymentNotes:    req.PaymentNotes,
		Notes:           req.Notes,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// HandleGetPurchaseOrder returns one purchase order
func (h *DocumentHandler) HandleGetPurchaseOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	order, err := h.documentService.GetPurchaseOrder(c.Request.Context(), actor, id)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleListPurchaseOrders lists purchase orders for the caller
func (h *DocumentHandler) HandleListPurchaseOrders(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	status, page, pageSize := listParams(c)
	orders, total, err := h.documentService.ListPurchaseOrders(c.Request.Context(), actor, status, page, pageSize)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_orders": orders, "total": total, "page": page, "page_size": pageSize})
}

// DocumentStatusRequest carries a direct status write
type DocumentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// HandleSetPurchaseOrderStatus applies a direct status write
func (h *DocumentHandler) HandleSetPurchaseOrderStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req DocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	order, err := h.documentService.SetPurchaseOrderStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// DeliveryNoteRequest represents a new delivery note payload
type DeliveryNoteRequest struct {
	PurchaseOrderID *uuid.UUID      `json:"purchase_order_id"`
	DeliveryID      *uuid.UUID      `json:"delivery_id"`
	Items           json.RawMessage `json:"items" binding:"required"`
	DispatchDate    *time.Time      `json:"dispatch_date"`
	Notes           string          `json:"notes"`
}

// HandleCreateDeliveryNote creates a delivery note
func (h *DocumentHandler) HandleCreateDeliveryNote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req DeliveryNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	note, err := h.documentService.CreateDeliveryNote(c.Request.Context(), actor, services.DeliveryNoteInput{
		PurchaseOrderID: req.PurchaseOrderID,
		DeliveryID:      req.DeliveryID,
		Items:           req.Items,
		DispatchDate:    req.DispatchDate,
		Notes:           req.Notes,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

// HandleListDeliveryNotes lists delivery notes for the caller
func (h *DocumentHandler) HandleListDeliveryNotes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	status, page, pageSize := listParams(c)
	notes, total, err := h.documentService.ListDeliveryNotes(c.Request.Context(), actor, status, page, pageSize)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"delivery_notes": notes, "total": total, "page": page, "page_size": pageSize})
}

// GoodsReceivedNoteRequest represents a new GRN payload
type GoodsReceivedNoteRequest struct {
	DeliveryNoteID *uuid.UUID      `json:"delivery_note_id"`
	Items          json.RawMessage `json:"items" binding:"required"`
	ReceivedDate   *time.Time      `json:"received_date"`
	Discrepancies  string          `json:"discrepancies"`
	Notes          string          `json:"notes"`
}

// HandleCreateGoodsReceivedNote records a goods received note
func (h *DocumentHandler) HandleCreateGoodsReceivedNote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req GoodsReceivedNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	grn, err := h.documentService.CreateGoodsReceivedNote(c.Request.Context(), actor, services.GoodsReceivedNoteInput{
		DeliveryNoteID: req.DeliveryNoteID,
		Items:          req.Items,
		ReceivedDate:   req.ReceivedDate,
		Discrepancies:  req.Discrepancies,
		Notes:          req.Notes,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, grn)
}

// HandleListGoodsReceivedNotes lists GRNs for the caller
func (h *DocumentHandler) HandleListGoodsReceivedNotes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	status, page, pageSize := listParams(c)
	grns, total, err := h.documentService.ListGoodsReceivedNotes(c.Request.Context(), actor, status, page, pageSize)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goods_received_notes": grns, "total": total, "page": page, "page_size": pageSize})
}

// QuotationRequest represents a new quotation payload
type QuotationRequest struct {
	BuilderID      uuid.UUID  `json:"builder_id" binding:"required"`
	ProjectID      *uuid.UUID `json:"project_id"`
	MaterialType   string     `json:"material_type" binding:"required"`
	Quantity       int        `json:"quantity" binding:"required"`
	UnitPriceKsh   int64      `json:"unit_price_ksh"`
	TotalAmountKsh int64      `json:"total_amount_ksh"`
	ValidUntil     *time.Time `json:"valid_until"`
	Notes          string     `json:"notes"`
}

// HandleCreateQuotation creates a quotation
func (h *DocumentHandler) HandleCreateQuotation(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req QuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	quote, err := h.documentService.CreateQuotation(c.Request.Context(), actor, services.QuotationInput{
		BuilderID:      req.BuilderID,
		ProjectID:      req.ProjectID,
		MaterialType:   req.MaterialType,
		Quantity:       req.Quantity,
		UnitPriceKsh:   req.UnitPriceKsh,
		TotalAmountKsh: req.TotalAmountKsh,
		ValidUntil:     req.ValidUntil,
		Notes:          req.Notes,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quote)
}

// HandleListQuotations lists quotations for the caller
func (h *DocumentHandler) HandleListQuotations(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	status, page, pageSize := listParams(c)
	quotes, total, err := h.documentService.ListQuotations(c.Request.Context(), actor, status, page, pageSize)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quotations": quotes, "total": total, "page": page, "page_size": pageSize})
}

// HandleSetQuotationStatus applies a direct status write
func (h *DocumentHandler) HandleSetQuotationStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req DocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	quote, err := h.documentService.SetQuotationStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// RegisterRoutes registers the handler's routes
func (h *DocumentHandler) RegisterRoutes(group *gin.RouterGroup) {
	purchaseOrders := group.Group("/purchase-orders")
	{
		purchaseOrders.POST("", h.HandleCreatePurchaseOrder)
		purchaseOrders.GET("", h.HandleListPurchaseOrders)
		purchaseOrders.GET("/:id", h.HandleGetPurchaseOrder)
		purchaseOrders.PATCH("/:id/status", h.HandleSetPurchaseOrderStatus)
	}

	deliveryNotes := group.Group("/delivery-notes")
	{
		deliveryNotes.POST("", h.HandleCreateDeliveryNote)
		deliveryNotes.GET("", h.HandleListDeliveryNotes)
	}

	goodsReceived := group.Group("/goods-received-notes")
	{
		goodsReceived.POST("", h.HandleCreateGoodsReceivedNote)
		goodsReceived.GET("", h.HandleListGoodsReceivedNotes)
	}

	quotations := group.Group("/quotations")
	{
		quotations.POST("", h.HandleCreateQuotation)
		quotations.GET("", h.HandleListQuotations)
		quotations.PATCH("/:id/status", h.HandleSetQuotationStatus)
	}
}
