package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/internal/models"
	"example.com/ujenzipro/internal/services"
	"example.com/ujenzipro/internal/session"
	"example.com/ujenzipro/internal/tracing"
)

// DeliveryHandler handles delivery-related HTTP requests
type DeliveryHandler struct {
	deliveryService *services.DeliveryService
	tracer          tracing.Tracer
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryService *services.DeliveryService, tracer tracing.Tracer) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		tracer:          tracer,
	}
}

// actorFrom pulls the authenticated actor installed by the auth
// middleware. Missing actor means the route was wired without it.
func actorFrom(c *gin.Context) (session.Actor, bool) {
	actor, ok := session.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized", Code: "UNAUTHORIZED"})
	}
	return actor, ok
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteValidationError(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// CreateDeliveryRequest represents an incoming delivery registration
type CreateDeliveryRequest struct {
	BuilderID         *uuid.UUID `json:"builder_id"`
	ProjectID         *uuid.UUID `json:"project_id"`
	MaterialType      string     `json:"material_type" binding:"required"`
	Quantity          int        `json:"quantity" binding:"required"`
	WeightKg          float64    `json:"weight_kg"`
	PickupAddress     string     `json:"pickup_address" binding:"required"`
	DeliveryAddress   string     `json:"delivery_address" binding:"required"`
	DriverName        *string    `json:"driver_name"`
	DriverPhone       *string    `json:"driver_phone"`
	VehicleDetails    *string    `json:"vehicle_details"`
	Notes             string     `json:"notes"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

// HandleCreateDelivery registers a new delivery
func (h *DeliveryHandler) HandleCreateDelivery(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-delivery")
	defer h.tracer.EndTransaction(txn)

	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		WriteValidationError(c, err.Error())
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "material_type", req.MaterialType)

	delivery, err := h.deliveryService.CreateDelivery(c.Request.Context(), actor, services.CreateDeliveryInput{
		BuilderID:         req.BuilderID,
		ProjectID:         req.ProjectID,
		MaterialType:      req.MaterialType,
		Quantity:          req.Quantity,
		WeightKg:          req.WeightKg,
		PickupAddress:     req.PickupAddress,
		DeliveryAddress:   req.DeliveryAddress,
		DriverName:        req.DriverName,
		DriverPhone:       req.DriverPhone,
		VehicleDetails:    req.VehicleDetails,
		Notes:             req.Notes,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		h.tracer.RecordError(txn, err)
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, delivery)
}

// HandleGetDelivery returns one delivery
func (h *DeliveryHandler) HandleGetDelivery(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	delivery, err := h.deliveryService.GetDelivery(c.Request.Context(), actor, id)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, delivery)
}

// HandleListDeliveries lists deliveries scoped to the caller's role
func (h *DeliveryHandler) HandleListDeliveries(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	input := services.ListDeliveriesInput{
		Status: models.DeliveryStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	input.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	input.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if raw := c.Query("project_id"); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			WriteValidationError(c, "invalid project_id")
			return
		}
		input.ProjectID = &projectID
	}

	deliveries, total, err := h.deliveryService.ListDeliveries(c.Request.Context(), actor, input)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deliveries": deliveries,
		"total":      total,
		"page":       input.Page,
		"page_size":  input.PageSize,
	})
}

// SetStatusRequest represents a status transition request
type SetStatusRequest struct {
	Status   string  `json:"status" binding:"required"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

// HandleSetStatus moves a delivery along its lifecycle
func (h *DeliveryHandler) HandleSetStatus(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-set-delivery-status")
	defer h.tracer.EndTransaction(txn)

	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "delivery_id", id.String())
	h.tracer.AddAttribute(txn, "status", req.Status)

	delivery, err := h.deliveryService.SetStatus(c.Request.Context(), actor, id, models.DeliveryStatus(req.Status), req.Location, req.Notes)
	if err != nil {
		h.tracer.RecordError(txn, err)
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, delivery)
}

// WaypointRequest represents a progress note without a status change
type WaypointRequest struct {
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

// HandleAppendWaypoint appends a ledger entry without moving status
func (h *DeliveryHandler) HandleAppendWaypoint(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req WaypointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	update, err := h.deliveryService.AppendWaypoint(c.Request.Context(), actor, id, req.Location, req.Notes)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, update)
}

// HandleListUpdates returns a delivery's tracking history, newest first
func (h *DeliveryHandler) HandleListUpdates(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	updates, err := h.deliveryService.ListUpdates(c.Request.Context(), actor, id)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": updates})
}

// HandleStream pushes delivery change events to the client over SSE.
// Events carry no row data; the client refetches what changed.
func (h *DeliveryHandler) HandleStream(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}

	var deliveryID *uuid.UUID
	if raw := c.Query("delivery_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			WriteValidationError(c, "invalid delivery_id")
			return
		}
		deliveryID = &id
	}

	sub, err := h.deliveryService.Subscribe(c.Request.Context(), deliveryID)
	if err != nil {
		WriteError(c, err)
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case event, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent("change", event)
			return true
		}
	})
}

// RegisterRoutes registers the handler's routes
func (h *DeliveryHandler) RegisterRoutes(group *gin.RouterGroup) {
	deliveries := group.Group("/deliveries")
	{
		deliveries.POST("", h.HandleCreateDelivery)
		deliveries.GET("", h.HandleListDeliveries)
		deliveries.GET("/stream", h.HandleStream)
		deliveries.GET("/:id", h.HandleGetDelivery)
		deliveries.PATCH("/:id/status", h.HandleSetStatus)
		deliveries.POST("/:id/updates", h.HandleAppendWaypoint)
		deliveries.GET("/:id/updates", h.HandleListUpdates)
	}
}
