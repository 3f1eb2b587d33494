package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/ujenzipro/internal/services"
	"example.com/ujenzipro/internal/tracing"
)

// TrackingHandler serves the public tracking lookup. No session is
// required; the tracking number is the only credential.
type TrackingHandler struct {
	deliveryService *services.DeliveryService
	tracer          tracing.Tracer
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(deliveryService *services.DeliveryService, tracer tracing.Tracer) *TrackingHandler {
	return &TrackingHandler{
		deliveryService: deliveryService,
		tracer:          tracer,
	}
}

// TrackResponse is the public view of a delivery and its history
type TrackResponse struct {
	Delivery interface{} `json:"delivery"`
	Updates  interface{} `json:"updates"`
}

// HandleTrack looks a delivery up by tracking number
func (h *TrackingHandler) HandleTrack(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-track-delivery")
	defer h.tracer.EndTransaction(txn)

	number := c.Param("number")
	if number == "" {
		WriteValidationError(c, "tracking number is required")
		return
	}

	h.tracer.AddAttribute(txn, "tracking_number", number)

	delivery, updates, err := h.deliveryService.TrackByNumber(c.Request.Context(), number)
	if err != nil {
		h.tracer.RecordError(txn, err)
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, TrackResponse{Delivery: delivery, Updates: updates})
}

// HandleTrackStream pushes change events for one tracked delivery over
// SSE. The number is resolved to a delivery first so subscribers only
// ever see the fine-grained topic for that delivery.
func (h *TrackingHandler) HandleTrackStream(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		WriteValidationError(c, "tracking number is required")
		return
	}

	delivery, _, err := h.deliveryService.TrackByNumber(c.Request.Context(), number)
	if err != nil {
		WriteError(c, err)
		return
	}

	deliveryID := delivery.ID
	sub, err := h.deliveryService.Subscribe(c.Request.Context(), &deliveryID)
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
func (h *TrackingHandler) RegisterRoutes(group *gin.RouterGroup) {
	track := group.Group("/track")
	{
		track.GET("/:number", h.HandleTrack)
		track.GET("/:number/stream", h.HandleTrackStream)
	}
}
