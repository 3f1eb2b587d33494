package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/ujenzipro/internal/services"
)

// ProviderHandler handles delivery provider HTTP requests
type ProviderHandler struct {
	providerService *services.ProviderService
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(providerService *services.ProviderService) *ProviderHandler {
	return &ProviderHandler{providerService: providerService}
}

// ProviderRequest represents a provider registration payload
type ProviderRequest struct {
	CompanyName  string          `json:"company_name" binding:"required"`
	Phone        string          `json:"phone" binding:"required"`
	Email        string          `json:"email"`
	Address      string          `json:"address"`
	VehicleTypes json.RawMessage `json:"vehicle_types"`
	CapacityKg   float64         `json:"capacity_kg"`
	ServiceAreas json.RawMessage `json:"service_areas"`
}

// HandleRegister registers the calling user as a delivery provider
func (h *ProviderHandler) HandleRegister(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req ProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	provider, err := h.providerService.Register(c.Request.Context(), actor, services.ProviderInput{
		CompanyName:  req.CompanyName,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		VehicleTypes: req.VehicleTypes,
		CapacityKg:   req.CapacityKg,
		ServiceAreas: req.ServiceAreas,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, provider)
}

// HandleGetProvider returns one provider registration
func (h *ProviderHandler) HandleGetProvider(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	provider, err := h.providerService.GetProvider(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, provider)
}

// HandleListProviders lists providers
func (h *ProviderHandler) HandleListProviders(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	providers, err := h.providerService.ListProviders(c.Request.Context(), actor)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// VerifyProviderRequest carries the verification flag
type VerifyProviderRequest struct {
	Verified bool `json:"verified"`
}

// HandleSetVerified marks a provider as verified. Admin only.
func (h *ProviderHandler) HandleSetVerified(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req VerifyProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	provider, err := h.providerService.SetVerified(c.Request.Context(), actor, id, req.Verified)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, provider)
}

// RegisterRoutes registers the handler's routes
func (h *ProviderHandler) RegisterRoutes(group *gin.RouterGroup) {
	providers := group.Group("/providers")
	{
		providers.POST("", h.HandleRegister)
		providers.GET("", h.HandleListProviders)
		providers.GET("/:id", h.HandleGetProvider)
		providers.PATCH("/:id/verify", h.HandleSetVerified)
	}
}
