package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/services"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WriteError maps service errors onto HTTP responses
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Resource not found", Code: "NOT_FOUND"})
	case errors.Is(err, repository.ErrStatusConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Delivery status changed concurrently, retry with the current status", Code: "STATUS_CONFLICT"})
	case errors.Is(err, repository.ErrDuplicateKey):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Resource already exists", Code: "CONFLICT"})
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Forbidden", Code: "FORBIDDEN"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error(), Code: "INVALID_TRANSITION"})
	case errors.Is(err, services.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error(), Code: "UNKNOWN_STATUS"})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error(), Code: "VALIDATION_ERROR"})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Code: "INTERNAL_ERROR"})
	}
}

// WriteValidationError writes a 400 with a custom message
func WriteValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message, Code: "VALIDATION_ERROR"})
}
