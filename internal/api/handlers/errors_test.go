package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/services"
)

func writeErrorResponse(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	WriteError(c, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestWriteErrorDuplicateKey(t *testing.T) {
	code, body := writeErrorResponse(t, errors.Wrap(repository.ErrDuplicateKey, "failed to create provider"))
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "CONFLICT", body.Code)
}

func TestWriteErrorKnownSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"status conflict", repository.ErrStatusConflict, http.StatusConflict},
		{"access denied", services.ErrAccessDenied, http.StatusForbidden},
		{"invalid transition", services.ErrInvalidTransition, http.StatusConflict},
		{"unknown status", services.ErrUnknownStatus, http.StatusBadRequest},
		{"validation", services.ErrValidation, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := writeErrorResponse(t, tc.err)
			require.Equal(t, tc.code, code)
		})
	}
}

func TestWriteErrorUnknownErrorIsInternal(t *testing.T) {
	code, body := writeErrorResponse(t, gorm.ErrInvalidTransaction)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "INTERNAL_ERROR", body.Code)
}
