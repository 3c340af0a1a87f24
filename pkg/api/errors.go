package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veriq-io/veriq/pkg/services"
)

// dbUnavailableDetail is everything a caller learns about an infrastructure
// fault. Driver errors, SQL, and stack traces stay in the logs.
const dbUnavailableDetail = "Database temporarily unavailable. Please retry later."

// writeServiceError maps service-layer errors onto the HTTP error contract.
func writeServiceError(c *gin.Context, err error) {
	var validErr *services.ValidationError
	switch {
	case errors.As(err, &validErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: validErr.Error()})
	case errors.Is(err, services.ErrInvalidSessionID):
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Invalid session_id format"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Unknown session_id"})
	case errors.Is(err, services.ErrNotReady):
		c.JSON(http.StatusConflict, ErrorResponse{Detail: "Result not ready"})
	case errors.Is(err, services.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: dbUnavailableDetail})
	default:
		// Unexpected error
		slog.Error("Unexpected service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error"})
	}
}
