package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-service/internal/logger"
	"library-service/internal/policy"
	"library-service/internal/services"
)

// respondError maps domain errors to status codes. Unexpected errors are logged and
// hidden from the client.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateActiveBorrow):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrBookUnavailable),
		errors.Is(err, services.ErrInvalidReturnDate),
		errors.Is(err, services.ErrAlreadyReturned),
		errors.Is(err, services.ErrBadImagePayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, policy.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
