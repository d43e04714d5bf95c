package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finstack/fisledger/internal/apperrors"
)

// respondError maps the error taxonomy onto HTTP statuses: validation 422,
// missing resources 404, duplicate/conflict 409, transient 503, everything
// else 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate), errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrTransient):
		status = http.StatusServiceUnavailable
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code >= 400 && appErr.Code < 600 {
			status = appErr.Code
		}
	}

	if status >= 500 {
		logger.Error("Request failed", slog.Int("status", status), slog.String("error", err.Error()))
		// Internal detail stays in the log.
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	logger.Warn("Request rejected", slog.Int("status", status), slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}
