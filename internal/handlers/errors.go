package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/curalink/curalink/internal/models"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// writeServiceError maps service errors onto the JSON error envelope.
// Unrecognized errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var forbidden *models.ForbiddenError

	switch {
	case errors.Is(err, models.ErrSessionExchange):
		pkghttp.WriteInternalError(w, "session processing failed")
	case errors.As(err, &forbidden):
		pkghttp.WriteForbidden(w, forbidden.Error())
	case errors.Is(err, models.ErrNotForumMember):
		pkghttp.WriteForbidden(w, "You must join this forum group first")
	case errors.Is(err, models.ErrSpecialtyMismatch):
		pkghttp.WriteForbidden(w, "Your specialties do not match this forum's category")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Access denied")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "not authenticated")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrAlreadyReviewed):
		pkghttp.WriteConflict(w, "Appointment already reviewed")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrInvalidRole):
		pkghttp.WriteBadRequest(w, "Invalid role")
	case errors.Is(err, models.ErrUnsupportedItemType):
		pkghttp.WriteBadRequest(w, "Unsupported item type")
	case errors.Is(err, models.ErrAppointmentNotCompleted):
		pkghttp.WriteBadRequest(w, "Can only review completed appointments")
	case errors.Is(err, models.ErrChatRoomClosed):
		pkghttp.WriteBadRequest(w, "Chat room is closed")
	case errors.Is(err, models.ErrAdvisorUnavailable):
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Treatment advisor is unavailable")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	default:
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
