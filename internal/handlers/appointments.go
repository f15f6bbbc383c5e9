package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// AppointmentServiceInterface defines appointments and reviews
type AppointmentServiceInterface interface {
	Request(ctx context.Context, patient *models.User, in services.AppointmentInput) (*models.Appointment, error)
	List(ctx context.Context, user *models.User) ([]*models.Appointment, error)
	UpdateStatus(ctx context.Context, researcher *models.User, appointmentID, status string) (*models.Appointment, error)
	CreateReview(ctx context.Context, patient *models.User, in services.ReviewInput) (*models.Review, error)
	ResearcherReviews(ctx context.Context, researcherID string) (*services.ResearcherReviews, error)
}

// NotificationServiceInterface defines in-app notifications
type NotificationServiceInterface interface {
	List(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// AppointmentHandler serves appointments, reviews and notifications
type AppointmentHandler struct {
	appointments  AppointmentServiceInterface
	notifications NotificationServiceInterface
	logger        *slog.Logger
}

func NewAppointmentHandler(appointments AppointmentServiceInterface, notifications NotificationServiceInterface, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointments:  appointments,
		notifications: notifications,
		logger:        logger,
	}
}

type AppointmentRequest struct {
	ResearcherID      string `json:"researcher_id" validate:"required,max=100"`
	Condition         string `json:"condition" validate:"omitempty,max=500"`
	Location          string `json:"location" validate:"omitempty,max=200"`
	DurationSuffering string `json:"duration_suffering" validate:"omitempty,max=200"`
}

type ReviewRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,max=100"`
	Rating        int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment       string `json:"comment" validate:"omitempty,max=5000"`
}

type MarkReadRequest struct {
	NotificationID string `json:"notification_id" validate:"required,max=100"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

// RequestAppointment creates a pending appointment with a researcher
// @Router /api/appointments/request [post]
func (h *AppointmentHandler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	appt, err := h.appointments.Request(r.Context(), auth.GetUserFromContext(r), services.AppointmentInput{
		ResearcherID:      req.ResearcherID,
		Condition:         req.Condition,
		Location:          req.Location,
		DurationSuffering: req.DurationSuffering,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, appt)
}

// ListAppointments returns the caller's appointments for every role held
// @Router /api/appointments [get]
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.List(r.Context(), auth.GetUserFromContext(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(appts))
}

// UpdateStatus returns a handler moving an appointment to status.
// Only the owning researcher may do so; others get 404.
// @Router /api/appointments/{id}/accept [post]
// @Router /api/appointments/{id}/reject [post]
// @Router /api/appointments/{id}/complete [post]
func (h *AppointmentHandler) UpdateStatus(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := h.appointments.UpdateStatus(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id"), status)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, appt)
	}
}

// CreateReview rates a completed appointment
// @Router /api/reviews [post]
func (h *AppointmentHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	review, err := h.appointments.CreateReview(r.Context(), auth.GetUserFromContext(r), services.ReviewInput{
		AppointmentID: req.AppointmentID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, review)
}

// ResearcherReviews returns a researcher's reviews and average rating
// @Router /api/reviews/researcher/{id} [get]
func (h *AppointmentHandler) ResearcherReviews(w http.ResponseWriter, r *http.Request) {
	result, err := h.appointments.ResearcherReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	result.Reviews = nonNil(result.Reviews)
	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// ListNotifications returns the caller's newest notifications
// @Router /api/notifications [get]
func (h *AppointmentHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.List(r.Context(), auth.GetUserFromContext(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(list))
}

// MarkNotificationRead marks one of the caller's notifications read
// @Router /api/notifications/read [post]
func (h *AppointmentHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req MarkReadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), auth.GetUserFromContext(r).ID, req.NotificationID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

// UnreadCount returns how many notifications the caller has not read
// @Router /api/notifications/unread-count [get]
func (h *AppointmentHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context(), auth.GetUserFromContext(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}
