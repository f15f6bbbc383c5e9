package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
)

func TestAppointmentHandler_Request(t *testing.T) {
	svc := &MockAppointmentService{
		RequestFunc: func(ctx context.Context, patient *models.User, in services.AppointmentInput) (*models.Appointment, error) {
			return &models.Appointment{
				ID:           "a1",
				PatientID:    patient.ID,
				ResearcherID: in.ResearcherID,
				Condition:    in.Condition,
				Status:       models.AppointmentPending,
			}, nil
		},
	}
	h := NewAppointmentHandler(svc, &MockNotificationService{}, testLogger())

	req := WithUser(NewTestRequest(t, http.MethodPost, "/api/appointments/request", AppointmentRequest{
		ResearcherID: "researcher-1",
		Condition:    "asthma",
	}), testPatient())
	w := httptest.NewRecorder()
	h.RequestAppointment(w, req)

	var resp models.Appointment
	AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, models.AppointmentPending, resp.Status)
	assert.Equal(t, "researcher-1", resp.ResearcherID)
}

func TestAppointmentHandler_UpdateStatus(t *testing.T) {
	var gotStatus string
	svc := &MockAppointmentService{
		UpdateStatusFunc: func(ctx context.Context, researcher *models.User, appointmentID, status string) (*models.Appointment, error) {
			if appointmentID != "a1" {
				return nil, models.ErrNotFound
			}
			gotStatus = status
			return &models.Appointment{ID: appointmentID, Status: status}, nil
		},
	}
	h := NewAppointmentHandler(svc, &MockNotificationService{}, testLogger())

	w := httptest.NewRecorder()
	h.UpdateStatus(models.AppointmentAccepted)(w, WithURLParam(WithUser(httptest.NewRequest(http.MethodPost, "/", nil), testResearcher()), "id", "a1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AppointmentAccepted, gotStatus)

	w = httptest.NewRecorder()
	h.UpdateStatus(models.AppointmentCompleted)(w, WithURLParam(WithUser(httptest.NewRequest(http.MethodPost, "/", nil), testResearcher()), "id", "someone-elses"))
	AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

func TestAppointmentHandler_CreateReview(t *testing.T) {
	tests := []struct {
		name       string
		body       ReviewRequest
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       ReviewRequest{AppointmentID: "a1", Rating: 5, Comment: "great"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "rating out of range",
			body:       ReviewRequest{AppointmentID: "a1", Rating: 6},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_failed",
		},
		{
			name:       "not completed",
			body:       ReviewRequest{AppointmentID: "a1", Rating: 4},
			serviceErr: models.ErrAppointmentNotCompleted,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "already reviewed",
			body:       ReviewRequest{AppointmentID: "a1", Rating: 4},
			serviceErr: models.ErrAlreadyReviewed,
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "not the patient's appointment",
			body:       ReviewRequest{AppointmentID: "a2", Rating: 4},
			serviceErr: models.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAppointmentService{
				CreateReviewFunc: func(ctx context.Context, patient *models.User, in services.ReviewInput) (*models.Review, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &models.Review{ID: "rv1", AppointmentID: in.AppointmentID, Rating: in.Rating}, nil
				},
			}
			h := NewAppointmentHandler(svc, &MockNotificationService{}, testLogger())

			req := WithUser(NewTestRequest(t, http.MethodPost, "/api/reviews", tt.body), testPatient())
			w := httptest.NewRecorder()
			h.CreateReview(w, req)

			if tt.wantCode != "" {
				AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
				return
			}
			var resp models.Review
			AssertJSONResponse(t, w, tt.wantStatus, &resp)
			assert.Equal(t, 5, resp.Rating)
		})
	}
}

func TestAppointmentHandler_ResearcherReviews(t *testing.T) {
	svc := &MockAppointmentService{
		ResearcherReviewsFunc: func(ctx context.Context, researcherID string) (*services.ResearcherReviews, error) {
			return &services.ResearcherReviews{AverageRating: 0, TotalReviews: 0}, nil
		},
	}
	h := NewAppointmentHandler(svc, &MockNotificationService{}, testLogger())

	w := httptest.NewRecorder()
	h.ResearcherReviews(w, WithURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "r1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reviews":[],"average_rating":0,"total_reviews":0}`, w.Body.String())
}

func TestAppointmentHandler_Notifications(t *testing.T) {
	var marked string
	notes := &MockNotificationService{
		UnreadCountFunc: func(ctx context.Context, userID string) (int, error) {
			return 3, nil
		},
		MarkReadFunc: func(ctx context.Context, userID, notificationID string) error {
			marked = notificationID
			return nil
		},
	}
	h := NewAppointmentHandler(&MockAppointmentService{}, notes, testLogger())

	w := httptest.NewRecorder()
	h.UnreadCount(w, WithUser(httptest.NewRequest(http.MethodGet, "/", nil), testResearcher()))
	var count UnreadCountResponse
	AssertJSONResponse(t, w, http.StatusOK, &count)
	assert.Equal(t, 3, count.Count)

	w = httptest.NewRecorder()
	h.MarkNotificationRead(w, WithUser(NewTestRequest(t, http.MethodPost, "/", MarkReadRequest{NotificationID: "n1"}), testResearcher()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "n1", marked)

	w = httptest.NewRecorder()
	h.ListNotifications(w, WithUser(httptest.NewRequest(http.MethodGet, "/", nil), testResearcher()))
	assert.JSONEq(t, "[]", w.Body.String())
}
