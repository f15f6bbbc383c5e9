package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/textclean"
)

// AppointmentRepository defines appointment storage
type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) (*models.Appointment, error)
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]*models.Appointment, error)
	UpdateStatus(ctx context.Context, id, researcherID, status string) (*models.Appointment, error)
}

// ReviewRepository defines review storage and aggregation
type ReviewRepository interface {
	Create(ctx context.Context, rv *models.Review) error
	ListByResearcher(ctx context.Context, researcherID string, limit int) ([]*models.Review, error)
	Summaries(ctx context.Context, researcherIDs []string) (map[string]models.RatingSummary, error)
}

// ChatRoomOpener opens the conversation of an accepted appointment
type ChatRoomOpener interface {
	CreateRoom(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error)
}

// Notifier creates in-app notifications
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType, title, content string, link *string) error
}

const (
	appointmentsLimit = 100
	reviewsLimit      = 100
)

type AppointmentInput struct {
	ResearcherID      string
	Condition         string
	Location          string
	DurationSuffering string
}

type ReviewInput struct {
	AppointmentID string
	Rating        int
	Comment       string
}

// ResearcherReviews lists a researcher's reviews with the rounded average
type ResearcherReviews struct {
	Reviews       []*models.Review `json:"reviews"`
	AverageRating float64          `json:"average_rating"`
	TotalReviews  int              `json:"total_reviews"`
}

// AppointmentService handles appointment requests and reviews
type AppointmentService struct {
	appointments AppointmentRepository
	reviews      ReviewRepository
	profiles     ProfileRepository
	rooms        ChatRoomOpener
	notifier     Notifier
	logger       *slog.Logger
}

func NewAppointmentService(appointments AppointmentRepository, reviews ReviewRepository, profiles ProfileRepository, rooms ChatRoomOpener, notifier Notifier, logger *slog.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		reviews:      reviews,
		profiles:     profiles,
		rooms:        rooms,
		notifier:     notifier,
		logger:       logger,
	}
}

// Request creates a pending appointment with a researcher and notifies them
func (s *AppointmentService) Request(ctx context.Context, patient *models.User, in AppointmentInput) (*models.Appointment, error) {
	if _, err := s.profiles.GetResearcherProfile(ctx, in.ResearcherID); err != nil {
		return nil, err
	}

	appt, err := s.appointments.Create(ctx, &models.Appointment{
		PatientID:         patient.ID,
		PatientName:       patient.Name,
		ResearcherID:      in.ResearcherID,
		Condition:         strings.TrimSpace(in.Condition),
		Location:          strings.TrimSpace(in.Location),
		DurationSuffering: strings.TrimSpace(in.DurationSuffering),
		Status:            models.AppointmentPending,
	})
	if err != nil {
		s.logger.Error("failed to create appointment",
			slog.String("patient_id", patient.ID),
			slog.Any("error", err))
		return nil, err
	}

	s.notify(ctx, appt.ResearcherID, models.NotificationAppointmentRequest,
		"New appointment request",
		fmt.Sprintf("%s requested an appointment about %s", patient.Name, appt.Condition),
		"/appointments")

	return appt, nil
}

// List returns the appointments the user takes part in, as patient or researcher
func (s *AppointmentService) List(ctx context.Context, user *models.User) ([]*models.Appointment, error) {
	return s.appointments.ListForUser(ctx, user.ID, appointmentsLimit)
}

// UpdateStatus moves an appointment owned by researcher to status.
// Appointments of other researchers are reported as models.ErrNotFound.
// Accepting opens the chat room between patient and researcher; the
// appointment is still accepted when the room cannot be opened.
func (s *AppointmentService) UpdateStatus(ctx context.Context, researcher *models.User, appointmentID, status string) (*models.Appointment, error) {
	switch status {
	case models.AppointmentAccepted, models.AppointmentRejected, models.AppointmentCompleted:
	default:
		return nil, models.ErrBadRequest
	}

	appt, err := s.appointments.UpdateStatus(ctx, appointmentID, researcher.ID, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed",
		slog.String("appointment_id", appt.ID),
		slog.String("status", status))

	if status == models.AppointmentAccepted {
		link := "/appointments"
		room, err := s.rooms.CreateRoom(ctx, &models.ChatRoom{
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			ResearcherID:  appt.ResearcherID,
		})
		if err != nil {
			s.logger.Error("failed to open chat room",
				slog.String("appointment_id", appt.ID),
				slog.Any("error", err))
		} else {
			appt.ChatRoomID = &room.ID
			link = "/chat/" + room.ID
		}

		s.notify(ctx, appt.PatientID, models.NotificationAppointmentAccepted,
			"Appointment accepted",
			fmt.Sprintf("%s accepted your appointment request", researcher.Name),
			link)
	}
	return appt, nil
}

// CreateReview records the patient's review of a completed appointment
func (s *AppointmentService) CreateReview(ctx context.Context, patient *models.User, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", models.ErrBadRequest)
	}

	appt, err := s.appointments.GetByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patient.ID {
		return nil, models.ErrForbidden
	}
	if appt.Status != models.AppointmentCompleted {
		return nil, models.ErrAppointmentNotCompleted
	}

	review := &models.Review{
		AppointmentID: appt.ID,
		PatientID:     patient.ID,
		ResearcherID:  appt.ResearcherID,
		Rating:        in.Rating,
		Comment:       textclean.StripMarkup(in.Comment),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrAlreadyReviewed
		}
		return nil, err
	}

	s.notify(ctx, appt.ResearcherID, models.NotificationReviewReceived,
		"New review",
		fmt.Sprintf("You received a %d-star review", in.Rating),
		"/appointments")

	return review, nil
}

func (s *AppointmentService) ResearcherReviews(ctx context.Context, researcherID string) (*ResearcherReviews, error) {
	reviews, err := s.reviews.ListByResearcher(ctx, researcherID, reviewsLimit)
	if err != nil {
		return nil, err
	}

	summaries, err := s.reviews.Summaries(ctx, []string{researcherID})
	if err != nil {
		return nil, err
	}
	summary := summaries[researcherID]

	return &ResearcherReviews{
		Reviews:       reviews,
		AverageRating: RoundRating(summary.AverageRating),
		TotalReviews:  summary.TotalReviews,
	}, nil
}

// notify never fails the calling operation
func (s *AppointmentService) notify(ctx context.Context, userID, notificationType, title, content, link string) {
	if err := s.notifier.Notify(ctx, userID, notificationType, title, content, &link); err != nil {
		s.logger.Warn("notification not delivered",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}
