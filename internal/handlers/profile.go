package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// ProfileServiceInterface defines the interface for profile business logic
type ProfileServiceInterface interface {
	GetPatientProfile(ctx context.Context, userID string) (*models.PatientProfile, error)
	SavePatientProfile(ctx context.Context, user *models.User, in services.PatientProfileInput) (*models.PatientProfile, error)
	GetResearcherProfile(ctx context.Context, userID string) (*models.ResearcherProfile, error)
	SaveResearcherProfile(ctx context.Context, user *models.User, in services.ResearcherProfileInput) (*models.ResearcherProfile, error)
}

// ProfileHandler serves patient and researcher profiles
type ProfileHandler struct {
	service ProfileServiceInterface
	logger  *slog.Logger
}

func NewProfileHandler(service ProfileServiceInterface, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// PatientProfileRequest is a partial update; omitted fields keep their value
type PatientProfileRequest struct {
	Conditions *[]string `json:"conditions" validate:"omitempty,max=50,dive,max=200"`
	Location   *string   `json:"location" validate:"omitempty,max=200"`
	Interests  *[]string `json:"interests" validate:"omitempty,max=50,dive,max=200"`
}

// ResearcherProfileRequest is a partial update. The service requires name,
// age, years_experience and sector when creating.
type ResearcherProfileRequest struct {
	Name                 *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Specialties          *[]string `json:"specialties" validate:"omitempty,max=50,dive,max=200"`
	ResearchInterests    *[]string `json:"research_interests" validate:"omitempty,max=50,dive,max=200"`
	Age                  *int      `json:"age" validate:"omitempty,gte=18,lte=120"`
	YearsExperience      *int      `json:"years_experience" validate:"omitempty,gte=0,lte=80"`
	Sector               *string   `json:"sector" validate:"omitempty,min=1,max=100"`
	AvailableHours       *string   `json:"available_hours" validate:"omitempty,max=200"`
	ORCID                *string   `json:"orcid" validate:"omitempty,max=100"`
	ResearchGate         *string   `json:"researchgate" validate:"omitempty,max=300"`
	AvailableForMeetings *bool     `json:"available_for_meetings"`
	Bio                  *string   `json:"bio" validate:"omitempty,max=5000"`
}

// GetPatientProfile returns the caller's patient profile
// @Router /api/patient/profile [get]
func (h *ProfileHandler) GetPatientProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	profile, err := h.service.GetPatientProfile(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// SavePatientProfile creates or updates the caller's patient profile
// @Router /api/patient/profile [post]
func (h *ProfileHandler) SavePatientProfile(w http.ResponseWriter, r *http.Request) {
	var req PatientProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.service.SavePatientProfile(r.Context(), auth.GetUserFromContext(r), services.PatientProfileInput{
		Conditions: req.Conditions,
		Location:   req.Location,
		Interests:  req.Interests,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// GetResearcherProfile returns the caller's researcher profile
// @Router /api/researcher/profile [get]
func (h *ProfileHandler) GetResearcherProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	profile, err := h.service.GetResearcherProfile(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// SaveResearcherProfile creates or updates the caller's researcher profile
// together with their directory entry
// @Router /api/researcher/profile [post]
func (h *ProfileHandler) SaveResearcherProfile(w http.ResponseWriter, r *http.Request) {
	var req ResearcherProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.service.SaveResearcherProfile(r.Context(), auth.GetUserFromContext(r), services.ResearcherProfileInput{
		Name:                 req.Name,
		Specialties:          req.Specialties,
		ResearchInterests:    req.ResearchInterests,
		Age:                  req.Age,
		YearsExperience:      req.YearsExperience,
		Sector:               req.Sector,
		AvailableHours:       req.AvailableHours,
		ORCID:                req.ORCID,
		ResearchGate:         req.ResearchGate,
		AvailableForMeetings: req.AvailableForMeetings,
		Bio:                  req.Bio,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, profile)
}
