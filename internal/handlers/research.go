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

// ResearchServiceInterface defines trial, publication and directory listings
type ResearchServiceInterface interface {
	CreateTrial(ctx context.Context, user *models.User, in services.TrialInput) (*models.ClinicalTrial, error)
	ListOwnTrials(ctx context.Context, userID string) ([]*models.ClinicalTrial, error)
	ListTrials(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error)
	ListPublications(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error)
	ListExperts(ctx context.Context, f models.ExpertFilter) ([]*services.ExpertListing, error)
	ListCollaborators(ctx context.Context, user *models.User, specialty string) ([]*models.ResearcherProfile, error)
}

// ResearchHandler serves trials, publications, experts and collaborators
type ResearchHandler struct {
	service ResearchServiceInterface
	logger  *slog.Logger
}

func NewResearchHandler(service ResearchServiceInterface, logger *slog.Logger) *ResearchHandler {
	return &ResearchHandler{service: service, logger: logger}
}

// CreateTrialRequest represents a researcher-created clinical trial
type CreateTrialRequest struct {
	Title        string   `json:"title" validate:"required,min=1,max=500"`
	Description  string   `json:"description" validate:"required,max=10000"`
	Phase        string   `json:"phase" validate:"omitempty,max=50"`
	Status       string   `json:"status" validate:"omitempty,max=50"`
	Location     string   `json:"location" validate:"omitempty,max=200"`
	Eligibility  string   `json:"eligibility" validate:"omitempty,max=5000"`
	DiseaseAreas []string `json:"disease_areas" validate:"omitempty,max=20,dive,max=200"`
	Enrollment   *int     `json:"enrollment" validate:"omitempty,gte=0"`
	ContactEmail *string  `json:"contact_email" validate:"omitempty,email"`
}

// CreateTrial stores a trial created by the researcher
// @Router /api/researcher/trial [post]
func (h *ResearchHandler) CreateTrial(w http.ResponseWriter, r *http.Request) {
	var req CreateTrialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	trial, err := h.service.CreateTrial(r.Context(), auth.GetUserFromContext(r), services.TrialInput{
		Title:        req.Title,
		Description:  req.Description,
		Phase:        req.Phase,
		Status:       req.Status,
		Location:     req.Location,
		Eligibility:  req.Eligibility,
		DiseaseAreas: req.DiseaseAreas,
		Enrollment:   req.Enrollment,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, trial)
}

// ListOwnTrials returns the researcher's own trials
// @Router /api/researcher/trials [get]
func (h *ResearchHandler) ListOwnTrials(w http.ResponseWriter, r *http.Request) {
	trials, err := h.service.ListOwnTrials(r.Context(), auth.GetUserFromContext(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(trials))
}

// ListTrials filters stored trials by condition, location and status
// @Router /api/patient/clinical-trials [get]
func (h *ResearchHandler) ListTrials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trials, err := h.service.ListTrials(r.Context(), models.TrialFilter{
		Condition: q.Get("condition"),
		Location:  q.Get("location"),
		Status:    q.Get("status"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(trials))
}

// ListPublications filters stored publications by disease area
// @Router /api/patient/publications [get]
func (h *ResearchHandler) ListPublications(w http.ResponseWriter, r *http.Request) {
	pubs, err := h.service.ListPublications(r.Context(), models.PublicationFilter{
		DiseaseArea: r.URL.Query().Get("disease_area"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(pubs))
}

// ListExperts returns the health expert directory
// @Router /api/patient/experts [get]
func (h *ResearchHandler) ListExperts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	experts, err := h.service.ListExperts(r.Context(), models.ExpertFilter{
		Specialty: q.Get("specialty"),
		Location:  q.Get("location"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(experts))
}

// ListCollaborators returns other researchers
// @Router /api/researcher/collaborators [get]
func (h *ResearchHandler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListCollaborators(r.Context(), auth.GetUserFromContext(r), r.URL.Query().Get("specialty"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(profiles))
}
