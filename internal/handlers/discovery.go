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

// DiscoveryServiceInterface defines the ranked discovery operations
type DiscoveryServiceInterface interface {
	Search(ctx context.Context, user *models.User, query, location string) (*services.SearchResults, error)
	PatientOverview(ctx context.Context, user *models.User) (*services.Overview, error)
	ResearcherDetails(ctx context.Context, researcherID string) (*services.ResearcherDetails, error)
}

// DiscoveryHandler serves search, the patient overview and researcher details
type DiscoveryHandler struct {
	service DiscoveryServiceInterface
	logger  *slog.Logger
}

func NewDiscoveryHandler(service DiscoveryServiceInterface, logger *slog.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{service: service, logger: logger}
}

// SearchRequest represents the request body for search
type SearchRequest struct {
	Query    string `json:"query" validate:"required,min=1,max=500"`
	Location string `json:"location" validate:"omitempty,max=200"`
}

// Search ranks researchers, trials and publications for the query
// @Router /api/search [post]
func (h *DiscoveryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	results, err := h.service.Search(r.Context(), auth.GetUserFromContext(r), req.Query, req.Location)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SearchResponse{
		Researchers:  rankedExperts(results.Researchers, matchStyle),
		Trials:       rankedTrials(results.Trials, matchStyle),
		Publications: rankedPublications(results.Publications, matchStyle),
	})
}

// PatientOverview returns the personalized dashboard
// @Router /api/patient/overview [get]
func (h *DiscoveryHandler) PatientOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.PatientOverview(r.Context(), auth.GetUserFromContext(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, OverviewResponse{
		TopResearchers:     rankedExperts(overview.TopResearchers, relevanceStyle),
		FeaturedTrials:     rankedTrials(overview.FeaturedTrials, relevanceStyle),
		LatestPublications: rankedPublications(overview.LatestPublications, relevanceStyle),
	})
}

// ResearcherDetails returns a researcher's profile, reviews and work
// @Router /api/researcher/{id}/details [get]
func (h *DiscoveryHandler) ResearcherDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "researcher id is required")
		return
	}

	details, err := h.service.ResearcherDetails(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ResearcherDetailsResponse{
		Profile:             details.Profile,
		Expert:              details.Expert,
		AverageRating:       details.Rating.AverageRating,
		TotalReviews:        details.Rating.TotalReviews,
		Reviews:             nonNil(details.Reviews),
		Trials:              nonNil(details.Trials),
		Publications:        nonNil(details.Publications),
		RelatedTrials:       rankedTrials(details.RelatedTrials, relevanceStyle),
		RelatedPublications: rankedPublications(details.RelatedPublications, relevanceStyle),
	})
}
