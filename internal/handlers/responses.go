package handlers

import (
	"time"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
)

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Picture   *string       `json:"picture,omitempty"`
	Roles     []models.Role `json:"roles"`
	CreatedAt string        `json:"created_at"`
}

func userModelToResponse(user *models.User) *UserResponse {
	roles := user.Roles
	if roles == nil {
		roles = []models.Role{}
	}
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Picture:   user.Picture,
		Roles:     roles,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

// StatusResponse is the body of operations that only report success
type StatusResponse struct {
	Status string `json:"status"`
}

// rankFields decorates a ranked item. Search results carry match_*,
// overview and details results carry relevance_*.
type rankFields struct {
	MatchScore       *int      `json:"match_score,omitempty"`
	MatchReasons     *[]string `json:"match_reasons,omitempty"`
	RelevanceScore   *int      `json:"relevance_score,omitempty"`
	RelevanceReasons *[]string `json:"relevance_reasons,omitempty"`
	AISummary        *string   `json:"ai_summary,omitempty"`
	AISummarized     *bool     `json:"ai_summarized,omitempty"`
}

type rankStyle int

const (
	matchStyle rankStyle = iota
	relevanceStyle
)

func newRankFields[T any](r services.Ranked[T], style rankStyle) rankFields {
	score := r.Score
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	var f rankFields
	if style == matchStyle {
		f.MatchScore, f.MatchReasons = &score, &reasons
	} else {
		f.RelevanceScore, f.RelevanceReasons = &score, &reasons
	}
	if r.Live {
		summarized := r.AISummarized
		f.AISummary = r.AISummary
		f.AISummarized = &summarized
	}
	return f
}

type RankedTrialResponse struct {
	*models.ClinicalTrial
	rankFields
}

type RankedPublicationResponse struct {
	*models.Publication
	rankFields
}

type RankedExpertResponse struct {
	*services.ExpertListing
	Source string `json:"source"`
	rankFields
}

func rankedTrials(items []services.Ranked[*models.ClinicalTrial], style rankStyle) []RankedTrialResponse {
	out := make([]RankedTrialResponse, 0, len(items))
	for _, r := range items {
		out = append(out, RankedTrialResponse{ClinicalTrial: r.Item, rankFields: newRankFields(r, style)})
	}
	return out
}

func rankedPublications(items []services.Ranked[*models.Publication], style rankStyle) []RankedPublicationResponse {
	out := make([]RankedPublicationResponse, 0, len(items))
	for _, r := range items {
		out = append(out, RankedPublicationResponse{Publication: r.Item, rankFields: newRankFields(r, style)})
	}
	return out
}

func rankedExperts(items []services.Ranked[*services.ExpertListing], style rankStyle) []RankedExpertResponse {
	out := make([]RankedExpertResponse, 0, len(items))
	for _, r := range items {
		out = append(out, RankedExpertResponse{
			ExpertListing: r.Item,
			Source:        models.SourceLocal,
			rankFields:    newRankFields(r, style),
		})
	}
	return out
}

// SearchResponse is the body of POST /api/search
type SearchResponse struct {
	Researchers  []RankedExpertResponse      `json:"researchers"`
	Trials       []RankedTrialResponse       `json:"trials"`
	Publications []RankedPublicationResponse `json:"publications"`
}

// OverviewResponse is the body of GET /api/patient/overview
type OverviewResponse struct {
	TopResearchers     []RankedExpertResponse      `json:"top_researchers"`
	FeaturedTrials     []RankedTrialResponse       `json:"featured_trials"`
	LatestPublications []RankedPublicationResponse `json:"latest_publications"`
}

// ResearcherDetailsResponse is the body of GET /api/researcher/{id}/details
type ResearcherDetailsResponse struct {
	Profile             *models.ResearcherProfile   `json:"profile"`
	Expert              *models.HealthExpert        `json:"expert,omitempty"`
	AverageRating       float64                     `json:"average_rating"`
	TotalReviews        int                         `json:"total_reviews"`
	Reviews             []*models.Review            `json:"reviews"`
	Trials              []*models.ClinicalTrial     `json:"trials"`
	Publications        []*models.Publication       `json:"publications"`
	RelatedTrials       []RankedTrialResponse       `json:"related_trials"`
	RelatedPublications []RankedPublicationResponse `json:"related_publications"`
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
