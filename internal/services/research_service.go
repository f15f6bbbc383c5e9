package services

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/summary"
)

// TrialRepository defines clinical trial storage
type TrialRepository interface {
	Create(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error)
	UpsertExternal(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error)
	GetByID(ctx context.Context, id string) (*models.ClinicalTrial, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.ClinicalTrial, error)
	List(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error)
}

// PublicationRepository defines publication storage
type PublicationRepository interface {
	UpsertExternal(ctx context.Context, p *models.Publication) (*models.Publication, error)
	GetByID(ctx context.Context, id string) (*models.Publication, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Publication, error)
	List(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error)
}

// RatingSource aggregates reviews per researcher
type RatingSource interface {
	Summaries(ctx context.Context, researcherIDs []string) (map[string]models.RatingSummary, error)
}

// Summarizer produces short AI summaries
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
	SummarizeOrExcerpt(ctx context.Context, content, fallbackText string) (string, bool)
}

const listingLimit = 50

// TrialInput is a researcher-created trial
type TrialInput struct {
	Title        string
	Description  string
	Phase        string
	Status       string
	Location     string
	Eligibility  string
	DiseaseAreas []string
	Enrollment   *int
	ContactEmail *string
}

// ExpertListing is a directory entry with its review aggregate.
// Rating fields are set for platform members only.
type ExpertListing struct {
	*models.HealthExpert
	AverageRating *float64 `json:"average_rating,omitempty"`
	TotalReviews  *int     `json:"total_reviews,omitempty"`
}

// ResearchService serves trials, publications and directory listings
type ResearchService struct {
	trials       TrialRepository
	publications PublicationRepository
	profiles     ProfileRepository
	ratings      RatingSource
	summarizer   Summarizer
	logger       *slog.Logger
}

func NewResearchService(trials TrialRepository, publications PublicationRepository, profiles ProfileRepository, ratings RatingSource, summarizer Summarizer, logger *slog.Logger) *ResearchService {
	return &ResearchService{
		trials:       trials,
		publications: publications,
		profiles:     profiles,
		ratings:      ratings,
		summarizer:   summarizer,
		logger:       logger,
	}
}

// CreateTrial stores a researcher's trial. A failed AI summary leaves Summary unset.
func (s *ResearchService) CreateTrial(ctx context.Context, user *models.User, in TrialInput) (*models.ClinicalTrial, error) {
	createdBy := user.ID
	trial := &models.ClinicalTrial{
		Source:       models.SourceLocal,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Phase:        in.Phase,
		Status:       in.Status,
		Location:     in.Location,
		Eligibility:  in.Eligibility,
		DiseaseAreas: cleanList(in.DiseaseAreas),
		Enrollment:   in.Enrollment,
		ContactEmail: in.ContactEmail,
		CreatedBy:    &createdBy,
	}

	text, err := s.summarizer.Summarize(ctx, summary.TrialContent(trial.Title, trial.Description))
	if err != nil {
		s.logger.Info("creating trial without ai summary", slog.Any("error", err))
	} else {
		trial.Summary = &text
	}

	created, err := s.trials.Create(ctx, trial)
	if err != nil {
		s.logger.Error("failed to create trial",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("trial created",
		slog.String("trial_id", created.ID),
		slog.String("user_id", user.ID))
	return created, nil
}

// ListOwnTrials returns the trials created by userID
func (s *ResearchService) ListOwnTrials(ctx context.Context, userID string) ([]*models.ClinicalTrial, error) {
	return s.trials.List(ctx, models.TrialFilter{CreatedBy: userID, Limit: listingLimit})
}

func (s *ResearchService) ListTrials(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error) {
	if f.Limit <= 0 {
		f.Limit = listingLimit
	}
	return s.trials.List(ctx, f)
}

func (s *ResearchService) ListPublications(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error) {
	if f.Limit <= 0 {
		f.Limit = listingLimit
	}
	return s.publications.List(ctx, f)
}

// ListExperts returns directory entries; platform members carry their rating
func (s *ResearchService) ListExperts(ctx context.Context, f models.ExpertFilter) ([]*ExpertListing, error) {
	if f.Limit <= 0 {
		f.Limit = listingLimit
	}

	experts, err := s.profiles.ListExperts(ctx, f)
	if err != nil {
		return nil, err
	}

	var memberIDs []string
	for _, e := range experts {
		if e.IsPlatformMember && e.UserID != nil {
			memberIDs = append(memberIDs, *e.UserID)
		}
	}

	ratings := map[string]models.RatingSummary{}
	if len(memberIDs) > 0 {
		if ratings, err = s.ratings.Summaries(ctx, memberIDs); err != nil {
			return nil, err
		}
	}

	listings := make([]*ExpertListing, 0, len(experts))
	for _, e := range experts {
		listing := &ExpertListing{HealthExpert: e}
		if e.IsPlatformMember && e.UserID != nil {
			rating := ratings[*e.UserID]
			avg := RoundRating(rating.AverageRating)
			total := rating.TotalReviews
			listing.AverageRating = &avg
			listing.TotalReviews = &total
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// ListCollaborators returns other researchers, optionally by specialty
func (s *ResearchService) ListCollaborators(ctx context.Context, user *models.User, specialty string) ([]*models.ResearcherProfile, error) {
	return s.profiles.ListResearchers(ctx, user.ID, strings.TrimSpace(specialty), listingLimit)
}

// RoundRating rounds an average rating to one decimal
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
