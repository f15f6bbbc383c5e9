package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/curalink/curalink/internal/integrations/pubmed"
	"github.com/curalink/curalink/internal/integrations/trials"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/scoring"
	"github.com/curalink/curalink/internal/summary"
	pkglogger "github.com/curalink/curalink/pkg/logger"
)

// TrialFetcher searches the live trial registry
type TrialFetcher interface {
	Search(ctx context.Context, params trials.SearchParams) ([]*models.ClinicalTrial, int, error)
}

// PublicationFetcher searches the live publication index
type PublicationFetcher interface {
	Search(ctx context.Context, params pubmed.SearchParams) ([]*models.Publication, error)
}

// FallbackObserver is told when a category was served from local storage
type FallbackObserver interface {
	ObserveFallback(category string)
}

const (
	searchTopN    = 10
	overviewTopN  = 3
	detailsTopN   = 5
	fetchSize     = 20
	expertPool    = 100
	recentReviews = 10

	// summaryWorkers bounds concurrent summary calls per request
	summaryWorkers = 4
)

// Ranked is a scored candidate ready to render.
// Live marks items fetched from an upstream API during this request.
type Ranked[T any] struct {
	Item         T
	Score        int
	Reasons      []string
	Live         bool
	AISummary    *string
	AISummarized bool
}

type SearchResults struct {
	Researchers  []Ranked[*ExpertListing]
	Trials       []Ranked[*models.ClinicalTrial]
	Publications []Ranked[*models.Publication]
}

type Overview struct {
	TopResearchers     []Ranked[*ExpertListing]
	FeaturedTrials     []Ranked[*models.ClinicalTrial]
	LatestPublications []Ranked[*models.Publication]
}

type ResearcherDetails struct {
	Profile             *models.ResearcherProfile
	Expert              *models.HealthExpert
	Rating              models.RatingSummary
	Reviews             []*models.Review
	Trials              []*models.ClinicalTrial
	Publications        []*models.Publication
	RelatedTrials       []Ranked[*models.ClinicalTrial]
	RelatedPublications []Ranked[*models.Publication]
}

// DiscoveryService runs search, the patient overview and researcher details.
// Upstream fetches run concurrently and each category falls back to local
// storage on its own when its upstream fails.
type DiscoveryService struct {
	trialsAPI    TrialFetcher
	pubsAPI      PublicationFetcher
	trials       TrialRepository
	publications PublicationRepository
	profiles     ProfileRepository
	reviews      ReviewRepository
	summarizer   Summarizer
	observer     FallbackObserver
	logger       *slog.Logger
	now          func() time.Time
}

func NewDiscoveryService(
	trialsAPI TrialFetcher,
	pubsAPI PublicationFetcher,
	trials TrialRepository,
	publications PublicationRepository,
	profiles ProfileRepository,
	reviews ReviewRepository,
	summarizer Summarizer,
	observer FallbackObserver,
	logger *slog.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		trialsAPI:    trialsAPI,
		pubsAPI:      pubsAPI,
		trials:       trials,
		publications: publications,
		profiles:     profiles,
		reviews:      reviews,
		summarizer:   summarizer,
		observer:     observer,
		logger:       logger,
		now:          time.Now,
	}
}

// researchQuery describes one fan-out: the upstream requests and the local
// filters used when an upstream fails
type researchQuery struct {
	trials      trials.SearchParams
	pubs        pubmed.SearchParams
	localTrials models.TrialFilter
	localPubs   models.PublicationFilter
}

type fetched[T any] struct {
	items      []T
	provenance scoring.Provenance
}

// Search ranks researchers, trials and publications for a free-text query
func (s *DiscoveryService) Search(ctx context.Context, user *models.User, query, location string) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	location = strings.TrimSpace(location)
	terms := s.requesterTerms(ctx, user)

	s.logger.Info("search",
		slog.String("user_id", user.ID),
		slog.String("query", pkglogger.Truncate(query, 100)),
		slog.Int("terms", len(terms)))

	q := researchQuery{
		trials:      trials.SearchParams{Condition: query, Location: location, PageSize: fetchSize},
		pubs:        pubmed.SearchParams{Query: query, MaxResults: fetchSize},
		localTrials: models.TrialFilter{Condition: query, Location: location, Limit: fetchSize},
		localPubs:   models.PublicationFilter{Text: query, Limit: fetchSize},
	}

	var (
		trialSet fetched[*models.ClinicalTrial]
		pubSet   fetched[*models.Publication]
		experts  []*ExpertListing
	)
	var g errgroup.Group
	g.Go(func() error {
		trialSet = s.fetchTrials(ctx, q)
		return nil
	})
	g.Go(func() error {
		pubSet = s.fetchPublications(ctx, q)
		return nil
	})
	g.Go(func() error {
		experts = s.loadExperts(ctx, models.ExpertFilter{Limit: expertPool})
		return nil
	})
	_ = g.Wait()

	now := s.now()
	results := &SearchResults{
		Researchers:  rankExperts(experts, terms, query, now, searchTopN),
		Trials:       rankTrials(trialSet, terms, query, now, searchTopN),
		Publications: rankPublications(pubSet, terms, query, now, searchTopN),
	}
	s.summarize(ctx, results.Trials, results.Publications)

	return results, nil
}

// PatientOverview ranks the top items for the patient's conditions.
// A patient without conditions gets ranked local data.
func (s *DiscoveryService) PatientOverview(ctx context.Context, user *models.User) (*Overview, error) {
	var terms, conditions []string
	profile, err := s.profiles.GetPatientProfile(ctx, user.ID)
	switch {
	case err == nil:
		terms = profile.Terms()
		conditions = profile.Conditions
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	var (
		trialSet fetched[*models.ClinicalTrial]
		pubSet   fetched[*models.Publication]
		experts  []*ExpertListing
	)

	var g errgroup.Group
	if len(conditions) == 0 {
		g.Go(func() error {
			trialSet = s.localTrials(ctx, models.TrialFilter{Limit: fetchSize}, scoring.Local)
			return nil
		})
		g.Go(func() error {
			pubSet = s.localPublications(ctx, models.PublicationFilter{Limit: fetchSize}, scoring.Local)
			return nil
		})
	} else {
		condition := conditions[0]
		q := researchQuery{
			trials:      trials.SearchParams{Condition: condition, PageSize: fetchSize},
			pubs:        pubmed.SearchParams{Query: condition, MaxResults: fetchSize},
			localTrials: models.TrialFilter{Condition: condition, Limit: fetchSize},
			localPubs:   models.PublicationFilter{DiseaseArea: condition, Limit: fetchSize},
		}
		g.Go(func() error {
			trialSet = s.fetchTrials(ctx, q)
			return nil
		})
		g.Go(func() error {
			pubSet = s.fetchPublications(ctx, q)
			return nil
		})
	}
	g.Go(func() error {
		experts = s.loadExperts(ctx, models.ExpertFilter{Limit: expertPool})
		return nil
	})
	_ = g.Wait()

	now := s.now()
	overview := &Overview{
		TopResearchers:     rankExperts(experts, terms, "", now, overviewTopN),
		FeaturedTrials:     rankTrials(trialSet, terms, "", now, overviewTopN),
		LatestPublications: rankPublications(pubSet, terms, "", now, overviewTopN),
	}
	s.summarize(ctx, overview.FeaturedTrials, overview.LatestPublications)

	return overview, nil
}

// ResearcherDetails assembles a researcher's profile, reviews and work.
// Publications are matched by a case-insensitive substring of the
// researcher's name in the author list, so unrelated authors with a
// similar name are included and name variants are missed.
func (s *DiscoveryService) ResearcherDetails(ctx context.Context, researcherID string) (*ResearcherDetails, error) {
	profile, err := s.profiles.GetResearcherProfile(ctx, researcherID)
	if err != nil {
		return nil, err
	}

	details := &ResearcherDetails{Profile: profile}

	expert, err := s.profiles.GetExpertByUserID(ctx, researcherID)
	switch {
	case err == nil:
		details.Expert = expert
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	ratings, err := s.reviews.Summaries(ctx, []string{researcherID})
	if err != nil {
		return nil, err
	}
	details.Rating = ratings[researcherID]
	details.Rating.AverageRating = RoundRating(details.Rating.AverageRating)

	if details.Reviews, err = s.reviews.ListByResearcher(ctx, researcherID, recentReviews); err != nil {
		return nil, err
	}
	if details.Trials, err = s.trials.List(ctx, models.TrialFilter{CreatedBy: researcherID, Limit: listingLimit}); err != nil {
		return nil, err
	}
	if details.Publications, err = s.publications.List(ctx, models.PublicationFilter{Author: profile.Name, Limit: fetchSize}); err != nil {
		return nil, err
	}

	topic := firstNonEmpty(profile.Specialties, profile.ResearchInterests)
	if topic == "" {
		details.RelatedTrials = []Ranked[*models.ClinicalTrial]{}
		details.RelatedPublications = []Ranked[*models.Publication]{}
		return details, nil
	}

	q := researchQuery{
		trials:      trials.SearchParams{Condition: topic, PageSize: fetchSize},
		pubs:        pubmed.SearchParams{Query: topic, MaxResults: fetchSize},
		localTrials: models.TrialFilter{Condition: topic, Limit: fetchSize},
		localPubs:   models.PublicationFilter{DiseaseArea: topic, Limit: fetchSize},
	}
	trialSet, pubSet := s.fetchResearch(ctx, q)

	now := s.now()
	terms := profile.Terms()
	details.RelatedTrials = rankTrials(trialSet, terms, "", now, detailsTopN)
	details.RelatedPublications = rankPublications(pubSet, terms, "", now, detailsTopN)
	s.summarize(ctx, details.RelatedTrials, details.RelatedPublications)

	return details, nil
}

// requesterTerms loads the personalization terms for every role the user holds
func (s *DiscoveryService) requesterTerms(ctx context.Context, user *models.User) []string {
	var terms []string

	if user.HasRole(models.RolePatient) {
		p, err := s.profiles.GetPatientProfile(ctx, user.ID)
		switch {
		case err == nil:
			terms = append(terms, p.Terms()...)
		case !errors.Is(err, models.ErrNotFound):
			s.logger.Warn("failed to load patient profile for search", slog.Any("error", err))
		}
	}

	if user.HasRole(models.RoleResearcher) {
		p, err := s.profiles.GetResearcherProfile(ctx, user.ID)
		switch {
		case err == nil:
			terms = append(terms, p.Terms()...)
		case !errors.Is(err, models.ErrNotFound):
			s.logger.Warn("failed to load researcher profile for search", slog.Any("error", err))
		}
	}

	return terms
}

func (s *DiscoveryService) fetchResearch(ctx context.Context, q researchQuery) (fetched[*models.ClinicalTrial], fetched[*models.Publication]) {
	var (
		trialSet fetched[*models.ClinicalTrial]
		pubSet   fetched[*models.Publication]
	)

	var g errgroup.Group
	g.Go(func() error {
		trialSet = s.fetchTrials(ctx, q)
		return nil
	})
	g.Go(func() error {
		pubSet = s.fetchPublications(ctx, q)
		return nil
	})
	_ = g.Wait()

	return trialSet, pubSet
}

func (s *DiscoveryService) fetchTrials(ctx context.Context, q researchQuery) fetched[*models.ClinicalTrial] {
	items, _, err := s.trialsAPI.Search(ctx, q.trials)
	if err == nil {
		return fetched[*models.ClinicalTrial]{items: items, provenance: scoring.External}
	}

	s.logger.Warn("trials upstream failed, using local data", slog.Any("error", err))
	s.observeFallback("trials")
	return s.localTrials(ctx, q.localTrials, scoring.Fallback)
}

func (s *DiscoveryService) fetchPublications(ctx context.Context, q researchQuery) fetched[*models.Publication] {
	items, err := s.pubsAPI.Search(ctx, q.pubs)
	if err == nil {
		return fetched[*models.Publication]{items: items, provenance: scoring.External}
	}

	s.logger.Warn("publications upstream failed, using local data", slog.Any("error", err))
	s.observeFallback("publications")
	return s.localPublications(ctx, q.localPubs, scoring.Fallback)
}

// localTrials reads stored trials; a storage failure yields an empty set
func (s *DiscoveryService) localTrials(ctx context.Context, f models.TrialFilter, prov scoring.Provenance) fetched[*models.ClinicalTrial] {
	items, err := s.trials.List(ctx, f)
	if err != nil {
		s.logger.Error("failed to read local trials", slog.Any("error", err))
		items = nil
	}
	return fetched[*models.ClinicalTrial]{items: items, provenance: prov}
}

func (s *DiscoveryService) localPublications(ctx context.Context, f models.PublicationFilter, prov scoring.Provenance) fetched[*models.Publication] {
	items, err := s.publications.List(ctx, f)
	if err != nil {
		s.logger.Error("failed to read local publications", slog.Any("error", err))
		items = nil
	}
	return fetched[*models.Publication]{items: items, provenance: prov}
}

// loadExperts reads the directory with review aggregates; failures yield no researchers
func (s *DiscoveryService) loadExperts(ctx context.Context, f models.ExpertFilter) []*ExpertListing {
	experts, err := s.profiles.ListExperts(ctx, f)
	if err != nil {
		s.logger.Error("failed to read experts", slog.Any("error", err))
		return nil
	}

	var memberIDs []string
	for _, e := range experts {
		if e.UserID != nil {
			memberIDs = append(memberIDs, *e.UserID)
		}
	}

	ratings := map[string]models.RatingSummary{}
	if len(memberIDs) > 0 {
		if ratings, err = s.reviews.Summaries(ctx, memberIDs); err != nil {
			s.logger.Warn("failed to load ratings", slog.Any("error", err))
			ratings = map[string]models.RatingSummary{}
		}
	}

	listings := make([]*ExpertListing, 0, len(experts))
	for _, e := range experts {
		listing := &ExpertListing{HealthExpert: e}
		if e.UserID != nil {
			rating := ratings[*e.UserID]
			avg := RoundRating(rating.AverageRating)
			total := rating.TotalReviews
			listing.AverageRating = &avg
			listing.TotalReviews = &total
		}
		listings = append(listings, listing)
	}
	return listings
}

// summarize attaches AI summaries to live items. Each item falls back to an
// excerpt on its own; no failure reaches the caller.
func (s *DiscoveryService) summarize(ctx context.Context, trialItems []Ranked[*models.ClinicalTrial], pubItems []Ranked[*models.Publication]) {
	var g errgroup.Group
	g.SetLimit(summaryWorkers)

	for i := range trialItems {
		if !trialItems[i].Live {
			continue
		}
		item := &trialItems[i]
		g.Go(func() error {
			t := item.Item
			text, ok := s.summarizer.SummarizeOrExcerpt(ctx, summary.TrialContent(t.Title, t.Description), t.Description)
			item.AISummary = &text
			item.AISummarized = ok
			return nil
		})
	}

	for i := range pubItems {
		if !pubItems[i].Live {
			continue
		}
		item := &pubItems[i]
		g.Go(func() error {
			p := item.Item
			text, ok := s.summarizer.SummarizeOrExcerpt(ctx, summary.PublicationContent(p.Title, p.Abstract), p.Abstract)
			item.AISummary = &text
			item.AISummarized = ok
			return nil
		})
	}

	_ = g.Wait()
}

func (s *DiscoveryService) observeFallback(category string) {
	if s.observer != nil {
		s.observer.ObserveFallback(category)
	}
}

func rankTrials(set fetched[*models.ClinicalTrial], terms []string, query string, now time.Time, n int) []Ranked[*models.ClinicalTrial] {
	scored := make([]scoring.Scored[*models.ClinicalTrial], 0, len(set.items))
	for _, t := range set.items {
		scored = append(scored, scoring.Scored[*models.ClinicalTrial]{
			Item:   t,
			Result: scoring.Score(scoring.FromTrial(t, set.provenance), terms, query, now),
		})
	}
	return toRanked(scoring.Top(scored, n), set.provenance == scoring.External)
}

func rankPublications(set fetched[*models.Publication], terms []string, query string, now time.Time, n int) []Ranked[*models.Publication] {
	scored := make([]scoring.Scored[*models.Publication], 0, len(set.items))
	for _, p := range set.items {
		scored = append(scored, scoring.Scored[*models.Publication]{
			Item:   p,
			Result: scoring.Score(scoring.FromPublication(p, set.provenance), terms, query, now),
		})
	}
	return toRanked(scoring.Top(scored, n), set.provenance == scoring.External)
}

// rankExperts keeps only directory entries with a positive score
func rankExperts(experts []*ExpertListing, terms []string, query string, now time.Time, n int) []Ranked[*ExpertListing] {
	scored := make([]scoring.Scored[*ExpertListing], 0, len(experts))
	for _, e := range experts {
		var rating models.RatingSummary
		if e.AverageRating != nil && e.TotalReviews != nil {
			rating = models.RatingSummary{AverageRating: *e.AverageRating, TotalReviews: *e.TotalReviews}
		}
		result := scoring.Score(scoring.FromExpert(e.HealthExpert, rating), terms, query, now)
		if result.Score > 0 {
			scored = append(scored, scoring.Scored[*ExpertListing]{Item: e, Result: result})
		}
	}
	return toRanked(scoring.Top(scored, n), false)
}

func toRanked[T any](scored []scoring.Scored[T], live bool) []Ranked[T] {
	out := make([]Ranked[T], 0, len(scored))
	for _, sc := range scored {
		out = append(out, Ranked[T]{
			Item:    sc.Item,
			Score:   sc.Result.Score,
			Reasons: sc.Result.Reasons,
			Live:    live,
		})
	}
	return out
}

func firstNonEmpty(lists ...[]string) string {
	for _, list := range lists {
		for _, v := range list {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
