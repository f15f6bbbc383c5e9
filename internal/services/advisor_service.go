package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/curalink/curalink/internal/integrations/pubmed"
	"github.com/curalink/curalink/internal/integrations/trials"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/summary"
)

const (
	advisorPublications = 5
	advisorTrials       = 3
	abstractExcerpt     = 300

	advisorSystemPrompt = "You are a medical research assistant. Using only the research and trials provided, " +
		"describe current treatment approaches in plain language for a patient. " +
		"Do not give personal medical advice."

	// AdvisorDisclaimer accompanies every answer
	AdvisorDisclaimer = "This information is for educational purposes only and is not a substitute for professional medical advice."
)

// AdvisorSource is a publication or trial the advice was grounded on
type AdvisorSource struct {
	Title  string  `json:"title"`
	Detail string  `json:"detail,omitempty"`
	URL    *string `json:"url,omitempty"`
}

// TreatmentAdvice is the advisor's answer for one disease
type TreatmentAdvice struct {
	Disease       string          `json:"disease"`
	Advice        string          `json:"advice"`
	Publications  []AdvisorSource `json:"publications"`
	Trials        []AdvisorSource `json:"trials"`
	ResearchCount int             `json:"research_count"`
	TrialsCount   int             `json:"trials_count"`
	Disclaimer    string          `json:"disclaimer"`
}

// AdvisorService summarizes treatment research for a disease from live
// PubMed and trial registry results
type AdvisorService struct {
	trials       TrialFetcher
	publications PublicationFetcher
	completer    summary.Completer
	timeout      time.Duration
	logger       *slog.Logger
}

// NewAdvisorService wires the advisor; a nil completer disables it
func NewAdvisorService(trials TrialFetcher, publications PublicationFetcher, completer summary.Completer, timeout time.Duration, logger *slog.Logger) *AdvisorService {
	return &AdvisorService{
		trials:       trials,
		publications: publications,
		completer:    completer,
		timeout:      timeout,
		logger:       logger,
	}
}

// Advise gathers recent research on disease and asks the model for an
// overview. Upstream search failures leave that source empty.
func (s *AdvisorService) Advise(ctx context.Context, disease string) (*TreatmentAdvice, error) {
	disease = strings.TrimSpace(disease)
	if disease == "" {
		return nil, fmt.Errorf("%w: disease is required", models.ErrBadRequest)
	}
	if s.completer == nil {
		return nil, models.ErrAdvisorUnavailable
	}

	var (
		pubs       []*models.Publication
		liveTrials []*models.ClinicalTrial
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.publications.Search(gctx, pubmed.SearchParams{
			Query:      disease + " treatment",
			MaxResults: advisorPublications,
		})
		if err != nil {
			s.logger.Warn("advisor publication search failed",
				slog.String("disease", disease),
				slog.Any("error", err))
			return nil
		}
		pubs = found
		return nil
	})
	g.Go(func() error {
		found, _, err := s.trials.Search(gctx, trials.SearchParams{
			Condition: disease,
			PageSize:  advisorTrials,
		})
		if err != nil {
			s.logger.Warn("advisor trial search failed",
				slog.String("disease", disease),
				slog.Any("error", err))
			return nil
		}
		liveTrials = found
		return nil
	})
	_ = g.Wait()

	if len(pubs) > advisorPublications {
		pubs = pubs[:advisorPublications]
	}
	if len(liveTrials) > advisorTrials {
		liveTrials = liveTrials[:advisorTrials]
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	advice, err := s.completer.Complete(callCtx, advisorSystemPrompt, advisorPrompt(disease, pubs, liveTrials))
	if err != nil {
		s.logger.Error("treatment advisor failed",
			slog.String("disease", disease),
			slog.Any("error", err))
		return nil, models.ErrAdvisorUnavailable
	}

	out := &TreatmentAdvice{
		Disease:       disease,
		Advice:        advice,
		Publications:  make([]AdvisorSource, 0, len(pubs)),
		Trials:        make([]AdvisorSource, 0, len(liveTrials)),
		ResearchCount: len(pubs),
		TrialsCount:   len(liveTrials),
		Disclaimer:    AdvisorDisclaimer,
	}
	for _, p := range pubs {
		out.Publications = append(out.Publications, AdvisorSource{Title: p.Title, Detail: p.Journal, URL: p.URL})
	}
	for _, t := range liveTrials {
		out.Trials = append(out.Trials, AdvisorSource{Title: t.Title, Detail: t.Status})
	}
	return out, nil
}

func advisorPrompt(disease string, pubs []*models.Publication, liveTrials []*models.ClinicalTrial) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Disease: %s\n", disease)

	if len(pubs) > 0 {
		b.WriteString("\nRecent research:\n")
		for i, p := range pubs {
			abstract := []rune(p.Abstract)
			if len(abstract) > abstractExcerpt {
				abstract = abstract[:abstractExcerpt]
			}
			fmt.Fprintf(&b, "%d. %s. %s\n", i+1, p.Title, string(abstract))
		}
	}
	if len(liveTrials) > 0 {
		b.WriteString("\nClinical trials:\n")
		for i, t := range liveTrials {
			fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, t.Title, t.Phase, t.Status)
		}
	}
	if len(pubs) == 0 && len(liveTrials) == 0 {
		b.WriteString("\nNo recent research was found. Give a general overview of standard treatment approaches.\n")
	}

	b.WriteString("\nSummarize the treatment approaches in at most three short paragraphs.")
	return b.String()
}
