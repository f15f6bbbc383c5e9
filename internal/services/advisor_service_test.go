package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/curalink/internal/integrations/pubmed"
	"github.com/curalink/curalink/internal/integrations/trials"
	"github.com/curalink/curalink/internal/models"
)

func TestAdvisorService_Advise(t *testing.T) {
	var prompt string
	var pubParams pubmed.SearchParams
	var trialParams trials.SearchParams

	pubs := &MockPublicationFetcher{
		SearchFunc: func(ctx context.Context, params pubmed.SearchParams) ([]*models.Publication, error) {
			pubParams = params
			return []*models.Publication{{Title: "Biologics in severe asthma", Journal: "Lancet", Abstract: "Abstract text"}}, nil
		},
	}
	live := &MockTrialFetcher{
		SearchFunc: func(ctx context.Context, params trials.SearchParams) ([]*models.ClinicalTrial, int, error) {
			trialParams = params
			return []*models.ClinicalTrial{
				{Title: "T1", Status: "Recruiting"}, {Title: "T2"}, {Title: "T3"}, {Title: "T4"},
			}, 4, nil
		},
	}
	completer := &MockCompleter{
		CompleteFunc: func(ctx context.Context, system, p string) (string, error) {
			prompt = p
			return "Inhaled corticosteroids remain first line.", nil
		},
	}

	service := NewAdvisorService(live, pubs, completer, time.Second, slog.Default())
	advice, err := service.Advise(context.Background(), " asthma ")
	require.NoError(t, err)

	assert.Equal(t, "asthma", advice.Disease)
	assert.Equal(t, "Inhaled corticosteroids remain first line.", advice.Advice)
	assert.Equal(t, 1, advice.ResearchCount)
	assert.Equal(t, 3, advice.TrialsCount)
	assert.Len(t, advice.Trials, 3)
	assert.Equal(t, "Lancet", advice.Publications[0].Detail)
	assert.Equal(t, AdvisorDisclaimer, advice.Disclaimer)

	assert.Equal(t, "asthma treatment", pubParams.Query)
	assert.Equal(t, 5, pubParams.MaxResults)
	assert.Equal(t, "asthma", trialParams.Condition)
	assert.Contains(t, prompt, "Biologics in severe asthma")
	assert.Contains(t, prompt, "T1")
}

func TestAdvisorService_Advise_UpstreamFailuresTolerated(t *testing.T) {
	var prompt string
	pubs := &MockPublicationFetcher{
		SearchFunc: func(ctx context.Context, params pubmed.SearchParams) ([]*models.Publication, error) {
			return nil, errors.New("pubmed down")
		},
	}
	live := &MockTrialFetcher{
		SearchFunc: func(ctx context.Context, params trials.SearchParams) ([]*models.ClinicalTrial, int, error) {
			return nil, 0, errors.New("registry down")
		},
	}
	completer := &MockCompleter{
		CompleteFunc: func(ctx context.Context, system, p string) (string, error) {
			prompt = p
			return "General overview.", nil
		},
	}

	advice, err := NewAdvisorService(live, pubs, completer, time.Second, slog.Default()).Advise(context.Background(), "gout")
	require.NoError(t, err)
	assert.Zero(t, advice.ResearchCount)
	assert.Empty(t, advice.Publications)
	assert.NotNil(t, advice.Trials)
	assert.Contains(t, prompt, "No recent research was found")
}

func TestAdvisorService_Advise_Unavailable(t *testing.T) {
	ctx := context.Background()

	_, err := NewAdvisorService(&MockTrialFetcher{}, &MockPublicationFetcher{}, nil, time.Second, slog.Default()).Advise(ctx, "asthma")
	assert.ErrorIs(t, err, models.ErrAdvisorUnavailable)

	_, err = NewAdvisorService(&MockTrialFetcher{}, &MockPublicationFetcher{}, &MockCompleter{}, time.Second, slog.Default()).Advise(ctx, "asthma")
	assert.ErrorIs(t, err, models.ErrAdvisorUnavailable)

	_, err = NewAdvisorService(&MockTrialFetcher{}, &MockPublicationFetcher{}, &MockCompleter{}, time.Second, slog.Default()).Advise(ctx, "  ")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
