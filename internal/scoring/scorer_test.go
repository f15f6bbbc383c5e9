package scoring

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/curalink/curalink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func TestScore_LungCancerTrial(t *testing.T) {
	trial := &models.ClinicalTrial{
		Title:        "Lung Cancer Immunotherapy Trial",
		DiseaseAreas: []string{"Lung Cancer"},
	}

	res := Score(FromTrial(trial, Local), []string{"lung cancer"}, "", now)

	assert.GreaterOrEqual(t, res.Score, 55)
	assert.Equal(t, []string{
		"Title mentions your interest in lung cancer",
		"Related to Lung Cancer",
	}, res.Reasons)
}

func TestScore_TitleMatchCountsAsConditionWithoutTags(t *testing.T) {
	trial := &models.ClinicalTrial{Title: "Lung Cancer Immunotherapy Trial"}

	res := Score(FromTrial(trial, Local), []string{"lung cancer"}, "", now)

	assert.GreaterOrEqual(t, res.Score, 55)
	assert.Equal(t, termTitlePoints+termTagPoints, res.Score)
	assert.Equal(t, []string{
		"Title mentions your interest in lung cancer",
		"Matches your condition lung cancer",
	}, res.Reasons)
}

func TestScore_QueryComponents(t *testing.T) {
	c := Candidate{
		Title:       "Asthma outcomes in children",
		Description: "A study of asthma control",
		Tags:        []string{"Pediatric Asthma"},
	}

	res := Score(c, nil, "  ASTHMA ", now)

	assert.Equal(t, 30+15+25, res.Score)
	assert.Equal(t, []string{
		`Title matches "ASTHMA"`,
		`Description mentions "ASTHMA"`,
		"Matches Pediatric Asthma",
	}, res.Reasons)
}

func TestScore_TagMatchesEitherDirection(t *testing.T) {
	c := Candidate{Title: "x", Tags: []string{"Diabetes"}}

	res := Score(c, []string{"type 2 diabetes"}, "", now)

	assert.Equal(t, termTagPoints, res.Score)
}

func TestScore_DescriptionOnlyTerm(t *testing.T) {
	c := Candidate{Title: "x", Description: "covers migraine care"}

	res := Score(c, []string{"Migraine"}, "", now)

	assert.Equal(t, termDescriptionPoints, res.Score)
	assert.Equal(t, []string{"Mentions Migraine"}, res.Reasons)
}

func TestScore_RepeatedTermsRepeatReasons(t *testing.T) {
	c := Candidate{Title: "Heart failure", Tags: []string{}}

	res := Score(c, []string{"heart", "heart"}, "", now)

	assert.Equal(t, 100, res.Score)
	assert.Len(t, res.Reasons, 4)
}

func TestScore_Status(t *testing.T) {
	tests := []struct {
		status string
		points int
		reason string
	}{
		{"RECRUITING", 15, "Currently recruiting"},
		{"Recruiting", 15, "Currently recruiting"},
		{"NOT_YET_RECRUITING", 15, "Currently recruiting"},
		{"Enrolling by invitation", 15, "Currently recruiting"},
		{"ACTIVE_NOT_RECRUITING", 15, "Study is active"},
		{"Active", 15, "Study is active"},
		{"COMPLETED", 0, ""},
		{"", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			res := Score(Candidate{Status: tt.status}, nil, "", now)
			assert.Equal(t, tt.points, res.Score)
			if tt.reason != "" {
				assert.Equal(t, []string{tt.reason}, res.Reasons)
			} else {
				assert.Empty(t, res.Reasons)
			}
		})
	}
}

func TestScore_Recency(t *testing.T) {
	tests := []struct {
		name   string
		c      Candidate
		points int
	}{
		{"updated last month", Candidate{Updated: now.AddDate(0, -1, 0)}, 15},
		{"updated 18 months ago", Candidate{Updated: now.AddDate(0, -18, 0)}, 12},
		{"updated 30 months ago", Candidate{Updated: now.AddDate(0, -30, 0)}, 10},
		{"updated 5 years ago", Candidate{Updated: now.AddDate(-5, 0, 0)}, 0},
		{"published this year", Candidate{Updated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), YearOnly: true}, 15},
		{"published last year", Candidate{Updated: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), YearOnly: true}, 15},
		{"published 2 years ago", Candidate{Updated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), YearOnly: true}, 12},
		{"published 3 years ago", Candidate{Updated: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), YearOnly: true}, 10},
		{"published long ago", Candidate{Updated: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), YearOnly: true}, 0},
		{"unknown date", Candidate{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(tt.c, nil, "", now)
			assert.Equal(t, tt.points, res.Score)
			assert.Equal(t, tt.points > 0, len(res.Reasons) == 1)
		})
	}
}

func TestScore_Quality(t *testing.T) {
	assert.Equal(t, 10, Score(Candidate{HasDOI: true}, nil, "", now).Score)
	assert.Equal(t, 9, Score(Candidate{Rating: 4.5, ReviewCount: 2}, nil, "", now).Score)
	assert.Equal(t, 10, Score(Candidate{Rating: 5, ReviewCount: 1}, nil, "", now).Score)
	assert.Equal(t, 0, Score(Candidate{Rating: 4.5, ReviewCount: 0}, nil, "", now).Score)

	res := Score(Candidate{Rating: 4, ReviewCount: 1}, nil, "", now)
	assert.Equal(t, []string{"Rated 4.0/5 by 1 patient"}, res.Reasons)
}

func TestScore_ExternalFloor(t *testing.T) {
	weak := Score(Candidate{Title: "unrelated", Provenance: External, Source: models.SourcePubMed}, []string{"asthma"}, "", now)
	assert.Equal(t, Floor, weak.Score)
	assert.Equal(t, []string{"Live result from PubMed"}, weak.Reasons)

	strong := Score(Candidate{Title: "asthma asthma", Tags: []string{"asthma"}, Provenance: External}, []string{"asthma"}, "asthma", now)
	assert.Greater(t, strong.Score, Floor)
	assert.NotContains(t, strong.Reasons, "Live result from external source")
}

func TestScore_FallbackFloorReplacesReasons(t *testing.T) {
	weak := Score(Candidate{Title: "x", Provenance: Fallback}, nil, "", now)
	assert.Equal(t, Floor, weak.Score)
	assert.Equal(t, []string{FallbackReason}, weak.Reasons)

	strong := Score(Candidate{Title: "asthma", Tags: []string{"asthma"}, Status: "RECRUITING", Provenance: Fallback}, []string{"asthma"}, "asthma", now)
	assert.Equal(t, 100, strong.Score)
	assert.Equal(t, []string{FallbackReason}, strong.Reasons)
}

func TestScore_ReasonsNeverNil(t *testing.T) {
	res := Score(Candidate{}, nil, "", now)
	require.NotNil(t, res.Reasons)
	assert.Equal(t, 0, res.Score)
}

func TestScore_Deterministic(t *testing.T) {
	c := Candidate{Title: "Breast cancer screening", Tags: []string{"Breast Cancer"}, Status: "RECRUITING", Updated: now.AddDate(0, -2, 0)}
	a := Score(c, []string{"breast cancer"}, "screening", now)
	b := Score(c, []string{"breast cancer"}, "screening", now)
	assert.Equal(t, a, b)
}

func randomCandidate(r *rand.Rand) Candidate {
	words := []string{"lung", "cancer", "asthma", "heart", "diabetes", "trial", "therapy", ""}
	pick := func() string { return words[r.Intn(len(words))] }
	return Candidate{
		Title:       pick() + " " + pick() + " " + pick(),
		Description: pick() + " " + pick(),
		Tags:        []string{pick(), pick()},
		Status:      []string{"RECRUITING", "ACTIVE", "COMPLETED"}[r.Intn(3)],
		Updated:     now.AddDate(-r.Intn(5), 0, 0),
		HasDOI:      r.Intn(2) == 0,
		Rating:      float64(r.Intn(6)),
		ReviewCount: r.Intn(3),
		Provenance:  Provenance(r.Intn(3)),
	}
}

func TestScore_BoundsAndFloors(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	words := []string{"lung", "cancer", "asthma", "heart", "diabetes"}

	for i := 0; i < 2000; i++ {
		c := randomCandidate(r)
		terms := []string{words[r.Intn(len(words))], words[r.Intn(len(words))], words[r.Intn(len(words))]}
		res := Score(c, terms, words[r.Intn(len(words))], now)

		require.GreaterOrEqual(t, res.Score, 0, "candidate %d", i)
		require.LessOrEqual(t, res.Score, 100, "candidate %d", i)
		if c.Provenance != Local {
			require.GreaterOrEqual(t, res.Score, Floor, "candidate %d", i)
		}
	}
}

func TestScore_AddingTermNeverLowersScore(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	words := []string{"lung", "cancer", "asthma", "heart", "diabetes", "trial"}

	for i := 0; i < 1000; i++ {
		c := randomCandidate(r)
		terms := []string{words[r.Intn(len(words))]}
		before := Score(c, terms, "", now).Score
		after := Score(c, append(terms, words[r.Intn(len(words))]), "", now).Score

		require.GreaterOrEqual(t, after, before, fmt.Sprintf("candidate %d", i))
	}
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC), ParseDate("2025-11-02"))
	assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), ParseDate("2025-11"))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), ParseDate("March 5, 2024"))
	assert.True(t, ParseDate("soon").IsZero())
}

func TestFromExpert_UsesSpecialtyAndRating(t *testing.T) {
	e := &models.HealthExpert{Name: "Dr. Ray", Specialty: "Oncology - Academic", ResearchAreas: []string{"Immunotherapy"}}

	res := Score(FromExpert(e, models.RatingSummary{AverageRating: 4.5, TotalReviews: 4}), []string{"oncology"}, "", now)

	assert.Equal(t, termTagPoints+9, res.Score)
}
