package scoring

import (
	"strings"
	"time"

	"github.com/curalink/curalink/internal/models"
)

var dateLayouts = []string{"2006-01-02", "2006-01", "January 2, 2006", "January 2006", "2006"}

// ParseDate reads the partial dates upstream registries report; unknown formats give the zero time
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func FromTrial(t *models.ClinicalTrial, prov Provenance) Candidate {
	return Candidate{
		Title:       t.Title,
		Description: t.Description,
		Tags:        t.DiseaseAreas,
		Status:      t.Status,
		Updated:     ParseDate(t.LastUpdate),
		Provenance:  prov,
		Source:      t.Source,
	}
}

func FromPublication(p *models.Publication, prov Provenance) Candidate {
	c := Candidate{
		Title:       p.Title,
		Description: p.Abstract,
		Tags:        p.DiseaseAreas,
		HasDOI:      p.DOI != nil && *p.DOI != "",
		Provenance:  prov,
		Source:      p.Source,
	}
	if p.Year != nil && *p.Year > 0 {
		c.Updated = time.Date(*p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		c.YearOnly = true
	}
	return c
}

// FromExpert scores a directory entry by name, bio, specialty and research areas
func FromExpert(e *models.HealthExpert, rating models.RatingSummary) Candidate {
	tags := make([]string, 0, len(e.ResearchAreas)+1)
	if e.Specialty != "" {
		tags = append(tags, e.Specialty)
	}
	tags = append(tags, e.ResearchAreas...)

	return Candidate{
		Title:       e.Name,
		Description: e.Bio,
		Tags:        tags,
		Rating:      rating.AverageRating,
		ReviewCount: rating.TotalReviews,
		Provenance:  Local,
		Source:      models.SourceLocal,
	}
}
