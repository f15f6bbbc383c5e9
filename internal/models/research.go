package models

import "time"

// Record sources
const (
	SourceLocal          = "local"
	SourceClinicalTrials = "ClinicalTrials.gov"
	SourcePubMed         = "PubMed"
)

type ClinicalTrial struct {
	ID           string    `json:"id"`
	ExternalID   *string   `json:"external_id,omitempty"`
	Source       string    `json:"source"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Phase        string    `json:"phase"`
	Status       string    `json:"status"`
	Location     string    `json:"location"`
	Eligibility  string    `json:"eligibility"`
	DiseaseAreas []string  `json:"disease_areas"`
	Enrollment   *int      `json:"enrollment,omitempty"`
	LastUpdate   string    `json:"last_update,omitempty"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	CreatedBy    *string   `json:"created_by,omitempty"`
	Summary      *string   `json:"summary,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Publication struct {
	ID           string    `json:"id"`
	ExternalID   *string   `json:"external_id,omitempty"`
	Source       string    `json:"source"`
	Title        string    `json:"title"`
	Authors      []string  `json:"authors"`
	Abstract     string    `json:"abstract"`
	Journal      string    `json:"journal"`
	Year         *int      `json:"year,omitempty"`
	DOI          *string   `json:"doi,omitempty"`
	DiseaseAreas []string  `json:"disease_areas"`
	URL          *string   `json:"url,omitempty"`
	Summary      *string   `json:"summary,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TrialFilter narrows local trial listings. Empty fields match everything.
type TrialFilter struct {
	Condition string
	Location  string
	Status    string
	CreatedBy string
	Limit     int
}

// PublicationFilter narrows local publication listings
type PublicationFilter struct {
	DiseaseArea string
	Text        string
	Author      string
	Limit       int
}

// ExpertFilter narrows health expert listings
type ExpertFilter struct {
	Specialty string
	Location  string
	Limit     int
}
