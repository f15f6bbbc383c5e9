package models

import "time"

type PatientProfile struct {
	UserID     string    `json:"user_id"`
	Conditions []string  `json:"conditions"`
	Location   *string   `json:"location,omitempty"`
	Interests  []string  `json:"interests"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terms returns the conditions and interests used for personalization
func (p *PatientProfile) Terms() []string {
	terms := make([]string, 0, len(p.Conditions)+len(p.Interests))
	terms = append(terms, p.Conditions...)
	return append(terms, p.Interests...)
}

type ResearcherProfile struct {
	UserID               string    `json:"user_id"`
	Name                 string    `json:"name"`
	Specialties          []string  `json:"specialties"`
	ResearchInterests    []string  `json:"research_interests"`
	Age                  int       `json:"age"`
	YearsExperience      int       `json:"years_experience"`
	Sector               string    `json:"sector"`
	AvailableHours       string    `json:"available_hours"`
	ORCID                *string   `json:"orcid,omitempty"`
	ResearchGate         *string   `json:"researchgate,omitempty"`
	AvailableForMeetings bool      `json:"available_for_meetings"`
	Bio                  string    `json:"bio"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Terms returns the specialties and research interests used for personalization
func (p *ResearcherProfile) Terms() []string {
	terms := make([]string, 0, len(p.Specialties)+len(p.ResearchInterests))
	terms = append(terms, p.Specialties...)
	return append(terms, p.ResearchInterests...)
}

// HealthExpert is a directory entry. Platform members are projections of a
// ResearcherProfile and share its UserID.
type HealthExpert struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Specialty        string   `json:"specialty"`
	Location         string   `json:"location"`
	Email            *string  `json:"email,omitempty"`
	ProfileURL       *string  `json:"profile_url,omitempty"`
	IsPlatformMember bool     `json:"is_platform_member"`
	ResearchAreas    []string `json:"research_areas"`
	Bio              string   `json:"bio"`
	UserID           *string  `json:"user_id,omitempty"`
	YearsExperience  *int     `json:"years_experience,omitempty"`
	Sector           *string  `json:"sector,omitempty"`
	AvailableHours   *string  `json:"available_hours,omitempty"`
}

// ExpertSpecialty renders the directory specialty for a researcher profile:
// the first specialty, or the sector when none is set, followed by the sector.
func ExpertSpecialty(p *ResearcherProfile) string {
	display := p.Sector
	if len(p.Specialties) > 0 && p.Specialties[0] != "" {
		display = p.Specialties[0]
	}
	if display == "" {
		display = "General"
	}
	return display + " - " + p.Sector
}

// ExpertFromProfile derives the platform-member directory entry for p.
// ID is left empty; the repository keeps the existing entry ID on update.
func ExpertFromProfile(p *ResearcherProfile, email string) *HealthExpert {
	userID := p.UserID
	years := p.YearsExperience
	sector := p.Sector
	hours := p.AvailableHours
	areas := p.ResearchInterests
	if areas == nil {
		areas = []string{}
	}
	return &HealthExpert{
		Name:             p.Name,
		Specialty:        ExpertSpecialty(p),
		Location:         "Global",
		Email:            &email,
		IsPlatformMember: true,
		ResearchAreas:    areas,
		Bio:              p.Bio,
		UserID:           &userID,
		YearsExperience:  &years,
		Sector:           &sector,
		AvailableHours:   &hours,
	}
}

// RatingSummary aggregates reviews for a researcher
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
}
