package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curalink/curalink/internal/models"
	pkglogger "github.com/curalink/curalink/pkg/logger"
)

// ProfileRepository defines profile and expert directory storage
type ProfileRepository interface {
	GetPatientProfile(ctx context.Context, userID string) (*models.PatientProfile, error)
	UpsertPatientProfile(ctx context.Context, p *models.PatientProfile) error
	GetResearcherProfile(ctx context.Context, userID string) (*models.ResearcherProfile, error)
	ListResearchers(ctx context.Context, excludeUserID, specialty string, limit int) ([]*models.ResearcherProfile, error)
	SaveResearcherProfile(ctx context.Context, p *models.ResearcherProfile, expert *models.HealthExpert) error
	GetExpertByID(ctx context.Context, id string) (*models.HealthExpert, error)
	GetExpertByUserID(ctx context.Context, userID string) (*models.HealthExpert, error)
	ListExperts(ctx context.Context, f models.ExpertFilter) ([]*models.HealthExpert, error)
}

// PatientProfileInput is a partial update; nil fields keep their stored value
type PatientProfileInput struct {
	Conditions *[]string
	Location   *string
	Interests  *[]string
}

// ResearcherProfileInput is a partial update; nil fields keep their stored value.
// Name, Age, YearsExperience and Sector are required when no profile exists yet.
type ResearcherProfileInput struct {
	Name                 *string
	Specialties          *[]string
	ResearchInterests    *[]string
	Age                  *int
	YearsExperience      *int
	Sector               *string
	AvailableHours       *string
	ORCID                *string
	ResearchGate         *string
	AvailableForMeetings *bool
	Bio                  *string
}

// ProfileService manages patient and researcher profiles
type ProfileService struct {
	repo        ProfileRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewProfileService(repo ProfileRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ProfileService {
	return &ProfileService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

func (s *ProfileService) GetPatientProfile(ctx context.Context, userID string) (*models.PatientProfile, error) {
	return s.repo.GetPatientProfile(ctx, userID)
}

// SavePatientProfile creates or partially updates the caller's patient profile
func (s *ProfileService) SavePatientProfile(ctx context.Context, user *models.User, in PatientProfileInput) (*models.PatientProfile, error) {
	if !user.HasRole(models.RolePatient) {
		return nil, &models.ForbiddenError{Required: []models.Role{models.RolePatient}}
	}

	profile, err := s.repo.GetPatientProfile(ctx, user.ID)
	created := false
	switch {
	case errors.Is(err, models.ErrNotFound):
		profile = &models.PatientProfile{
			UserID:     user.ID,
			Conditions: []string{},
			Interests:  []string{},
		}
		created = true
	case err != nil:
		return nil, err
	}

	if in.Conditions != nil {
		profile.Conditions = cleanList(*in.Conditions)
	}
	if in.Interests != nil {
		profile.Interests = cleanList(*in.Interests)
	}
	if in.Location != nil {
		location := strings.TrimSpace(*in.Location)
		profile.Location = &location
	}

	if err := s.repo.UpsertPatientProfile(ctx, profile); err != nil {
		s.logger.Error("failed to save patient profile",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, err
	}

	if created {
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventProfileCreated, user.ID, "",
			map[string]string{"role": string(models.RolePatient)})
	}
	return profile, nil
}

func (s *ProfileService) GetResearcherProfile(ctx context.Context, userID string) (*models.ResearcherProfile, error) {
	return s.repo.GetResearcherProfile(ctx, userID)
}

// SaveResearcherProfile upserts the researcher profile and its directory
// entry together, so the directory reflects the write immediately.
func (s *ProfileService) SaveResearcherProfile(ctx context.Context, user *models.User, in ResearcherProfileInput) (*models.ResearcherProfile, error) {
	if !user.HasRole(models.RoleResearcher) {
		return nil, &models.ForbiddenError{Required: []models.Role{models.RoleResearcher}}
	}

	profile, err := s.repo.GetResearcherProfile(ctx, user.ID)
	created := false
	switch {
	case errors.Is(err, models.ErrNotFound):
		if in.Name == nil || in.Age == nil || in.YearsExperience == nil || in.Sector == nil {
			return nil, fmt.Errorf("%w: name, age, years_experience and sector are required", models.ErrBadRequest)
		}
		profile = &models.ResearcherProfile{
			UserID:            user.ID,
			Specialties:       []string{},
			ResearchInterests: []string{},
		}
		created = true
	case err != nil:
		return nil, err
	}

	applyResearcherInput(profile, in)

	expert := models.ExpertFromProfile(profile, user.Email)
	if err := s.repo.SaveResearcherProfile(ctx, profile, expert); err != nil {
		s.logger.Error("failed to save researcher profile",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, err
	}

	if created {
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventProfileCreated, user.ID, "",
			map[string]string{"role": string(models.RoleResearcher)})
	}
	return profile, nil
}

func applyResearcherInput(p *models.ResearcherProfile, in ResearcherProfileInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Specialties != nil {
		p.Specialties = cleanList(*in.Specialties)
	}
	if in.ResearchInterests != nil {
		p.ResearchInterests = cleanList(*in.ResearchInterests)
	}
	if in.Age != nil {
		p.Age = *in.Age
	}
	if in.YearsExperience != nil {
		p.YearsExperience = *in.YearsExperience
	}
	if in.Sector != nil {
		p.Sector = strings.TrimSpace(*in.Sector)
	}
	if in.AvailableHours != nil {
		p.AvailableHours = *in.AvailableHours
	}
	if in.ORCID != nil {
		p.ORCID = in.ORCID
	}
	if in.ResearchGate != nil {
		p.ResearchGate = in.ResearchGate
	}
	if in.AvailableForMeetings != nil {
		p.AvailableForMeetings = *in.AvailableForMeetings
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
}

// cleanList trims entries and drops empty ones
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
