package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository stores patient and researcher profiles together with the
// health expert directory entries derived from researcher profiles.
type ProfileRepository struct {
	db *database.DB
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetPatientProfile(ctx context.Context, userID string) (*models.PatientProfile, error) {
	query := `
		SELECT user_id, conditions, location, interests, created_at, updated_at
		FROM patient_profiles WHERE user_id = $1
	`

	var p models.PatientProfile
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Conditions, &p.Location, &p.Interests, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

func (r *ProfileRepository) UpsertPatientProfile(ctx context.Context, p *models.PatientProfile) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO patient_profiles (user_id, conditions, location, interests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET conditions = EXCLUDED.conditions,
		    location = EXCLUDED.location,
		    interests = EXCLUDED.interests,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query, p.UserID, nonNil(p.Conditions), p.Location, nonNil(p.Interests), now).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save patient profile: %w", database.MapPostgresError(err))
	}

	return nil
}

const researcherColumns = `user_id, name, specialties, research_interests, age, years_experience, sector,
	available_hours, orcid, researchgate, available_for_meetings, bio, created_at, updated_at`

func scanResearcherRow(scanner rowScanner) (*models.ResearcherProfile, error) {
	var p models.ResearcherProfile
	err := scanner.Scan(
		&p.UserID, &p.Name, &p.Specialties, &p.ResearchInterests, &p.Age, &p.YearsExperience, &p.Sector,
		&p.AvailableHours, &p.ORCID, &p.ResearchGate, &p.AvailableForMeetings, &p.Bio, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

func (r *ProfileRepository) GetResearcherProfile(ctx context.Context, userID string) (*models.ResearcherProfile, error) {
	query := `SELECT ` + researcherColumns + ` FROM researcher_profiles WHERE user_id = $1`
	return scanResearcherRow(r.db.Pool.QueryRow(ctx, query, userID))
}

// ListResearchers returns researcher profiles other than excludeUserID,
// optionally narrowed by a case-insensitive specialty substring.
func (r *ProfileRepository) ListResearchers(ctx context.Context, excludeUserID, specialty string, limit int) ([]*models.ResearcherProfile, error) {
	query := `
		SELECT ` + researcherColumns + `
		FROM researcher_profiles
		WHERE user_id <> $1
		  AND ($2 = '' OR EXISTS (SELECT 1 FROM unnest(specialties) s WHERE s ILIKE '%' || $2 || '%'))
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, excludeUserID, specialty, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query researchers: %w", err)
	}
	defer rows.Close()

	profiles := make([]*models.ResearcherProfile, 0)
	for rows.Next() {
		p, err := scanResearcherRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan researcher: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return profiles, nil
}

// SaveResearcherProfile upserts the profile and its directory entry in one
// transaction so the directory never lags the profile.
func (r *ProfileRepository) SaveResearcherProfile(ctx context.Context, p *models.ResearcherProfile, expert *models.HealthExpert) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		profileQuery := `
			INSERT INTO researcher_profiles (user_id, name, specialties, research_interests, age, years_experience,
				sector, available_hours, orcid, researchgate, available_for_meetings, bio, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
			ON CONFLICT (user_id) DO UPDATE
			SET name = EXCLUDED.name,
			    specialties = EXCLUDED.specialties,
			    research_interests = EXCLUDED.research_interests,
			    age = EXCLUDED.age,
			    years_experience = EXCLUDED.years_experience,
			    sector = EXCLUDED.sector,
			    available_hours = EXCLUDED.available_hours,
			    orcid = EXCLUDED.orcid,
			    researchgate = EXCLUDED.researchgate,
			    available_for_meetings = EXCLUDED.available_for_meetings,
			    bio = EXCLUDED.bio,
			    updated_at = EXCLUDED.updated_at
			RETURNING created_at, updated_at
		`
		err := tx.QueryRow(ctx, profileQuery,
			p.UserID, p.Name, nonNil(p.Specialties), nonNil(p.ResearchInterests), p.Age, p.YearsExperience,
			p.Sector, p.AvailableHours, p.ORCID, p.ResearchGate, p.AvailableForMeetings, p.Bio, now,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save researcher profile: %w", database.MapPostgresError(err))
		}

		expertQuery := `
			INSERT INTO health_experts (id, name, specialty, location, email, is_platform_member, research_areas,
				bio, user_id, years_experience, sector, available_hours)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (user_id) WHERE user_id IS NOT NULL DO UPDATE
			SET name = EXCLUDED.name,
			    specialty = EXCLUDED.specialty,
			    location = EXCLUDED.location,
			    email = EXCLUDED.email,
			    is_platform_member = TRUE,
			    research_areas = EXCLUDED.research_areas,
			    bio = EXCLUDED.bio,
			    years_experience = EXCLUDED.years_experience,
			    sector = EXCLUDED.sector,
			    available_hours = EXCLUDED.available_hours
			RETURNING id
		`
		err = tx.QueryRow(ctx, expertQuery,
			uuid.New().String(), expert.Name, expert.Specialty, expert.Location, expert.Email,
			nonNil(expert.ResearchAreas), expert.Bio, expert.UserID, expert.YearsExperience, expert.Sector,
			expert.AvailableHours,
		).Scan(&expert.ID)
		if err != nil {
			return fmt.Errorf("failed to save health expert: %w", database.MapPostgresError(err))
		}

		return nil
	})
}

const expertColumns = `id, name, specialty, location, email, profile_url, is_platform_member, research_areas,
	bio, user_id, years_experience, sector, available_hours`

func scanExpertRow(scanner rowScanner) (*models.HealthExpert, error) {
	var e models.HealthExpert
	err := scanner.Scan(
		&e.ID, &e.Name, &e.Specialty, &e.Location, &e.Email, &e.ProfileURL, &e.IsPlatformMember, &e.ResearchAreas,
		&e.Bio, &e.UserID, &e.YearsExperience, &e.Sector, &e.AvailableHours,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &e, nil
}

func (r *ProfileRepository) GetExpertByID(ctx context.Context, id string) (*models.HealthExpert, error) {
	query := `SELECT ` + expertColumns + ` FROM health_experts WHERE id = $1`
	return scanExpertRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *ProfileRepository) GetExpertByUserID(ctx context.Context, userID string) (*models.HealthExpert, error) {
	query := `SELECT ` + expertColumns + ` FROM health_experts WHERE user_id = $1`
	return scanExpertRow(r.db.Pool.QueryRow(ctx, query, userID))
}

func (r *ProfileRepository) ListExperts(ctx context.Context, f models.ExpertFilter) ([]*models.HealthExpert, error) {
	query := `
		SELECT ` + expertColumns + `
		FROM health_experts
		WHERE ($1 = '' OR specialty ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR location ILIKE '%' || $2 || '%')
		ORDER BY is_platform_member DESC, name
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, f.Specialty, f.Location, limitOrDefault(f.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query experts: %w", err)
	}
	defer rows.Close()

	experts := make([]*models.HealthExpert, 0)
	for rows.Next() {
		e, err := scanExpertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expert: %w", err)
		}
		experts = append(experts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return experts, nil
}

// nonNil keeps NOT NULL array columns from receiving SQL NULL
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
