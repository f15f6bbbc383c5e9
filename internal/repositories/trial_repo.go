package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TrialRepository struct {
	pool *pgxpool.Pool
}

func NewTrialRepository(db *database.DB) *TrialRepository {
	return &TrialRepository{pool: db.Pool}
}

const trialColumns = `id, external_id, source, title, description, phase, status, location, eligibility,
	disease_areas, enrollment, last_update, contact_email, created_by, summary, created_at`

func scanTrialRow(scanner rowScanner) (*models.ClinicalTrial, error) {
	var t models.ClinicalTrial
	err := scanner.Scan(
		&t.ID, &t.ExternalID, &t.Source, &t.Title, &t.Description, &t.Phase, &t.Status, &t.Location, &t.Eligibility,
		&t.DiseaseAreas, &t.Enrollment, &t.LastUpdate, &t.ContactEmail, &t.CreatedBy, &t.Summary, &t.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

func scanTrialRows(rows pgx.Rows) ([]*models.ClinicalTrial, error) {
	defer rows.Close()

	trials := make([]*models.ClinicalTrial, 0)
	for rows.Next() {
		t, err := scanTrialRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return trials, nil
}

func (r *TrialRepository) Create(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()
	if t.Source == "" {
		t.Source = models.SourceLocal
	}

	query := `
		INSERT INTO clinical_trials (id, external_id, source, title, description, phase, status, location,
			eligibility, disease_areas, enrollment, last_update, contact_email, created_by, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + trialColumns

	created, err := scanTrialRow(r.pool.QueryRow(ctx, query,
		t.ID, t.ExternalID, t.Source, t.Title, t.Description, t.Phase, t.Status, t.Location,
		t.Eligibility, nonNil(t.DiseaseAreas), t.Enrollment, t.LastUpdate, t.ContactEmail, t.CreatedBy, t.Summary, t.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create trial: %w", err)
	}

	return created, nil
}

// UpsertExternal materializes a trial fetched from an external registry,
// keyed by its external id, and returns the stored row.
func (r *TrialRepository) UpsertExternal(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error) {
	if t.ExternalID == nil || *t.ExternalID == "" {
		return nil, fmt.Errorf("external trial requires an external id: %w", models.ErrBadRequest)
	}

	query := `
		INSERT INTO clinical_trials (id, external_id, source, title, description, phase, status, location,
			eligibility, disease_areas, enrollment, last_update, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (external_id) WHERE external_id IS NOT NULL DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    phase = EXCLUDED.phase,
		    status = EXCLUDED.status,
		    location = EXCLUDED.location,
		    eligibility = EXCLUDED.eligibility,
		    disease_areas = EXCLUDED.disease_areas,
		    enrollment = EXCLUDED.enrollment,
		    last_update = EXCLUDED.last_update
		RETURNING ` + trialColumns

	stored, err := scanTrialRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), t.ExternalID, t.Source, t.Title, t.Description, t.Phase, t.Status, t.Location,
		t.Eligibility, nonNil(t.DiseaseAreas), t.Enrollment, t.LastUpdate, t.Summary,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert trial: %w", err)
	}

	return stored, nil
}

func (r *TrialRepository) GetByID(ctx context.Context, id string) (*models.ClinicalTrial, error) {
	query := `SELECT ` + trialColumns + ` FROM clinical_trials WHERE id = $1`
	return scanTrialRow(r.pool.QueryRow(ctx, query, id))
}

// GetByExternalID finds a trial materialized from the registry by its NCT id
func (r *TrialRepository) GetByExternalID(ctx context.Context, externalID string) (*models.ClinicalTrial, error) {
	query := `SELECT ` + trialColumns + ` FROM clinical_trials WHERE external_id = $1`
	return scanTrialRow(r.pool.QueryRow(ctx, query, externalID))
}

// List returns local trials. Condition matches the title or any disease area.
func (r *TrialRepository) List(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error) {
	query := `
		SELECT ` + trialColumns + `
		FROM clinical_trials
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%'
		       OR EXISTS (SELECT 1 FROM unnest(disease_areas) d WHERE d ILIKE '%' || $1 || '%'))
		  AND ($2 = '' OR location ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR status ILIKE $3)
		  AND ($4 = '' OR created_by = $4)
		ORDER BY created_at DESC
		LIMIT $5
	`

	rows, err := r.pool.Query(ctx, query, f.Condition, f.Location, f.Status, f.CreatedBy, limitOrDefault(f.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}

	return scanTrialRows(rows)
}
