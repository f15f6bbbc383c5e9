package repositories

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(db *database.DB) *AppointmentRepository {
	return &AppointmentRepository{pool: db.Pool}
}

const appointmentColumns = `id, patient_id, patient_name, researcher_id, condition, location,
	duration_suffering, status, created_at, updated_at`

func scanAppointmentRow(scanner rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	err := scanner.Scan(
		&a.ID, &a.PatientID, &a.PatientName, &a.ResearcherID, &a.Condition, &a.Location,
		&a.DurationSuffering, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	a.ID = uuid.New().String()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = models.AppointmentPending
	}

	query := `
		INSERT INTO appointments (id, patient_id, patient_name, researcher_id, condition, location,
			duration_suffering, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + appointmentColumns

	created, err := scanAppointmentRow(r.pool.QueryRow(ctx, query,
		a.ID, a.PatientID, a.PatientName, a.ResearcherID, a.Condition, a.Location,
		a.DurationSuffering, a.Status, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	return created, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointmentRow(r.pool.QueryRow(ctx, query, id))
}

// ListForUser returns appointments where userID is the patient or the
// researcher, each with its active chat room when one is open
func (r *AppointmentRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Appointment, error) {
	query := `
		SELECT a.id, a.patient_id, a.patient_name, a.researcher_id, a.condition, a.location,
		       a.duration_suffering, a.status, a.created_at, a.updated_at, c.id
		FROM appointments a
		LEFT JOIN chat_rooms c ON c.appointment_id = a.id AND c.status = 'active'
		WHERE a.patient_id = $1 OR a.researcher_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]*models.Appointment, 0)
	for rows.Next() {
		var a models.Appointment
		err := rows.Scan(
			&a.ID, &a.PatientID, &a.PatientName, &a.ResearcherID, &a.Condition, &a.Location,
			&a.DurationSuffering, &a.Status, &a.CreatedAt, &a.UpdatedAt, &a.ChatRoomID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return appointments, nil
}

// UpdateStatus changes the status of an appointment owned by researcherID.
// Appointments of other researchers are reported as models.ErrNotFound.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id, researcherID, status string) (*models.Appointment, error) {
	query := `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND researcher_id = $2
		RETURNING ` + appointmentColumns

	return scanAppointmentRow(r.pool.QueryRow(ctx, query, id, researcherID, status))
}

type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(db *database.DB) *ReviewRepository {
	return &ReviewRepository{pool: db.Pool}
}

// Create stores a review. A second review of the same appointment is models.ErrConflict.
func (r *ReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	rv.ID = uuid.New().String()
	rv.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO reviews (id, appointment_id, patient_id, researcher_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		rv.ID, rv.AppointmentID, rv.PatientID, rv.ResearcherID, rv.Rating, rv.Comment, rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", database.MapPostgresError(err))
	}

	return nil
}

func (r *ReviewRepository) ListByResearcher(ctx context.Context, researcherID string, limit int) ([]*models.Review, error) {
	query := `
		SELECT id, appointment_id, patient_id, researcher_id, rating, comment, created_at
		FROM reviews WHERE researcher_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, researcherID, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]*models.Review, 0)
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.AppointmentID, &rv.PatientID, &rv.ResearcherID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, &rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return reviews, nil
}

// Summaries aggregates ratings per researcher. Researchers without reviews
// are absent from the result.
func (r *ReviewRepository) Summaries(ctx context.Context, researcherIDs []string) (map[string]models.RatingSummary, error) {
	out := make(map[string]models.RatingSummary, len(researcherIDs))
	if len(researcherIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT researcher_id, AVG(rating)::float8, COUNT(*)
		FROM reviews WHERE researcher_id = ANY($1)
		GROUP BY researcher_id
	`

	rows, err := r.pool.Query(ctx, query, researcherIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var avg float64
		var count int
		if err := rows.Scan(&id, &avg, &count); err != nil {
			return nil, fmt.Errorf("failed to scan review summary: %w", err)
		}
		out[id] = models.RatingSummary{AverageRating: math.Round(avg*10) / 10, TotalReviews: count}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}
