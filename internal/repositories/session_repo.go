package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

// Create persists a session. A reused token surfaces as models.ErrConflict.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New().String()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (id, user_id, session_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID, session.UserID, session.SessionToken, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", database.MapPostgresError(err))
	}

	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, user_id, session_token, expires_at, created_at
		FROM sessions WHERE session_token = $1
	`

	var s models.Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &s, nil
}

// DeleteByToken removes the session. Deleting an unknown token is not an error.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, token)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// DeleteExpired purges every session whose expiry is not after now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
