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

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, email, name, picture, roles, created_at, updated_at`

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var roles []string

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Name, &user.Picture, &roles,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Roles = toRoles(roles)
	return &user, nil
}

func toRoles(raw []string) []models.Role {
	roles := make([]models.Role, 0, len(raw))
	for _, r := range raw {
		roles = append(roles, models.Role(r))
	}
	return roles
}

func fromRoles(roles []models.Role) []string {
	raw := make([]string, 0, len(roles))
	for _, r := range roles {
		raw = append(raw, string(r))
	}
	return raw
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

// Create inserts a new user. A duplicate email surfaces as models.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, name, picture, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.Picture, fromRoles(user.Roles),
		user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// UpdateRoles replaces the stored role set
func (r *UserRepository) UpdateRoles(ctx context.Context, id string, roles []models.Role) (*models.User, error) {
	query := `
		UPDATE users SET roles = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, id, fromRoles(roles)))
}
