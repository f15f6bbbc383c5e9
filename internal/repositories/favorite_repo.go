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

type FavoriteRepository struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepository(db *database.DB) *FavoriteRepository {
	return &FavoriteRepository{pool: db.Pool}
}

// Create inserts a favorite. The unique (user_id, item_type, item_id) index
// turns a duplicate, including a concurrent one, into models.ErrConflict.
func (r *FavoriteRepository) Create(ctx context.Context, f *models.Favorite) error {
	f.ID = uuid.New().String()
	f.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO favorites (id, user_id, item_type, item_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, f.ID, f.UserID, f.ItemType, f.ItemID, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create favorite: %w", database.MapPostgresError(err))
	}

	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Favorite, error) {
	query := `
		SELECT id, user_id, item_type, item_id, created_at
		FROM favorites WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]*models.Favorite, 0)
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.ItemType, &f.ItemID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return favorites, nil
}

// Delete removes a favorite owned by userID
func (r *FavoriteRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
