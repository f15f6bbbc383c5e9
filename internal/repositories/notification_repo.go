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

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{pool: db.Pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO notifications (id, user_id, type, title, content, link, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`

	_, err := r.pool.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Content, n.Link, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", database.MapPostgresError(err))
	}

	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, content, link, read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return notifications, nil
}

// MarkRead flags a notification owned by userID as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	result, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}
