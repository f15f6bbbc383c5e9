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

type ForumRepository struct {
	db *database.DB
}

func NewForumRepository(db *database.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

const forumColumns = `id, name, description, category, post_count, created_by, created_by_name, created_at`

func scanForumRow(scanner rowScanner) (*models.Forum, error) {
	var f models.Forum
	err := scanner.Scan(&f.ID, &f.Name, &f.Description, &f.Category, &f.PostCount, &f.CreatedBy, &f.CreatedByName, &f.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &f, nil
}

func (r *ForumRepository) List(ctx context.Context) ([]*models.Forum, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+forumColumns+` FROM forums ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query forums: %w", err)
	}
	defer rows.Close()

	forums := make([]*models.Forum, 0)
	for rows.Next() {
		f, err := scanForumRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forum: %w", err)
		}
		forums = append(forums, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return forums, nil
}

func (r *ForumRepository) GetByID(ctx context.Context, id string) (*models.Forum, error) {
	return scanForumRow(r.db.Pool.QueryRow(ctx, `SELECT `+forumColumns+` FROM forums WHERE id = $1`, id))
}

func (r *ForumRepository) Create(ctx context.Context, f *models.Forum) (*models.Forum, error) {
	f.ID = uuid.New().String()
	f.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO forums (id, name, description, category, post_count, created_by, created_by_name, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
		RETURNING ` + forumColumns

	created, err := scanForumRow(r.db.Pool.QueryRow(ctx, query,
		f.ID, f.Name, f.Description, f.Category, f.CreatedBy, f.CreatedByName, f.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create forum: %w", err)
	}

	return created, nil
}

func (r *ForumRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM forums WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *ForumRepository) ListPosts(ctx context.Context, forumID string, limit int) ([]*models.ForumPost, error) {
	query := `
		SELECT id, forum_id, user_id, user_name, user_role, content, parent_id, image_url, created_at
		FROM forum_posts WHERE forum_id = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, forumID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query forum posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.ForumPost, 0)
	for rows.Next() {
		var p models.ForumPost
		err := rows.Scan(&p.ID, &p.ForumID, &p.UserID, &p.UserName, &p.UserRole, &p.Content, &p.ParentID, &p.ImageURL, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forum post: %w", err)
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return posts, nil
}

// CreatePost inserts the post and bumps the forum's post count atomically.
// A missing forum is reported as models.ErrNotFound.
func (r *ForumRepository) CreatePost(ctx context.Context, p *models.ForumPost) error {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `UPDATE forums SET post_count = post_count + 1 WHERE id = $1`, p.ForumID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		query := `
			INSERT INTO forum_posts (id, forum_id, user_id, user_name, user_role, content, parent_id, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.Exec(ctx, query, p.ID, p.ForumID, p.UserID, p.UserName, p.UserRole, p.Content, p.ParentID, p.ImageURL, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create forum post: %w", database.MapPostgresError(err))
		}

		return nil
	})
}

// DeletePostsByForum removes every post of a forum and reports how many went
func (r *ForumRepository) DeletePostsByForum(ctx context.Context, forumID string) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM forum_posts WHERE forum_id = $1`, forumID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

const membershipColumns = `id, forum_id, forum_name, user_id, user_name, specialty, is_moderator, joined_at`

func scanMembershipRow(scanner rowScanner) (*models.ForumMembership, error) {
	var m models.ForumMembership
	err := scanner.Scan(&m.ID, &m.ForumID, &m.ForumName, &m.UserID, &m.UserName, &m.Specialty, &m.IsModerator, &m.JoinedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &m, nil
}

// CreateMembership joins a user to a forum. Joining twice is models.ErrConflict.
func (r *ForumRepository) CreateMembership(ctx context.Context, m *models.ForumMembership) error {
	m.ID = uuid.New().String()
	m.JoinedAt = time.Now().UTC()

	query := `
		INSERT INTO forum_memberships (id, forum_id, forum_name, user_id, user_name, specialty, is_moderator, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		m.ID, m.ForumID, m.ForumName, m.UserID, m.UserName, m.Specialty, m.IsModerator, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to create forum membership: %w", database.MapPostgresError(err))
	}

	return nil
}

func (r *ForumRepository) GetMembership(ctx context.Context, forumID, userID string) (*models.ForumMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM forum_memberships WHERE forum_id = $1 AND user_id = $2`
	return scanMembershipRow(r.db.Pool.QueryRow(ctx, query, forumID, userID))
}

func (r *ForumRepository) DeleteMembership(ctx context.Context, forumID, userID string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM forum_memberships WHERE forum_id = $1 AND user_id = $2`, forumID, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ListMembers returns a forum's members in join order
func (r *ForumRepository) ListMembers(ctx context.Context, forumID string, limit int) ([]*models.ForumMembership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM forum_memberships WHERE forum_id = $1
		ORDER BY joined_at
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, forumID, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query forum members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.ForumMembership, 0)
	for rows.Next() {
		m, err := scanMembershipRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forum membership: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return members, nil
}
