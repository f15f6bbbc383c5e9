package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuestionRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewQuestionRepository(db *database.DB) *QuestionRepository {
	return &QuestionRepository{db: db, pool: db.Pool}
}

const questionSelect = `
	SELECT q.id, q.patient_id, q.title, q.content, q.condition, q.is_anonymous,
	       (SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id), q.created_at
	FROM questions q`

func scanQuestionRow(scanner rowScanner) (*models.Question, error) {
	var q models.Question
	err := scanner.Scan(&q.ID, &q.PatientID, &q.Title, &q.Content, &q.Condition, &q.IsAnonymous, &q.AnswerCount, &q.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &q, nil
}

func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	q.ID = uuid.New().String()
	q.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO questions (id, patient_id, title, content, condition, is_anonymous, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query, q.ID, q.PatientID, q.Title, q.Content, q.Condition, q.IsAnonymous, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", database.MapPostgresError(err))
	}

	return nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	return scanQuestionRow(r.pool.QueryRow(ctx, questionSelect+` WHERE q.id = $1`, id))
}

// List returns questions newest first, optionally narrowed by condition
func (r *QuestionRepository) List(ctx context.Context, condition string, limit int) ([]*models.Question, error) {
	query := questionSelect + `
		WHERE ($1 = '' OR q.condition ILIKE '%' || $1 || '%')
		ORDER BY q.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, condition, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	questions := make([]*models.Question, 0)
	for rows.Next() {
		q, err := scanQuestionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return questions, nil
}

// CreateAnswer stores an answer. A missing question surfaces as models.ErrBadRequest.
func (r *QuestionRepository) CreateAnswer(ctx context.Context, a *models.Answer) error {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO answers (id, question_id, researcher_id, researcher_name, researcher_specialty, content, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.QuestionID, a.ResearcherID, a.ResearcherName, a.ResearcherSpecialty, a.Content, a.ParentID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create answer: %w", database.MapPostgresError(err))
	}

	return nil
}

func (r *QuestionRepository) ListAnswers(ctx context.Context, questionID string) ([]*models.Answer, error) {
	query := `
		SELECT id, question_id, researcher_id, researcher_name, researcher_specialty, content, likes, dislikes, parent_id, created_at
		FROM answers WHERE question_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	answers := make([]*models.Answer, 0)
	for rows.Next() {
		var a models.Answer
		err := rows.Scan(&a.ID, &a.QuestionID, &a.ResearcherID, &a.ResearcherName, &a.ResearcherSpecialty, &a.Content, &a.Likes, &a.Dislikes, &a.ParentID, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return answers, nil
}

// Vote applies userID's like or dislike to an answer. Repeating the
// standing vote withdraws it; the opposite vote switches it. Counts move
// in the same transaction as the vote row.
func (r *QuestionRepository) Vote(ctx context.Context, answerID, userID, voteType string) (*models.VoteTally, error) {
	tally := &models.VoteTally{AnswerID: answerID}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM answers WHERE id = $1 FOR UPDATE`, answerID).Scan(&locked)
		if err != nil {
			return database.MapPostgresError(err)
		}

		var previous string
		err = tx.QueryRow(ctx, `SELECT vote_type FROM answer_votes WHERE answer_id = $1 AND user_id = $2`, answerID, userID).Scan(&previous)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to read vote: %w", err)
		}

		likes, dislikes := 0, 0
		switch previous {
		case "":
			_, err = tx.Exec(ctx, `
				INSERT INTO answer_votes (id, answer_id, user_id, vote_type, created_at)
				VALUES ($1, $2, $3, $4, NOW())`, uuid.New().String(), answerID, userID, voteType)
			likes, dislikes = voteDelta(voteType, 1)
			tally.Vote = voteType
		case voteType:
			_, err = tx.Exec(ctx, `DELETE FROM answer_votes WHERE answer_id = $1 AND user_id = $2`, answerID, userID)
			likes, dislikes = voteDelta(voteType, -1)
		default:
			_, err = tx.Exec(ctx, `UPDATE answer_votes SET vote_type = $3 WHERE answer_id = $1 AND user_id = $2`, answerID, userID, voteType)
			likes, dislikes = voteDelta(voteType, 1)
			undoLikes, undoDislikes := voteDelta(previous, -1)
			likes, dislikes = likes+undoLikes, dislikes+undoDislikes
			tally.Vote = voteType
		}
		if err != nil {
			return fmt.Errorf("failed to record vote: %w", database.MapPostgresError(err))
		}

		return tx.QueryRow(ctx, `
			UPDATE answers SET likes = likes + $2, dislikes = dislikes + $3
			WHERE id = $1
			RETURNING likes, dislikes`, answerID, likes, dislikes).Scan(&tally.Likes, &tally.Dislikes)
	})
	if err != nil {
		return nil, err
	}

	return tally, nil
}

func voteDelta(voteType string, n int) (likes, dislikes int) {
	if voteType == models.VoteLike {
		return n, 0
	}
	return 0, n
}
