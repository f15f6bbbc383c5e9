package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/textclean"
)

// QuestionRepository defines Q&A storage
type QuestionRepository interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, condition string, limit int) ([]*models.Question, error)
	CreateAnswer(ctx context.Context, a *models.Answer) error
	ListAnswers(ctx context.Context, questionID string) ([]*models.Answer, error)
	Vote(ctx context.Context, answerID, userID, voteType string) (*models.VoteTally, error)
}

const questionsLimit = 100

type QuestionInput struct {
	Title       string
	Content     string
	Condition   *string
	IsAnonymous bool
}

type AnswerInput struct {
	QuestionID string
	Content    string
	ParentID   *string
}

// QuestionThread is a question with its answers
type QuestionThread struct {
	*models.Question
	Answers []*models.Answer `json:"answers"`
}

// QAService lets patients ask and researchers answer
type QAService struct {
	questions QuestionRepository
	profiles  ProfileRepository
	logger    *slog.Logger
}

func NewQAService(questions QuestionRepository, profiles ProfileRepository, logger *slog.Logger) *QAService {
	return &QAService{
		questions: questions,
		profiles:  profiles,
		logger:    logger,
	}
}

func (s *QAService) Ask(ctx context.Context, patient *models.User, in QuestionInput) (*models.Question, error) {
	q := &models.Question{
		PatientID:   patient.ID,
		Title:       strings.TrimSpace(in.Title),
		Content:     textclean.StripMarkup(in.Content),
		Condition:   in.Condition,
		IsAnonymous: in.IsAnonymous,
	}
	if q.Content == "" {
		return nil, fmt.Errorf("%w: content is empty", models.ErrBadRequest)
	}

	if err := s.questions.Create(ctx, q); err != nil {
		s.logger.Error("failed to create question",
			slog.String("user_id", patient.ID),
			slog.Any("error", err))
		return nil, err
	}
	return q, nil
}

// List returns questions, newest first, optionally for one condition
func (s *QAService) List(ctx context.Context, condition string) ([]*models.Question, error) {
	return s.questions.List(ctx, strings.TrimSpace(condition), questionsLimit)
}

func (s *QAService) Get(ctx context.Context, id string) (*QuestionThread, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	answers, err := s.questions.ListAnswers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QuestionThread{Question: q, Answers: answers}, nil
}

// Answer adds a researcher's answer. The researcher's profile supplies the
// display name and specialty when it exists.
func (s *QAService) Answer(ctx context.Context, researcher *models.User, in AnswerInput) (*models.Answer, error) {
	if _, err := s.questions.GetByID(ctx, in.QuestionID); err != nil {
		return nil, err
	}

	content := textclean.StripMarkup(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", models.ErrBadRequest)
	}

	answer := &models.Answer{
		QuestionID:     in.QuestionID,
		ResearcherID:   researcher.ID,
		ResearcherName: researcher.Name,
		Content:        content,
		ParentID:       in.ParentID,
	}

	profile, err := s.profiles.GetResearcherProfile(ctx, researcher.ID)
	switch {
	case err == nil:
		if profile.Name != "" {
			answer.ResearcherName = profile.Name
		}
		if len(profile.Specialties) > 0 {
			specialty := profile.Specialties[0]
			answer.ResearcherSpecialty = &specialty
		}
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	if err := s.questions.CreateAnswer(ctx, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// Vote records a like or dislike on an answer. Repeating the same vote
// withdraws it; the opposite vote replaces it.
func (s *QAService) Vote(ctx context.Context, user *models.User, answerID, voteType string) (*models.VoteTally, error) {
	switch voteType {
	case models.VoteLike, models.VoteDislike:
	default:
		return nil, fmt.Errorf("%w: vote must be like or dislike", models.ErrBadRequest)
	}

	tally, err := s.questions.Vote(ctx, answerID, user.ID, voteType)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("answer vote recorded",
		slog.String("answer_id", answerID),
		slog.String("vote", tally.Vote))
	return tally, nil
}
