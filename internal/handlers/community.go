package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// ForumServiceInterface defines forums and posts
type ForumServiceInterface interface {
	List(ctx context.Context) ([]*models.Forum, error)
	Create(ctx context.Context, researcher *models.User, in services.ForumInput) (*models.Forum, error)
	Delete(ctx context.Context, user *models.User, forumID string) error
	ListPosts(ctx context.Context, forumID string) ([]*models.ForumPost, error)
	CreatePost(ctx context.Context, user *models.User, in services.PostInput) (*models.ForumPost, error)
	Join(ctx context.Context, user *models.User, forumID string) (*models.ForumMembership, bool, error)
	Leave(ctx context.Context, user *models.User, forumID string) error
	Membership(ctx context.Context, user *models.User, forumID string) (*services.MembershipStatus, error)
	Members(ctx context.Context, forumID string) ([]*models.ForumMembership, error)
}

// QAServiceInterface defines patient questions and researcher answers
type QAServiceInterface interface {
	Ask(ctx context.Context, patient *models.User, in services.QuestionInput) (*models.Question, error)
	List(ctx context.Context, condition string) ([]*models.Question, error)
	Get(ctx context.Context, id string) (*services.QuestionThread, error)
	Answer(ctx context.Context, researcher *models.User, in services.AnswerInput) (*models.Answer, error)
	Vote(ctx context.Context, user *models.User, answerID, voteType string) (*models.VoteTally, error)
}

// CommunityHandler serves forums and Q&A
type CommunityHandler struct {
	forums ForumServiceInterface
	qa     QAServiceInterface
	logger *slog.Logger
}

func NewCommunityHandler(forums ForumServiceInterface, qa QAServiceInterface, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{forums: forums, qa: qa, logger: logger}
}

type CreateForumRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Category    string `json:"category" validate:"omitempty,max=100"`
}

type CreatePostRequest struct {
	ForumID  string  `json:"forum_id" validate:"required,max=100"`
	Content  string  `json:"content" validate:"required,max=10000"`
	ParentID *string `json:"parent_id" validate:"omitempty,max=100"`
	ImageURL *string `json:"image_url" validate:"omitempty,url,max=2000"`
}

type AskQuestionRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=300"`
	Content     string  `json:"content" validate:"required,max=10000"`
	Condition   *string `json:"condition" validate:"omitempty,max=200"`
	IsAnonymous bool    `json:"is_anonymous"`
}

type AnswerRequest struct {
	QuestionID string  `json:"question_id" validate:"required,max=100"`
	Content    string  `json:"content" validate:"required,max=10000"`
	ParentID   *string `json:"parent_id" validate:"omitempty,max=100"`
}

type VoteRequest struct {
	AnswerID string `json:"answer_id" validate:"required,max=100"`
	VoteType string `json:"vote_type" validate:"required,oneof=like dislike"`
}

// JoinForumResponse reports a join; Status is "already_member" on a repeat
type JoinForumResponse struct {
	Status     string                  `json:"status"`
	Membership *models.ForumMembership `json:"membership"`
}

type MembersResponse struct {
	Members []*models.ForumMembership `json:"members"`
	Count   int                       `json:"count"`
}

// ListForums returns all forums
// @Router /api/forums [get]
func (h *CommunityHandler) ListForums(w http.ResponseWriter, r *http.Request) {
	forums, err := h.forums.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(forums))
}

// CreateForum creates a forum owned by the researcher
// @Router /api/forums/create [post]
func (h *CommunityHandler) CreateForum(w http.ResponseWriter, r *http.Request) {
	var req CreateForumRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	forum, err := h.forums.Create(r.Context(), auth.GetUserFromContext(r), services.ForumInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, forum)
}

// DeleteForum deletes a forum; only its creator may
// @Router /api/forums/{id} [delete]
func (h *CommunityHandler) DeleteForum(w http.ResponseWriter, r *http.Request) {
	if err := h.forums.Delete(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

// ListPosts returns a forum's posts
// @Router /api/forums/{id}/posts [get]
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.forums.ListPosts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(posts))
}

// CreatePost adds a post to a forum
// @Router /api/forums/posts [post]
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.forums.CreatePost(r.Context(), auth.GetUserFromContext(r), services.PostInput{
		ForumID:  req.ForumID,
		Content:  req.Content,
		ParentID: req.ParentID,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, post)
}

// AskQuestion posts a patient question
// @Router /api/qa/questions [post]
func (h *CommunityHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req AskQuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	q, err := h.qa.Ask(r.Context(), auth.GetUserFromContext(r), services.QuestionInput{
		Title:       req.Title,
		Content:     req.Content,
		Condition:   req.Condition,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, q)
}

// ListQuestions returns questions, optionally for one condition
// @Router /api/qa/questions [get]
func (h *CommunityHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.qa.List(r.Context(), r.URL.Query().Get("condition"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(questions))
}

// GetQuestion returns a question with its answers
// @Router /api/qa/questions/{id} [get]
func (h *CommunityHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	thread, err := h.qa.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	thread.Answers = nonNil(thread.Answers)
	pkghttp.WriteJSON(w, http.StatusOK, thread)
}

// AnswerQuestion posts a researcher answer
// @Router /api/qa/answers [post]
func (h *CommunityHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	answer, err := h.qa.Answer(r.Context(), auth.GetUserFromContext(r), services.AnswerInput{
		QuestionID: req.QuestionID,
		Content:    req.Content,
		ParentID:   req.ParentID,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, answer)
}

// JoinForum makes the user a member of a forum
// @Router /api/forums/{id}/join [post]
func (h *CommunityHandler) JoinForum(w http.ResponseWriter, r *http.Request) {
	membership, joined, err := h.forums.Join(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if !joined {
		pkghttp.WriteJSON(w, http.StatusOK, JoinForumResponse{Status: "already_member", Membership: membership})
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, JoinForumResponse{Status: "success", Membership: membership})
}

// LeaveForum removes the user from a forum
// @Router /api/forums/{id}/leave [post]
func (h *CommunityHandler) LeaveForum(w http.ResponseWriter, r *http.Request) {
	if err := h.forums.Leave(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

// Membership reports whether the user belongs to a forum
// @Router /api/forums/{id}/membership [get]
func (h *CommunityHandler) Membership(w http.ResponseWriter, r *http.Request) {
	status, err := h.forums.Membership(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// ListMembers returns a forum's members
// @Router /api/forums/{id}/members [get]
func (h *CommunityHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.forums.Members(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	members = nonNil(members)
	pkghttp.WriteJSON(w, http.StatusOK, MembersResponse{Members: members, Count: len(members)})
}

// VoteAnswer likes or dislikes an answer
// @Router /api/qa/vote [post]
func (h *CommunityHandler) VoteAnswer(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tally, err := h.qa.Vote(r.Context(), auth.GetUserFromContext(r), req.AnswerID, req.VoteType)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, tally)
}
