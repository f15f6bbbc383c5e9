package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
)

func TestCommunityHandler_Forums(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		forums := &MockForumService{
			CreateFunc: func(ctx context.Context, researcher *models.User, in services.ForumInput) (*models.Forum, error) {
				return &models.Forum{ID: "f1", Name: in.Name, CreatedBy: researcher.ID}, nil
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/forums/create", CreateForumRequest{Name: "Oncology"}), testResearcher())
		w := httptest.NewRecorder()
		h.CreateForum(w, req)

		var resp models.Forum
		AssertJSONResponse(t, w, http.StatusCreated, &resp)
		assert.Equal(t, "Oncology", resp.Name)
		assert.Equal(t, "researcher-1", resp.CreatedBy)
	})

	t.Run("delete by non-creator is forbidden", func(t *testing.T) {
		forums := &MockForumService{
			DeleteFunc: func(ctx context.Context, user *models.User, forumID string) error {
				return &models.ForbiddenError{}
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodDelete, "/api/forums/f1", nil), testResearcher()), "id", "f1")
		w := httptest.NewRecorder()
		h.DeleteForum(w, req)

		AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")
	})

	t.Run("post with invalid image url", func(t *testing.T) {
		h := NewCommunityHandler(&MockForumService{}, &MockQAService{}, testLogger())

		body := CreatePostRequest{ForumID: "f1", Content: "hi", ImageURL: strPtr("not a url")}
		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/forums/posts", body), testPatient())
		w := httptest.NewRecorder()
		h.CreatePost(w, req)

		AssertErrorResponse(t, w, http.StatusBadRequest, "validation_failed")
	})

	t.Run("list posts of unknown forum", func(t *testing.T) {
		forums := &MockForumService{
			ListPostsFunc: func(ctx context.Context, forumID string) ([]*models.ForumPost, error) {
				return nil, models.ErrNotFound
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodGet, "/", nil), testPatient()), "id", "missing")
		w := httptest.NewRecorder()
		h.ListPosts(w, req)

		AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})
}

func TestCommunityHandler_QA(t *testing.T) {
	t.Run("list filters by condition", func(t *testing.T) {
		qa := &MockQAService{
			ListFunc: func(ctx context.Context, condition string) ([]*models.Question, error) {
				assert.Equal(t, "diabetes", condition)
				return []*models.Question{{ID: "q1", Title: "Diet?"}}, nil
			},
		}
		h := NewCommunityHandler(&MockForumService{}, qa, testLogger())

		req := WithUser(httptest.NewRequest(http.MethodGet, "/api/qa/questions?condition=diabetes", nil), testPatient())
		w := httptest.NewRecorder()
		h.ListQuestions(w, req)

		var resp []models.Question
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, "q1", resp[0].ID)
	})

	t.Run("get thread", func(t *testing.T) {
		qa := &MockQAService{
			GetFunc: func(ctx context.Context, id string) (*services.QuestionThread, error) {
				return &services.QuestionThread{Question: &models.Question{ID: id, Title: "Diet?"}}, nil
			},
		}
		h := NewCommunityHandler(&MockForumService{}, qa, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodGet, "/", nil), testPatient()), "id", "q1")
		w := httptest.NewRecorder()
		h.GetQuestion(w, req)

		var resp map[string]any
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "q1", resp["id"])
		assert.Equal(t, []any{}, resp["answers"])
	})

	t.Run("answer requires researcher", func(t *testing.T) {
		qa := &MockQAService{
			AnswerFunc: func(ctx context.Context, researcher *models.User, in services.AnswerInput) (*models.Answer, error) {
				return nil, &models.ForbiddenError{Required: []models.Role{models.RoleResearcher}}
			},
		}
		h := NewCommunityHandler(&MockForumService{}, qa, testLogger())

		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/qa/answers", AnswerRequest{QuestionID: "q1", Content: "x"}), testPatient())
		w := httptest.NewRecorder()
		h.AnswerQuestion(w, req)

		resp := AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")
		assert.Equal(t, "requires researcher role", resp.Message)
	})
}

func TestCommunityHandler_Membership(t *testing.T) {
	t.Run("join then join again", func(t *testing.T) {
		joined := false
		forums := &MockForumService{
			JoinFunc: func(ctx context.Context, user *models.User, forumID string) (*models.ForumMembership, bool, error) {
				m := &models.ForumMembership{ForumID: forumID, UserID: user.ID, Specialty: "Patient"}
				if joined {
					return m, false, nil
				}
				joined = true
				return m, true, nil
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodPost, "/", nil), testPatient()), "id", "f1")
		w := httptest.NewRecorder()
		h.JoinForum(w, req)

		var resp JoinForumResponse
		AssertJSONResponse(t, w, http.StatusCreated, &resp)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "f1", resp.Membership.ForumID)

		w = httptest.NewRecorder()
		h.JoinForum(w, req)
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "already_member", resp.Status)
	})

	t.Run("specialty mismatch", func(t *testing.T) {
		forums := &MockForumService{
			JoinFunc: func(ctx context.Context, user *models.User, forumID string) (*models.ForumMembership, bool, error) {
				return nil, false, models.ErrSpecialtyMismatch
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodPost, "/", nil), testResearcher()), "id", "f1")
		w := httptest.NewRecorder()
		h.JoinForum(w, req)

		AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")
	})

	t.Run("post without membership", func(t *testing.T) {
		forums := &MockForumService{
			CreatePostFunc: func(ctx context.Context, user *models.User, in services.PostInput) (*models.ForumPost, error) {
				return nil, models.ErrNotForumMember
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/forums/posts", CreatePostRequest{ForumID: "f1", Content: "hi"}), testPatient())
		w := httptest.NewRecorder()
		h.CreatePost(w, req)

		resp := AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")
		assert.Equal(t, "You must join this forum group first", resp.Message)
	})

	t.Run("leave when not a member", func(t *testing.T) {
		h := NewCommunityHandler(&MockForumService{}, &MockQAService{}, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodPost, "/", nil), testPatient()), "id", "f1")
		w := httptest.NewRecorder()
		h.LeaveForum(w, req)

		AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})

	t.Run("membership status", func(t *testing.T) {
		forums := &MockForumService{
			MembershipFunc: func(ctx context.Context, user *models.User, forumID string) (*services.MembershipStatus, error) {
				return &services.MembershipStatus{}, nil
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodGet, "/", nil), testPatient()), "id", "f1")
		w := httptest.NewRecorder()
		h.Membership(w, req)

		var resp map[string]any
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, false, resp["is_member"])
		assert.NotContains(t, resp, "membership")
	})

	t.Run("members with count", func(t *testing.T) {
		forums := &MockForumService{
			MembersFunc: func(ctx context.Context, forumID string) ([]*models.ForumMembership, error) {
				return []*models.ForumMembership{{UserID: "u1"}, {UserID: "u2"}}, nil
			},
		}
		h := NewCommunityHandler(forums, &MockQAService{}, testLogger())

		req := WithURLParam(WithUser(httptest.NewRequest(http.MethodGet, "/", nil), testPatient()), "id", "f1")
		w := httptest.NewRecorder()
		h.ListMembers(w, req)

		var resp MembersResponse
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, 2, resp.Count)
		assert.Len(t, resp.Members, 2)
	})
}

func TestCommunityHandler_VoteAnswer(t *testing.T) {
	t.Run("like", func(t *testing.T) {
		qa := &MockQAService{
			VoteFunc: func(ctx context.Context, user *models.User, answerID, voteType string) (*models.VoteTally, error) {
				return &models.VoteTally{AnswerID: answerID, Vote: voteType, Likes: 3}, nil
			},
		}
		h := NewCommunityHandler(&MockForumService{}, qa, testLogger())

		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/qa/vote", VoteRequest{AnswerID: "a1", VoteType: "like"}), testPatient())
		w := httptest.NewRecorder()
		h.VoteAnswer(w, req)

		var resp models.VoteTally
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, 3, resp.Likes)
		assert.Equal(t, "like", resp.Vote)
	})

	t.Run("unknown vote type", func(t *testing.T) {
		h := NewCommunityHandler(&MockForumService{}, &MockQAService{}, testLogger())

		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/qa/vote", VoteRequest{AnswerID: "a1", VoteType: "love"}), testPatient())
		w := httptest.NewRecorder()
		h.VoteAnswer(w, req)

		AssertErrorResponse(t, w, http.StatusBadRequest, "validation_failed")
	})
}
