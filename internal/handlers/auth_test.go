package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
)

func newTestAuthHandler(svc *MockAuthService) *AuthHandler {
	return NewAuthHandler(svc, auth.CookieConfig{Secure: true}, 7*24*time.Hour, nil, testLogger())
}

func TestAuthHandler_CreateSession(t *testing.T) {
	t.Run("success sets cookie and returns user", func(t *testing.T) {
		svc := &MockAuthService{
			CreateSessionFunc: func(ctx context.Context, sessionID string, meta services.RequestMeta) (*services.LoginResult, error) {
				assert.Equal(t, "upstream-123", sessionID)
				assert.Equal(t, "192.0.2.1", meta.IPAddress)
				return &services.LoginResult{
					User:         &models.User{ID: "u1", Email: "a@example.com", Name: "A"},
					SessionToken: "tok-abc",
					ExpiresAt:    time.Now().Add(time.Hour),
				}, nil
			},
		}
		h := newTestAuthHandler(svc)

		req := NewTestRequest(t, http.MethodPost, "/api/auth/session", CreateSessionRequest{SessionID: "upstream-123"})
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		h.CreateSession(w, req)

		var resp SessionResponse
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "tok-abc", resp.SessionToken)
		require.NotNil(t, resp.User)
		assert.Equal(t, "u1", resp.User.ID)
		assert.Empty(t, resp.User.Roles)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
		assert.Equal(t, "tok-abc", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("exchange failure is a 500", func(t *testing.T) {
		h := newTestAuthHandler(&MockAuthService{})

		req := NewTestRequest(t, http.MethodPost, "/api/auth/session", CreateSessionRequest{SessionID: "bad"})
		w := httptest.NewRecorder()
		h.CreateSession(w, req)

		resp := AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
		assert.Equal(t, "session processing failed", resp.Message)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("missing session id", func(t *testing.T) {
		h := newTestAuthHandler(&MockAuthService{})

		req := NewTestRequest(t, http.MethodPost, "/api/auth/session", map[string]string{})
		w := httptest.NewRecorder()
		h.CreateSession(w, req)

		AssertErrorResponse(t, w, http.StatusBadRequest, "validation_failed")
	})
}

func TestAuthHandler_Me(t *testing.T) {
	h := newTestAuthHandler(&MockAuthService{})

	t.Run("authenticated", func(t *testing.T) {
		req := WithUser(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), testPatient())
		w := httptest.NewRecorder()
		h.Me(w, req)

		var resp UserResponse
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "patient-1", resp.ID)
		assert.Equal(t, []models.Role{models.RolePatient}, resp.Roles)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Me(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

		AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("deletes presented session and clears cookie", func(t *testing.T) {
		var gotToken string
		svc := &MockAuthService{
			LogoutFunc: func(ctx context.Context, token string, user *models.User, meta services.RequestMeta) error {
				gotToken = token
				return nil
			},
		}
		h := newTestAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok-1"})
		w := httptest.NewRecorder()
		h.Logout(w, req)

		var resp StatusResponse
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "tok-1", gotToken)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "", cookies[0].Value)
		assert.Less(t, cookies[0].MaxAge, 0)
	})

	t.Run("succeeds even when the store fails", func(t *testing.T) {
		svc := &MockAuthService{
			LogoutFunc: func(ctx context.Context, token string, user *models.User, meta services.RequestMeta) error {
				return assert.AnError
			},
		}
		h := newTestAuthHandler(svc)

		w := httptest.NewRecorder()
		h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthHandler_AssignRole(t *testing.T) {
	t.Run("adds role", func(t *testing.T) {
		svc := &MockAuthService{
			AssignRoleFunc: func(ctx context.Context, user *models.User, role string, meta services.RequestMeta) (*models.User, error) {
				roles, _ := models.AddRole(user.Roles, models.Role(role))
				return &models.User{ID: user.ID, Roles: roles}, nil
			},
		}
		h := newTestAuthHandler(svc)

		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/auth/role", AssignRoleRequest{Role: "researcher"}), testPatient())
		w := httptest.NewRecorder()
		h.AssignRole(w, req)

		var resp RoleResponse
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, []models.Role{models.RolePatient, models.RoleResearcher}, resp.Roles)
	})

	t.Run("unknown role", func(t *testing.T) {
		h := newTestAuthHandler(&MockAuthService{})

		req := WithUser(NewTestRequest(t, http.MethodPost, "/api/auth/role", AssignRoleRequest{Role: "admin"}), testPatient())
		w := httptest.NewRecorder()
		h.AssignRole(w, req)

		AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	})
}

func TestAuthHandler_CheckProfile(t *testing.T) {
	svc := &MockAuthService{
		CheckProfileFunc: func(ctx context.Context, user *models.User) (*services.ProfileStatus, error) {
			return &services.ProfileStatus{
				Roles:    user.Roles,
				Profiles: map[string]bool{"patient": true},
			}, nil
		},
	}
	h := newTestAuthHandler(svc)

	req := WithUser(httptest.NewRequest(http.MethodGet, "/api/auth/check-profile", nil), testPatient())
	w := httptest.NewRecorder()
	h.CheckProfile(w, req)

	var resp services.ProfileStatus
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.Profiles["patient"])
}
