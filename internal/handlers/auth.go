package handlers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	CreateSession(ctx context.Context, sessionID string, meta services.RequestMeta) (*services.LoginResult, error)
	Logout(ctx context.Context, token string, user *models.User, meta services.RequestMeta) error
	AssignRole(ctx context.Context, user *models.User, role string, meta services.RequestMeta) (*models.User, error)
	CheckProfile(ctx context.Context, user *models.User) (*services.ProfileStatus, error)
}

// AuthHandler handles session and role HTTP requests
type AuthHandler struct {
	service        AuthServiceInterface
	cookie         auth.CookieConfig
	sessionTTL     time.Duration
	trustedProxies []*net.IPNet
	logger         *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, cookie auth.CookieConfig, sessionTTL time.Duration, trustedProxies []*net.IPNet, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:        service,
		cookie:         cookie,
		sessionTTL:     sessionTTL,
		trustedProxies: trustedProxies,
		logger:         logger,
	}
}

// CreateSessionRequest carries the upstream handshake id
type CreateSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,max=512"`
}

// AssignRoleRequest represents the request body for role assignment
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// SessionResponse is returned after a successful session exchange
type SessionResponse struct {
	Status       string        `json:"status"`
	User         *UserResponse `json:"user"`
	SessionToken string        `json:"session_token"`
}

// RoleResponse reports the user's roles after assignment
type RoleResponse struct {
	Status string        `json:"status"`
	Roles  []models.Role `json:"roles"`
}

func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.trustedProxies),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// CreateSession exchanges an upstream session id for a local session
// @Router /api/auth/session [post]
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.CreateSession(r.Context(), req.SessionID, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, result.SessionToken, h.sessionTTL, h.cookie)
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Status:       "success",
		User:         userModelToResponse(result.User),
		SessionToken: result.SessionToken,
	})
}

// Me returns the authenticated user
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "not authenticated")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// Logout deletes the presented session and clears the cookie. It always succeeds.
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if err := h.service.Logout(r.Context(), token, auth.GetUserFromContext(r), h.requestMeta(r)); err != nil {
		h.logger.Warn("logout failed to delete session", slog.Any("error", err))
	}

	auth.ClearSessionCookie(w, h.cookie)
	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

// AssignRole adds a role to the authenticated user
// @Router /api/auth/role [post]
func (h *AuthHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "not authenticated")
		return
	}

	var req AssignRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	updated, err := h.service.AssignRole(r.Context(), user, req.Role, h.requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RoleResponse{Status: "success", Roles: nonNil(updated.Roles)})
}

// CheckProfile reports which role profiles exist for the user
// @Router /api/auth/check-profile [get]
func (h *AuthHandler) CheckProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "not authenticated")
		return
	}

	status, err := h.service.CheckProfile(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	status.Roles = nonNil(status.Roles)
	pkghttp.WriteJSON(w, http.StatusOK, status)
}
