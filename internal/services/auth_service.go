package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curalink/curalink/internal/integrations/identity"
	"github.com/curalink/curalink/internal/models"
	pkglogger "github.com/curalink/curalink/pkg/logger"
)

// UserRepository defines the user storage operations the services need
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateRoles(ctx context.Context, id string, roles []models.Role) (*models.User, error)
}

// SessionRepository defines the session storage operations used at login and logout
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	DeleteByToken(ctx context.Context, token string) error
}

// IdentityExchanger verifies an upstream login handshake id
type IdentityExchanger interface {
	Exchange(ctx context.Context, sessionID string) (*identity.Identity, error)
}

// AuthService handles login, logout and role assignment
type AuthService struct {
	users       UserRepository
	sessions    SessionRepository
	profiles    ProfileRepository
	exchanger   IdentityExchanger
	sessionTTL  time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, sessions SessionRepository, profiles ProfileRepository, exchanger IdentityExchanger, sessionTTL time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		profiles:    profiles,
		exchanger:   exchanger,
		sessionTTL:  sessionTTL,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// LoginResult is a freshly issued session
type LoginResult struct {
	User         *models.User
	SessionToken string
	ExpiresAt    time.Time
}

// RequestMeta carries client details for audit records
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ProfileStatus reports which role profiles a user has completed
type ProfileStatus struct {
	Roles    []models.Role   `json:"roles"`
	Profiles map[string]bool `json:"profiles"`
}

// CreateSession exchanges an upstream handshake id for verified identity,
// provisions the user on first login and persists a new session.
// Every failure after input validation is reported as models.ErrSessionExchange.
func (s *AuthService) CreateSession(ctx context.Context, sessionID string, meta RequestMeta) (*LoginResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, models.ErrBadRequest
	}

	ident, err := s.exchanger.Exchange(ctx, sessionID)
	if err != nil {
		s.logger.Warn("identity exchange failed", slog.Any("error", err))
		s.auditLogger.LogLoginFailure(ctx, meta.IPAddress, meta.UserAgent, "exchange_failed")
		return nil, models.ErrSessionExchange
	}

	user, err := s.findOrCreateUser(ctx, ident)
	if err != nil {
		s.logger.Error("failed to provision user",
			slog.String("email", pkglogger.SanitizedEmail(ident.Email)),
			slog.Any("error", err))
		s.auditLogger.LogLoginFailure(ctx, meta.IPAddress, meta.UserAgent, "user_provisioning_failed")
		return nil, models.ErrSessionExchange
	}

	now := s.now().UTC()
	session := &models.Session{
		UserID:       user.ID,
		SessionToken: ident.SessionToken,
		ExpiresAt:    now.Add(s.sessionTTL),
		CreatedAt:    now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("failed to persist session",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		s.auditLogger.LogLoginFailure(ctx, meta.IPAddress, meta.UserAgent, "session_persist_failed")
		return nil, models.ErrSessionExchange
	}

	s.auditLogger.LogLogin(ctx, user.ID, meta.IPAddress, meta.UserAgent)

	return &LoginResult{
		User:         user,
		SessionToken: session.SessionToken,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// findOrCreateUser relies on the unique email index: losing a concurrent
// insert race re-reads the winner's row.
func (s *AuthService) findOrCreateUser(ctx context.Context, ident *identity.Identity) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(ident.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user, err = s.users.Create(ctx, &models.User{
		Email:   email,
		Name:    ident.Name,
		Picture: ident.Picture,
		Roles:   []models.Role{},
	})
	if errors.Is(err, models.ErrConflict) {
		return s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("provisioned user on first login", slog.String("user_id", user.ID))
	return user, nil
}

// Logout deletes the session behind token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string, user *models.User, meta RequestMeta) error {
	if token == "" {
		return nil
	}

	if err := s.sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to delete session", slog.Any("error", err))
		return err
	}

	if user != nil {
		s.auditLogger.LogLogout(ctx, user.ID, meta.IPAddress)
	}
	return nil
}

// AssignRole adds role to the user's role set. Roles accumulate: a user may
// hold both, and re-assigning a held role changes nothing.
func (s *AuthService) AssignRole(ctx context.Context, user *models.User, role string, meta RequestMeta) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, models.ErrInvalidRole
	}

	roles, changed := models.AddRole(user.Roles, models.Role(role))
	if !changed {
		return user, nil
	}

	updated, err := s.users.UpdateRoles(ctx, user.ID, roles)
	if err != nil {
		s.logger.Error("failed to update roles",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, err
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.EventRoleAssigned, user.ID, meta.IPAddress,
		map[string]string{"role": role})
	return updated, nil
}

// CheckProfile reports, for each role the user holds, whether its profile exists
func (s *AuthService) CheckProfile(ctx context.Context, user *models.User) (*ProfileStatus, error) {
	status := &ProfileStatus{
		Roles:    user.Roles,
		Profiles: map[string]bool{},
	}
	if status.Roles == nil {
		status.Roles = []models.Role{}
	}

	if user.HasRole(models.RolePatient) {
		exists, err := found(s.profiles.GetPatientProfile(ctx, user.ID))
		if err != nil {
			return nil, err
		}
		status.Profiles[string(models.RolePatient)] = exists
	}

	if user.HasRole(models.RoleResearcher) {
		exists, err := found(s.profiles.GetResearcherProfile(ctx, user.ID))
		if err != nil {
			return nil, err
		}
		status.Profiles[string(models.RoleResearcher)] = exists
	}

	return status, nil
}

// found turns a lookup result into an existence flag, keeping real failures
func found[T any](_ T, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
