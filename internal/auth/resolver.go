package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/curalink/curalink/internal/models"
)

// SessionStore is the subset of session persistence the resolver needs
type SessionStore interface {
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

// UserStore loads the user a session points at
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns a presented session credential into a user.
// It never creates sessions or users.
type Resolver struct {
	sessions SessionStore
	users    UserStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewResolver(sessions SessionStore, users UserStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		sessions: sessions,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// ParseBearer extracts the token from an Authorization header value.
// The scheme is matched case-insensitively and surrounding whitespace is ignored.
// Anything that is not a bearer credential yields "".
func ParseBearer(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// TokenFromRequest returns the presented session token: the cookie when it
// carries a value, the bearer header otherwise.
func TokenFromRequest(r *http.Request) string {
	if token := GetSessionCookie(r); token != "" {
		return token
	}
	return ParseBearer(r.Header.Get("Authorization"))
}

// ResolveRequest resolves the user behind the request's credential
func (res *Resolver) ResolveRequest(r *http.Request) (*models.User, error) {
	return res.Resolve(r.Context(), TokenFromRequest(r))
}

// Resolve looks the token up. Every kind of credential failure (empty, unknown,
// expired, orphaned) collapses to models.ErrUnauthorized; other errors are
// storage failures.
func (res *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.ErrUnauthorized
	}

	session, err := res.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.IsExpired(res.now()) {
		if err := res.sessions.DeleteByToken(ctx, token); err != nil {
			res.logger.Warn("failed to purge expired session",
				slog.String("user_id", session.UserID),
				slog.Any("error", err))
		}
		return nil, models.ErrUnauthorized
	}

	user, err := res.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			res.logger.Warn("session references missing user", slog.String("user_id", session.UserID))
			return nil, models.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return user, nil
}
