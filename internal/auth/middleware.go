package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/curalink/curalink/internal/models"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for the resolved user in context
	UserContextKey contextKey = "user"
)

// IdentityResolver resolves the user behind a request's credential
type IdentityResolver interface {
	ResolveRequest(r *http.Request) (*models.User, error)
}

// RequireAuth rejects requests without a valid session and injects the user into context
func RequireAuth(resolver IdentityResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.ResolveRequest(r)
			if err != nil {
				if !errors.Is(err, models.ErrUnauthorized) {
					logger.Error("identity resolution failed", slog.Any("error", err))
				}
				pkghttp.WriteUnauthorized(w, "not authenticated")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth injects the user when the request carries a valid session and
// passes anonymous requests through unchanged
func OptionalAuth(resolver IdentityResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.ResolveRequest(r)
			if err != nil {
				if !errors.Is(err, models.ErrUnauthorized) {
					logger.Warn("identity resolution failed", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAnyRole allows the request when the user holds at least one of roles.
// Must run after RequireAuth.
func RequireAnyRole(roles ...models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := CheckRole(GetUserFromContext(r), roles...); err != nil {
				if errors.Is(err, models.ErrForbidden) {
					pkghttp.WriteForbidden(w, err.Error())
					return
				}
				pkghttp.WriteUnauthorized(w, "not authenticated")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CheckRole is the role gate: an absent user is unauthenticated, a user
// holding none of allowed is forbidden.
func CheckRole(user *models.User, allowed ...models.Role) (*models.User, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if !models.HasAnyRole(user.Roles, allowed...) {
		return nil, &models.ForbiddenError{Required: allowed}
	}
	return user, nil
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(r *http.Request) *models.User {
	return UserFromContext(r.Context())
}

func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
