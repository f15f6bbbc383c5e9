package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/curalink/internal/integrations/identity"
	"github.com/curalink/curalink/internal/models"
	pkglogger "github.com/curalink/curalink/pkg/logger"
)

func newTestAuthService(users UserRepository, sessions SessionRepository, profiles ProfileRepository, exchanger IdentityExchanger) *AuthService {
	return NewAuthService(users, sessions, profiles, exchanger, 7*24*time.Hour, slog.Default(), pkglogger.NewAuditLogger(slog.Default()))
}

func verifiedIdentity(email string) *identity.Identity {
	return &identity.Identity{
		Email:        email,
		Name:         "Ada Lovelace",
		SessionToken: "issued-token",
	}
}

func TestAuthService_CreateSession_FirstLoginProvisionsUser(t *testing.T) {
	var created *models.User
	var stored *models.Session

	users := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user-1"
			created = user
			return user, nil
		},
	}
	sessions := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			stored = session
			return nil
		},
	}
	exchanger := &MockIdentityExchanger{
		ExchangeFunc: func(ctx context.Context, sessionID string) (*identity.Identity, error) {
			assert.Equal(t, "handshake-id", sessionID)
			return verifiedIdentity("Ada@Example.com "), nil
		},
	}

	service := newTestAuthService(users, sessions, &MockProfileRepository{}, exchanger)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	result, err := service.CreateSession(context.Background(), "handshake-id", RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Empty(t, created.Roles)

	require.NotNil(t, stored)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, "issued-token", stored.SessionToken)
	assert.Equal(t, now.Add(7*24*time.Hour), stored.ExpiresAt)

	assert.Equal(t, "issued-token", result.SessionToken)
	assert.Equal(t, "user-1", result.User.ID)
}

func TestAuthService_CreateSession_ReusesExistingUser(t *testing.T) {
	existing := &models.User{ID: "user-7", Email: "ada@example.com", Roles: []models.Role{models.RolePatient}}
	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return existing, nil
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			t.Fatal("existing user must not be recreated")
			return nil, nil
		},
	}
	exchanger := &MockIdentityExchanger{
		ExchangeFunc: func(ctx context.Context, sessionID string) (*identity.Identity, error) {
			return verifiedIdentity("ada@example.com"), nil
		},
	}

	service := newTestAuthService(users, &MockSessionRepository{}, &MockProfileRepository{}, exchanger)
	result, err := service.CreateSession(context.Background(), "handshake-id", RequestMeta{})
	require.NoError(t, err)
	assert.Same(t, existing, result.User)
}

func TestAuthService_CreateSession_ExchangeFailure(t *testing.T) {
	sessionWrites := 0
	sessions := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			sessionWrites++
			return nil
		},
	}
	exchanger := &MockIdentityExchanger{
		ExchangeFunc: func(ctx context.Context, sessionID string) (*identity.Identity, error) {
			return nil, errors.New("upstream said no to unverifiable-token")
		},
	}

	service := newTestAuthService(&MockUserRepository{}, sessions, &MockProfileRepository{}, exchanger)
	result, err := service.CreateSession(context.Background(), "unverifiable-token", RequestMeta{})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrSessionExchange)
	assert.NotContains(t, err.Error(), "unverifiable-token")
	assert.Equal(t, 0, sessionWrites)
}

func TestAuthService_CreateSession_EmptySessionID(t *testing.T) {
	exchanger := &MockIdentityExchanger{
		ExchangeFunc: func(ctx context.Context, sessionID string) (*identity.Identity, error) {
			t.Fatal("exchange must not be called for an empty id")
			return nil, nil
		},
	}

	service := newTestAuthService(&MockUserRepository{}, &MockSessionRepository{}, &MockProfileRepository{}, exchanger)
	_, err := service.CreateSession(context.Background(), "   ", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAuthService_CreateSession_SessionPersistFailure(t *testing.T) {
	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "user-1", Email: email}, nil
		},
	}
	sessions := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			return errors.New("pq: connection reset")
		},
	}
	exchanger := &MockIdentityExchanger{
		ExchangeFunc: func(ctx context.Context, sessionID string) (*identity.Identity, error) {
			return verifiedIdentity("ada@example.com"), nil
		},
	}

	service := newTestAuthService(users, sessions, &MockProfileRepository{}, exchanger)
	_, err := service.CreateSession(context.Background(), "handshake-id", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrSessionExchange)
	assert.NotContains(t, err.Error(), "pq")
}

// fakeUserStore enforces email uniqueness the way the unique index does
type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	inserts int
}

func (f *fakeUserStore) repo() *MockUserRepository {
	return &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if u, ok := f.byEmail[email]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.byEmail[user.Email]; ok {
				return nil, models.ErrConflict
			}
			f.inserts++
			user.ID = "user-" + user.Email
			f.byEmail[user.Email] = user
			return user, nil
		},
	}
}

func TestAuthService_CreateSession_ConcurrentLoginsShareOneUser(t *testing.T) {
	store := &fakeUserStore{byEmail: map[string]*models.User{}}
	exchanger := &MockIdentityExchanger{
		ExchangeFunc: func(ctx context.Context, sessionID string) (*identity.Identity, error) {
			ident := verifiedIdentity("same@example.com")
			ident.SessionToken = "token-" + sessionID
			return ident, nil
		},
	}
	service := newTestAuthService(store.repo(), &MockSessionRepository{}, &MockProfileRepository{}, exchanger)

	const logins = 16
	var wg sync.WaitGroup
	ids := make([]string, logins)
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := service.CreateSession(context.Background(), string(rune('a'+i)), RequestMeta{})
			if assert.NoError(t, err) {
				ids[i] = result.User.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.inserts)
	assert.Len(t, store.byEmail, 1)
	for _, id := range ids {
		assert.Equal(t, "user-same@example.com", id)
	}
}

func TestAuthService_CreateSession_ConflictRereadsWinner(t *testing.T) {
	winner := &models.User{ID: "winner", Email: "ada@example.com"}
	lookups := 0
	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			lookups++
			if lookups == 1 {
				return nil, models.ErrNotFound
			}
			return winner, nil
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}
	exchanger := &MockIdentityExchanger{
		ExchangeFunc: func(ctx context.Context, sessionID string) (*identity.Identity, error) {
			return verifiedIdentity("ada@example.com"), nil
		},
	}

	service := newTestAuthService(users, &MockSessionRepository{}, &MockProfileRepository{}, exchanger)
	result, err := service.CreateSession(context.Background(), "handshake-id", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "winner", result.User.ID)
	assert.Equal(t, 2, lookups)
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("deletes the presented session", func(t *testing.T) {
		var deleted string
		sessions := &MockSessionRepository{
			DeleteByTokenFunc: func(ctx context.Context, token string) error {
				deleted = token
				return nil
			},
		}
		service := newTestAuthService(&MockUserRepository{}, sessions, &MockProfileRepository{}, &MockIdentityExchanger{})

		err := service.Logout(context.Background(), "tok", &models.User{ID: "u1"}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "tok", deleted)
	})

	t.Run("unknown session is not an error", func(t *testing.T) {
		sessions := &MockSessionRepository{
			DeleteByTokenFunc: func(ctx context.Context, token string) error {
				return models.ErrNotFound
			},
		}
		service := newTestAuthService(&MockUserRepository{}, sessions, &MockProfileRepository{}, &MockIdentityExchanger{})

		assert.NoError(t, service.Logout(context.Background(), "gone", nil, RequestMeta{}))
	})

	t.Run("no token does nothing", func(t *testing.T) {
		sessions := &MockSessionRepository{
			DeleteByTokenFunc: func(ctx context.Context, token string) error {
				t.Fatal("delete must not be called without a token")
				return nil
			},
		}
		service := newTestAuthService(&MockUserRepository{}, sessions, &MockProfileRepository{}, &MockIdentityExchanger{})

		assert.NoError(t, service.Logout(context.Background(), "", nil, RequestMeta{}))
	})
}

func TestAuthService_AssignRole(t *testing.T) {
	tests := []struct {
		name       string
		held       []models.Role
		role       string
		wantErr    error
		wantUpdate bool
		wantRoles  []models.Role
	}{
		{
			name:       "first role",
			held:       []models.Role{},
			role:       "patient",
			wantUpdate: true,
			wantRoles:  []models.Role{models.RolePatient},
		},
		{
			name:       "second role accumulates",
			held:       []models.Role{models.RolePatient},
			role:       "researcher",
			wantUpdate: true,
			wantRoles:  []models.Role{models.RolePatient, models.RoleResearcher},
		},
		{
			name:      "held role is a no-op",
			held:      []models.Role{models.RoleResearcher},
			role:      "researcher",
			wantRoles: []models.Role{models.RoleResearcher},
		},
		{
			name:    "unknown role",
			held:    []models.Role{},
			role:    "admin",
			wantErr: models.ErrInvalidRole,
		},
		{
			name:    "role names are case sensitive",
			held:    []models.Role{},
			role:    "Patient",
			wantErr: models.ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := false
			users := &MockUserRepository{
				UpdateRolesFunc: func(ctx context.Context, id string, roles []models.Role) (*models.User, error) {
					updated = true
					return &models.User{ID: id, Roles: roles}, nil
				},
			}
			service := newTestAuthService(users, &MockSessionRepository{}, &MockProfileRepository{}, &MockIdentityExchanger{})

			user, err := service.AssignRole(context.Background(), &models.User{ID: "u1", Roles: tt.held}, tt.role, RequestMeta{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, updated)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantUpdate, updated)
			assert.Equal(t, tt.wantRoles, user.Roles)
		})
	}
}

func TestAuthService_CheckProfile(t *testing.T) {
	profiles := &MockProfileRepository{
		GetPatientProfileFunc: func(ctx context.Context, userID string) (*models.PatientProfile, error) {
			return &models.PatientProfile{UserID: userID}, nil
		},
	}
	service := newTestAuthService(&MockUserRepository{}, &MockSessionRepository{}, profiles, &MockIdentityExchanger{})

	user := &models.User{ID: "u1", Roles: []models.Role{models.RolePatient, models.RoleResearcher}}
	status, err := service.CheckProfile(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"patient": true, "researcher": false}, status.Profiles)

	status, err = service.CheckProfile(context.Background(), &models.User{ID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, status.Profiles)
	assert.NotNil(t, status.Roles)
}

func TestAuthService_CheckProfile_StorageError(t *testing.T) {
	profiles := &MockProfileRepository{
		GetPatientProfileFunc: func(ctx context.Context, userID string) (*models.PatientProfile, error) {
			return nil, errors.New("db down")
		},
	}
	service := newTestAuthService(&MockUserRepository{}, &MockSessionRepository{}, profiles, &MockIdentityExchanger{})

	_, err := service.CheckProfile(context.Background(), &models.User{ID: "u1", Roles: []models.Role{models.RolePatient}})
	assert.Error(t, err)
}
