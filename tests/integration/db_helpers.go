package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/repositories"
)

// TestDB manages the PostgreSQL testcontainer and its migrated schema
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase starts PostgreSQL, applies the embedded migrations and
// returns a ready TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("curalink"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := database.Migrate(ctx, connStr, logger); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         database.New(pool, logger),
	}, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"chat_messages",
		"chat_rooms",
		"answer_votes",
		"forum_memberships",
		"answers",
		"questions",
		"forum_posts",
		"forums",
		"notifications",
		"reviews",
		"appointments",
		"favorites",
		"publications",
		"clinical_trials",
		"health_experts",
		"researcher_profiles",
		"patient_profiles",
		"sessions",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// Repos bundles every repository built on one database wrapper
type Repos struct {
	Users         *repositories.UserRepository
	Sessions      *repositories.SessionRepository
	Profiles      *repositories.ProfileRepository
	Trials        *repositories.TrialRepository
	Publications  *repositories.PublicationRepository
	Favorites     *repositories.FavoriteRepository
	Appointments  *repositories.AppointmentRepository
	Reviews       *repositories.ReviewRepository
	Notifications *repositories.NotificationRepository
	Forums        *repositories.ForumRepository
	Questions     *repositories.QuestionRepository
	Chats         *repositories.ChatRepository
}

// InitializeRepositories creates all repository instances from the database wrapper
func InitializeRepositories(db *database.DB) *Repos {
	return &Repos{
		Users:         repositories.NewUserRepository(db),
		Sessions:      repositories.NewSessionRepository(db),
		Profiles:      repositories.NewProfileRepository(db),
		Trials:        repositories.NewTrialRepository(db),
		Publications:  repositories.NewPublicationRepository(db),
		Favorites:     repositories.NewFavoriteRepository(db),
		Appointments:  repositories.NewAppointmentRepository(db),
		Reviews:       repositories.NewReviewRepository(db),
		Notifications: repositories.NewNotificationRepository(db),
		Forums:        repositories.NewForumRepository(db),
		Questions:     repositories.NewQuestionRepository(db),
		Chats:         repositories.NewChatRepository(db),
	}
}

// SeedUser inserts a user with the given roles
func SeedUser(ctx context.Context, db *database.DB, email, name string, roles ...models.Role) (*models.User, error) {
	user, err := repositories.NewUserRepository(db).Create(ctx, &models.User{
		Email: email,
		Name:  name,
		Roles: roles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// SeedSession stores a session token for user that stays valid for ttl
func SeedSession(ctx context.Context, db *database.DB, user *models.User, token string, ttl time.Duration) error {
	return repositories.NewSessionRepository(db).Create(ctx, &models.Session{
		UserID:       user.ID,
		SessionToken: token,
		ExpiresAt:    time.Now().UTC().Add(ttl),
	})
}
