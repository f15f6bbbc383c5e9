package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/background"
	"github.com/curalink/curalink/internal/cache"
	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/handlers"
	"github.com/curalink/curalink/internal/integrations/identity"
	"github.com/curalink/curalink/internal/integrations/pubmed"
	"github.com/curalink/curalink/internal/integrations/resilient"
	"github.com/curalink/curalink/internal/integrations/trials"
	"github.com/curalink/curalink/internal/metrics"
	middlewareCustom "github.com/curalink/curalink/internal/middleware"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/routes"
	"github.com/curalink/curalink/internal/services"
	"github.com/curalink/curalink/internal/summary"
	pkghttp "github.com/curalink/curalink/pkg/http"
	pkglogger "github.com/curalink/curalink/pkg/logger"
)

const testSessionTTL = 7 * 24 * time.Hour

// FakeIdentityProvider answers exchange requests for registered session ids
type FakeIdentityProvider struct {
	Server *httptest.Server

	mu         sync.Mutex
	identities map[string]identity.Identity
}

func newFakeIdentityProvider() *FakeIdentityProvider {
	p := &FakeIdentityProvider{identities: map[string]identity.Identity{}}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		id, ok := p.identities[r.Header.Get("X-Session-ID")]
		p.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(id)
	}))
	return p
}

// Register makes sessionID exchangeable for the given identity
func (p *FakeIdentityProvider) Register(sessionID string, id identity.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identities[sessionID] = id
}

// TestServer wraps httptest.Server with a real database and fake upstreams.
// The trial registry and PubMed both answer 503 so discovery always falls
// back to local data.
type TestServer struct {
	Server   *httptest.Server
	DB       *database.DB
	Identity *FakeIdentityProvider

	upstreams []*httptest.Server
	tasks     *background.TaskQueue
	logger    *slog.Logger
}

// NewTestServer initializes the full HTTP stack against db
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	idp := newFakeIdentityProvider()
	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	collector := metrics.NewCollector(prometheus.NewRegistry())

	doer := func(name string) *resilient.Client {
		cfg := resilient.DefaultConfig(name)
		cfg.Timeout = 2 * time.Second
		cfg.MaxAttempts = 1
		return resilient.New(cfg, collector, logger)
	}

	identityClient := identity.NewClient(doer("identity"), idp.Server.URL)
	trialsClient := trials.NewClient(doer("clinicaltrials"), unavailable.URL)
	pubmedClient := pubmed.NewClient(doer("pubmed"), unavailable.URL, "")

	store := summary.NewMemoryStore(cache.New[string](time.Hour, 100))
	summarizer := summary.NewService(summary.NewCache(store, time.Hour, collector, logger), nil, time.Second, logger)

	tasks := background.NewTaskQueue(background.DefaultQueueConfig(), collector, logger)
	tasks.Start()

	repos := InitializeRepositories(db)
	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(repos.Users, repos.Sessions, repos.Profiles, identityClient, testSessionTTL, logger, auditLogger)
	profileService := services.NewProfileService(repos.Profiles, logger, auditLogger)
	researchService := services.NewResearchService(repos.Trials, repos.Publications, repos.Profiles, repos.Reviews, summarizer, logger)
	discoveryService := services.NewDiscoveryService(trialsClient, pubmedClient, repos.Trials, repos.Publications, repos.Profiles, repos.Reviews, summarizer, collector, logger)
	favoriteService := services.NewFavoriteService(repos.Favorites, repos.Trials, repos.Publications, repos.Profiles, logger)
	notificationService := services.NewNotificationService(repos.Notifications, repos.Users, nil, tasks, logger)
	appointmentService := services.NewAppointmentService(repos.Appointments, repos.Reviews, repos.Profiles, repos.Chats, notificationService, logger)
	chatService := services.NewChatService(repos.Chats, repos.Appointments, repos.Users, logger)
	forumService := services.NewForumService(repos.Forums, repos.Profiles, cache.New[[]*models.Forum](services.ForumListingTTL, 1), tasks, logger)
	qaService := services.NewQAService(repos.Questions, repos.Profiles, logger)
	advisorService := services.NewAdvisorService(trialsClient, pubmedClient, nil, time.Second, logger)

	h := routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService, auth.CookieConfig{}, testSessionTTL, nil, logger),
		Profile:     handlers.NewProfileHandler(profileService, logger),
		Discovery:   handlers.NewDiscoveryHandler(discoveryService, logger),
		Research:    handlers.NewResearchHandler(researchService, logger),
		Favorites:   handlers.NewFavoriteHandler(favoriteService, logger),
		Appointment: handlers.NewAppointmentHandler(appointmentService, notificationService, logger),
		Community:   handlers.NewCommunityHandler(forumService, qaService, logger),
		Chat:        handlers.NewChatHandler(chatService, logger),
		Advisor:     handlers.NewAdvisorHandler(advisorService, logger),
		Health:      handlers.Health(db, logger),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(middlewareCustom.RequestLogger(logger, nil))
	r.Use(chiMiddleware.Recoverer)

	routes.RegisterRoutes(r, h, auth.NewResolver(repos.Sessions, repos.Users, logger), routes.Options{
		LoginPerMinute:  1000,
		SearchPerMinute: 1000,
	}, logger)

	return &TestServer{
		Server:    httptest.NewServer(r),
		DB:        db,
		Identity:  idp,
		upstreams: []*httptest.Server{idp.Server, unavailable},
		tasks:     tasks,
		logger:    logger,
	}
}

// Close shuts down the test server, its upstreams and the task queue
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	for _, s := range ts.upstreams {
		s.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ts.tasks.Shutdown(ctx)
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body any, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes a request carrying token as a bearer credential
func (ts *TestServer) RequestWithAuth(method, path, token string, body any) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// Login registers an identity upstream, exchanges sessionID and returns the
// issued session token
func (ts *TestServer) Login(sessionID, email, name string) (string, error) {
	token := "tok-" + sessionID
	ts.Identity.Register(sessionID, identity.Identity{Email: email, Name: name, SessionToken: token})

	resp, err := ts.Request(http.MethodPost, "/api/auth/session", map[string]string{"session_id": sessionID}, nil)
	if err != nil {
		return "", err
	}

	var out handlers.SessionResponse
	if err := ParseJSONResponse(resp, &out); err != nil {
		return "", err
	}
	return out.SessionToken, nil
}

// ParseJSONResponse parses the JSON response body into target and closes it
func ParseJSONResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ParseErrorResponse decodes the standard error envelope
func ParseErrorResponse(resp *http.Response) (pkghttp.ErrorResponse, error) {
	var errResp pkghttp.ErrorResponse
	err := ParseJSONResponse(resp, &errResp)
	return errResp, err
}
