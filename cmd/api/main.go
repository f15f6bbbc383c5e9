package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/background"
	"github.com/curalink/curalink/internal/cache"
	"github.com/curalink/curalink/internal/config"
	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/handlers"
	"github.com/curalink/curalink/internal/integrations/identity"
	"github.com/curalink/curalink/internal/integrations/llm"
	"github.com/curalink/curalink/internal/integrations/pubmed"
	"github.com/curalink/curalink/internal/integrations/resilient"
	"github.com/curalink/curalink/internal/integrations/trials"
	"github.com/curalink/curalink/internal/metrics"
	middlewareCustom "github.com/curalink/curalink/internal/middleware"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/repositories"
	"github.com/curalink/curalink/internal/routes"
	"github.com/curalink/curalink/internal/services"
	"github.com/curalink/curalink/internal/summary"
	pkghttp "github.com/curalink/curalink/pkg/http"
	pkglogger "github.com/curalink/curalink/pkg/logger"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	level.Set(parseLevel(cfg.Server.LogLevel))

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Apply migrations before the pool is handed to repositories
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), time.Minute)
	err = database.Migrate(migrateCtx, cfg.Database.DSN(), logger)
	migrateCancel()
	if err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Outbound clients, one resilient doer per upstream
	identityCfg := resilient.DefaultConfig("identity")
	identityCfg.Timeout = cfg.Identity.Timeout
	identityCfg.MaxAttempts = 2
	identityClient := identity.NewClient(resilient.New(identityCfg, collector, logger), cfg.Identity.ExchangeURL)

	trialsCfg := resilient.DefaultConfig("clinicaltrials")
	trialsCfg.Timeout = cfg.Trials.Timeout
	trialsCfg.Limit = resilient.Every(cfg.Trials.MinInterval)
	trialsClient := trials.NewClient(resilient.New(trialsCfg, collector, logger), cfg.Trials.BaseURL)

	pubmedCfg := resilient.DefaultConfig("pubmed")
	pubmedCfg.Timeout = cfg.PubMed.Timeout
	pubmedCfg.Limit = pubmed.RateLimit(cfg.PubMed.APIKey)
	pubmedClient := pubmed.NewClient(resilient.New(pubmedCfg, collector, logger), cfg.PubMed.BaseURL, cfg.PubMed.APIKey)

	// Summaries: Redis when configured, otherwise in-process
	var store summary.Store
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		store = summary.NewRedisStore(redisClient)
		logger.Info("summary cache backed by redis", slog.String("addr", cfg.Redis.Addr))
	} else {
		store = summary.NewMemoryStore(cache.New[string](cfg.Summary.TTL, cfg.Summary.MaxEntries))
	}

	var completer, advisorCompleter summary.Completer
	if cfg.LLM.APIURL != "" {
		llmCfg := resilient.DefaultConfig("llm")
		llmCfg.Timeout = cfg.LLM.Timeout
		llmCfg.MaxAttempts = 2
		completer = llm.NewClient(resilient.New(llmCfg, collector, logger), cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.Model)

		advisorCfg := resilient.DefaultConfig("llm_advisor")
		advisorCfg.Timeout = cfg.LLM.AdvisorTimeout
		advisorCfg.MaxAttempts = 1
		advisorCompleter = llm.NewClient(resilient.New(advisorCfg, collector, logger), cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.Model).
			WithMaxTokens(cfg.LLM.AdvisorMaxTokens)
	} else {
		logger.Info("LLM_API_URL not set, AI summaries and treatment advisor disabled")
	}
	summarizer := summary.NewService(summary.NewCache(store, cfg.Summary.TTL, collector, logger), completer, cfg.LLM.Timeout, logger)

	// Background work
	taskQueue := background.NewTaskQueue(background.DefaultQueueConfig(), collector, logger)
	taskQueue.Start()

	var emailSender services.EmailSender
	if cfg.Email.EmailEnabled() {
		emailCtx, emailCancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesService, err := services.NewAWSSESEmailService(emailCtx, cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.BaseURL, logger)
		emailCancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailSender = sesService
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	trialRepo := repositories.NewTrialRepository(db)
	publicationRepo := repositories.NewPublicationRepository(db)
	favoriteRepo := repositories.NewFavoriteRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	forumRepo := repositories.NewForumRepository(db)
	questionRepo := repositories.NewQuestionRepository(db)
	chatRepo := repositories.NewChatRepository(db)

	sessionCleaner := background.NewSessionCleaner(sessionRepo, logger, cfg.Session.CleanupInterval)

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	authService := services.NewAuthService(userRepo, sessionRepo, profileRepo, identityClient, cfg.Session.TTL, logger, auditLogger)
	profileService := services.NewProfileService(profileRepo, logger, auditLogger)
	researchService := services.NewResearchService(trialRepo, publicationRepo, profileRepo, reviewRepo, summarizer, logger)
	discoveryService := services.NewDiscoveryService(trialsClient, pubmedClient, trialRepo, publicationRepo, profileRepo, reviewRepo, summarizer, collector, logger)
	favoriteService := services.NewFavoriteService(favoriteRepo, trialRepo, publicationRepo, profileRepo, logger)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, emailSender, taskQueue, logger)
	appointmentService := services.NewAppointmentService(appointmentRepo, reviewRepo, profileRepo, chatRepo, notificationService, logger)
	chatService := services.NewChatService(chatRepo, appointmentRepo, userRepo, logger)
	forumService := services.NewForumService(forumRepo, profileRepo, cache.New[[]*models.Forum](services.ForumListingTTL, 1), taskQueue, logger)
	qaService := services.NewQAService(questionRepo, profileRepo, logger)
	advisorService := services.NewAdvisorService(trialsClient, pubmedClient, advisorCompleter, cfg.LLM.AdvisorTimeout, logger)

	// Initialize handlers
	trustedProxies := pkghttp.ParseTrustedProxies(cfg.Server.TrustedProxies)
	cookieConfig := auth.CookieConfig{Domain: cfg.Session.CookieDomain, Secure: cfg.Session.CookieSecure}

	h := routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cookieConfig, cfg.Session.TTL, trustedProxies, logger),
		Profile:     handlers.NewProfileHandler(profileService, logger),
		Discovery:   handlers.NewDiscoveryHandler(discoveryService, logger),
		Research:    handlers.NewResearchHandler(researchService, logger),
		Favorites:   handlers.NewFavoriteHandler(favoriteService, logger),
		Appointment: handlers.NewAppointmentHandler(appointmentService, notificationService, logger),
		Community:   handlers.NewCommunityHandler(forumService, qaService, logger),
		Chat:        handlers.NewChatHandler(chatService, logger),
		Advisor:     handlers.NewAdvisorHandler(advisorService, logger),
		Health:      handlers.Health(db, logger),
		Metrics:     metrics.Handler(registry),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.RequestLogger(logger, trustedProxies))
	router.Use(middlewareCustom.Metrics(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, auth.NewResolver(sessionRepo, userRepo, logger), routes.Options{
		LoginPerMinute:  cfg.RateLimit.LoginPerMinute,
		SearchPerMinute: cfg.RateLimit.SearchPerMinute,
		TrustedProxies:  trustedProxies,
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start session purge
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go sessionCleaner.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	cleanupCancel()
	sessionCleaner.Stop()

	if err := taskQueue.Shutdown(shutdownCtx); err != nil {
		logger.Error("task queue did not drain", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
