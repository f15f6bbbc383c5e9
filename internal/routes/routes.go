package routes

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/handlers"
	"github.com/curalink/curalink/internal/middleware"
	"github.com/curalink/curalink/internal/models"
)

// Handlers groups every HTTP handler the route table needs
type Handlers struct {
	Auth        *handlers.AuthHandler
	Profile     *handlers.ProfileHandler
	Discovery   *handlers.DiscoveryHandler
	Research    *handlers.ResearchHandler
	Favorites   *handlers.FavoriteHandler
	Appointment *handlers.AppointmentHandler
	Community   *handlers.CommunityHandler
	Chat        *handlers.ChatHandler
	Advisor     *handlers.AdvisorHandler
	Health      http.HandlerFunc
	Metrics     http.Handler
}

// Options tunes the per-IP limits applied to login and search
type Options struct {
	LoginPerMinute  int
	SearchPerMinute int
	TrustedProxies  []*net.IPNet
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, resolver auth.IdentityResolver, opts Options, logger *slog.Logger) {
	loginLimit := middleware.DefaultLoginRateLimit()
	if opts.LoginPerMinute > 0 {
		loginLimit.RequestsPerMinute = opts.LoginPerMinute
	}
	loginLimit.TrustedProxies = opts.TrustedProxies

	searchLimit := middleware.DefaultSearchRateLimit()
	if opts.SearchPerMinute > 0 {
		searchLimit.RequestsPerMinute = opts.SearchPerMinute
	}
	searchLimit.TrustedProxies = opts.TrustedProxies

	patient := auth.RequireAnyRole(models.RolePatient)
	researcher := auth.RequireAnyRole(models.RoleResearcher)

	// Public routes
	router.Get("/health", h.Health)
	if h.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	router.Route("/api", func(api chi.Router) {
		api.With(middleware.RateLimitByIP(loginLimit)).Post("/auth/session", h.Auth.CreateSession)
		api.With(auth.OptionalAuth(resolver, logger)).Post("/auth/logout", h.Auth.Logout)

		// Any authenticated user
		api.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(resolver, logger))

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/role", h.Auth.AssignRole)
			r.Get("/auth/check-profile", h.Auth.CheckProfile)

			r.With(middleware.RateLimitByIP(searchLimit)).Post("/search", h.Discovery.Search)
			r.Get("/researcher/{id}/details", h.Discovery.ResearcherDetails)

			r.Get("/patient/clinical-trials", h.Research.ListTrials)
			r.Get("/patient/publications", h.Research.ListPublications)
			r.Get("/patient/experts", h.Research.ListExperts)

			r.Post("/favorites", h.Favorites.Add)
			r.Get("/favorites", h.Favorites.List)
			r.Delete("/favorites/{id}", h.Favorites.Remove)

			r.Get("/appointments", h.Appointment.ListAppointments)
			r.Get("/reviews/researcher/{id}", h.Appointment.ResearcherReviews)
			r.Get("/notifications", h.Appointment.ListNotifications)
			r.Post("/notifications/read", h.Appointment.MarkNotificationRead)
			r.Get("/notifications/unread-count", h.Appointment.UnreadCount)

			r.Get("/forums", h.Community.ListForums)
			r.Delete("/forums/{id}", h.Community.DeleteForum)
			r.Get("/forums/{id}/posts", h.Community.ListPosts)
			r.Post("/forums/posts", h.Community.CreatePost)
			r.Post("/forums/{id}/join", h.Community.JoinForum)
			r.Post("/forums/{id}/leave", h.Community.LeaveForum)
			r.Get("/forums/{id}/membership", h.Community.Membership)
			r.Get("/forums/{id}/members", h.Community.ListMembers)
			r.Get("/qa/questions", h.Community.ListQuestions)
			r.Get("/qa/questions/{id}", h.Community.GetQuestion)
			r.Post("/qa/vote", h.Community.VoteAnswer)

			r.Get("/chat-rooms", h.Chat.ListRooms)
			r.Get("/chat-rooms/{id}/messages", h.Chat.ListMessages)
			r.Post("/chat-rooms/{id}/messages", h.Chat.SendMessage)
			r.Post("/chat-rooms/{id}/close", h.Chat.CloseRoom)

			r.With(middleware.RateLimitByIP(searchLimit)).Post("/advisor/treatments", h.Advisor.Treatments)

			// Patient-only routes
			r.Group(func(r chi.Router) {
				r.Use(patient)
				r.Get("/patient/profile", h.Profile.GetPatientProfile)
				r.Post("/patient/profile", h.Profile.SavePatientProfile)
				r.Get("/patient/overview", h.Discovery.PatientOverview)
				r.Post("/appointments/request", h.Appointment.RequestAppointment)
				r.Post("/reviews", h.Appointment.CreateReview)
				r.Post("/qa/questions", h.Community.AskQuestion)
			})

			// Researcher-only routes
			r.Group(func(r chi.Router) {
				r.Use(researcher)
				r.Get("/researcher/profile", h.Profile.GetResearcherProfile)
				r.Post("/researcher/profile", h.Profile.SaveResearcherProfile)
				r.Post("/researcher/trial", h.Research.CreateTrial)
				r.Get("/researcher/trials", h.Research.ListOwnTrials)
				r.Get("/researcher/collaborators", h.Research.ListCollaborators)
				r.Post("/appointments/{id}/accept", h.Appointment.UpdateStatus(models.AppointmentAccepted))
				r.Post("/appointments/{id}/reject", h.Appointment.UpdateStatus(models.AppointmentRejected))
				r.Post("/appointments/{id}/complete", h.Appointment.UpdateStatus(models.AppointmentCompleted))
				r.Post("/forums/create", h.Community.CreateForum)
				r.Post("/qa/answers", h.Community.AnswerQuestion)
			})
		})
	})
}
