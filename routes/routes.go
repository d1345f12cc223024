package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/weekly-finals/handlers"
	"github.com/Dosada05/weekly-finals/middleware"
	"github.com/Dosada05/weekly-finals/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Phases    *handlers.PhaseHandler
	Matches   *handlers.MatchHandler
	Dashboard *handlers.DashboardHandler
	WebSocket *handlers.WebSocketHandler
	Metrics   http.Handler
}

type Options struct {
	Tokens         middleware.TokenParser
	LoginLimiter   *middleware.IPRateLimiter
	AllowedOrigins []string
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: len(opts.AllowedOrigins) > 0,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.Tokens)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics)
	}
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	// Таймаут не ставим на /ws: соединение живёт долго.
	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.With(middleware.RateLimit(opts.LoginLimiter)).Post("/login", h.Auth.Login)
			r.With(authenticate).Get("/me", h.Auth.Me)
		})

		r.Route("/tournaments/{tournamentID}", func(r chi.Router) {
			r.Get("/phases", h.Phases.ListPhases)
			r.Get("/overview", h.Phases.Overview)
			r.With(authenticate, adminOnly).Post("/phases", h.Phases.CreatePhases)
		})

		r.Route("/phases/{phaseID}", func(r chi.Router) {
			r.Get("/finals-bracket", h.Matches.ListFinalsMatches)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, adminOnly)
				r.Post("/initialize", h.Phases.InitializePhase)
				r.Post("/start", h.Phases.StartPhase)
				r.Post("/complete", h.Phases.CompletePhase)
				r.Post("/advance", h.Phases.AdvanceParticipants)
				r.Post("/finals-bracket", h.Phases.GenerateFinalsBracket)
			})
		})

		r.With(authenticate, adminOnly).Post("/participants/{participantID}/points", h.Phases.AwardPoints)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/matches/{matchID}/proof", h.Matches.UploadProof)
			r.Delete("/uploads/{uploadID}", h.Matches.DeleteProof)
		})

		r.With(authenticate, adminOnly).Get("/admin/dashboard", h.Dashboard.Stats)
	})
}
