package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lahnaomar31/ubo-relay-char/internal/api/middleware"
	"github.com/lahnaomar31/ubo-relay-char/internal/handlers"
	"github.com/lahnaomar31/ubo-relay-char/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, health *handlers.HealthHandler, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(10 << 20)) // generous: uploads go through here too
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisStore, logger)
	r.Use(limiter.Middleware)

	// CORS - the React client may be served from a different origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewAuthMiddleware(redisStore)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no session required)
	r.Get("/health", health.Health)
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	// Authenticated routes (require a valid session token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/logout", h.Logout)
		r.Get("/users", h.ListUsers)

		r.Post("/messages", h.PostDirectMessage)
		r.Get("/conversations/{recipientID}", h.GetConversation)

		r.Post("/rooms", h.CreateRoom)
		r.Get("/rooms", h.ListRooms)
		r.Post("/rooms/{roomID}/messages", h.PostRoomMessage)
		r.Get("/rooms/{roomID}/messages", h.GetRoomMessages)

		r.Post("/upload", h.Upload)
	})

	return r
}
