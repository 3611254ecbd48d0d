package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isdelr/adboard-be/internal/api/handlers"
	"github.com/isdelr/adboard-be/internal/auth"
	"github.com/isdelr/adboard-be/internal/config"
	"github.com/isdelr/adboard-be/internal/logger"
	"github.com/isdelr/adboard-be/internal/metrics"
	"github.com/isdelr/adboard-be/internal/services"
	"github.com/isdelr/adboard-be/internal/websocket"
)

// Services bundles the business services served over HTTP.
type Services struct {
	Users    services.UserServiceProvider
	Ads      services.AdServiceProvider
	Comments services.CommentServiceProvider

	// Feed serves the live websocket feed on /ws when set.
	Feed *websocket.Hub
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, svc Services, tokens *auth.TokenIssuer) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Users, tokens)
	userHandler := handlers.NewUserHandler(svc.Users, cfg.MaxUploadBytes)
	adHandler := handlers.NewAdHandler(svc.Ads, cfg.MaxUploadBytes)
	commentHandler := handlers.NewCommentHandler(svc.Comments)

	requireAuth := auth.Middleware(svc.Users, tokens)
	loginLimiter := NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if svc.Feed != nil {
		r.Get("/ws", handlers.NewWebSocketHandler(svc.Feed, cfg.CORSAllowedOrigins).Serve)
	}

	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Handler)
		r.Post("/login", authHandler.Login)
		r.Post("/register", authHandler.Register)
	})

	r.Route("/ads", func(r chi.Router) {
		r.Get("/", adHandler.GetAll)
		r.With(requireAuth).Post("/", adHandler.Create)
		r.With(requireAuth).Get("/me", adHandler.GetMine)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", adHandler.Get)
			r.Get("/image", adHandler.GetImage)
			r.Get("/comments", commentHandler.GetAll)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Patch("/", adHandler.Update)
				r.Delete("/", adHandler.Delete)
				r.Patch("/image", adHandler.UpdateImage)
				r.Post("/comments", commentHandler.Create)
				r.Patch("/comments/{commentId}", commentHandler.Update)
				r.Delete("/comments/{commentId}", commentHandler.Delete)
			})
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/{id}/image", userHandler.GetImage)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)
			r.Patch("/me/image", userHandler.UpdateImage)
			r.Post("/set_password", userHandler.SetPassword)
		})
	})

	return r
}
