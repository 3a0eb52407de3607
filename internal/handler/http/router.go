package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/shopcore/backend/internal/domain"
	"github.com/shopcore/backend/internal/service"
	"github.com/shopcore/backend/pkg/health"
	"github.com/shopcore/backend/pkg/middleware"
)

// RouterConfig carries the dependencies for the HTTP router.
type RouterConfig struct {
	AuthService *service.AuthService
	UserService *service.UserService
	Sessions    SessionReader
	Redis       *redis.Client
	Health      *health.Handler
	Logger      *slog.Logger
	CORS        middleware.CORSConfig
	Cookies     CookieConfig
	AuthLimit   middleware.RateLimitConfig
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Tracing("shopcore-backend"))
	r.Use(middleware.PrometheusMetrics("shopcore"))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(cfg.AuthService, cfg.Sessions, cfg.Cookies, cfg.Logger)
	authenticate := Authenticate(cfg.Sessions, cfg.Logger)

	// Public auth endpoints, rate limited per client IP.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.Redis, cfg.AuthLimit, cfg.Logger))

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Get("/verify-email/{token}", authHandler.VerifyEmail)
		})

		r.Get("/csrf-token", authHandler.CSRFToken)

		// Session-bound endpoints.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/session", authHandler.Session)
			r.Get("/profile", authHandler.Profile)

			r.Group(func(r chi.Router) {
				r.Use(CSRF)

				r.Post("/logout", authHandler.Logout)
				r.Post("/refresh-session", authHandler.RefreshSession)
				r.Post("/change-password", authHandler.ChangePassword)
				r.Post("/resend-verification", authHandler.ResendVerification)
			})
		})
	})

	// Administrative user management.
	userHandler := NewUserHandler(cfg.UserService, cfg.Logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authenticate)
		r.Use(CSRF)

		r.With(RequirePermissions(domain.PermUserView)).Get("/", userHandler.List)
		r.With(RequireOwnershipOrAdmin("id")).Get("/{id}", userHandler.Get)
		r.With(RequirePermissions(domain.PermUserEdit)).Put("/{id}", userHandler.Update)
		r.With(RequirePermissions(domain.PermUserDelete)).Delete("/{id}", userHandler.Delete)
	})

	return r
}
