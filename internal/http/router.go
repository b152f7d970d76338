package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nexauth/identity/internal/http/features/login"
	"github.com/nexauth/identity/internal/http/features/mfa"
	"github.com/nexauth/identity/internal/http/features/recovery"
	"github.com/nexauth/identity/internal/http/features/session"
	"github.com/nexauth/identity/internal/http/middleware"
	"github.com/nexauth/identity/internal/httputil"
	"github.com/nexauth/identity/pkg/auth"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger            *slog.Logger
	PasswordService   *auth.PasswordService
	ActivationService *auth.ActivationService
	LoginService      *auth.LoginService
	SessionService    *auth.SessionService
	EnrollmentService *auth.EnrollmentService
	RecoveryService   *auth.RecoveryService

	// LoginRateLimit and MFARateLimit are requests per minute per IP;
	// zero disables the limiter.
	LoginRateLimit int
	MFARateLimit   int
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(maxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	loginLimiter := middleware.NoRateLimit()
	if cfg.LoginRateLimit > 0 {
		loginLimiter = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.LoginRateLimit,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
	}
	mfaLimiter := middleware.NoRateLimit()
	if cfg.MFARateLimit > 0 {
		mfaLimiter = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.MFARateLimit,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
	}

	// Registration, activation, and the two-step login
	loginHandler := login.NewHandler(
		cfg.Logger,
		cfg.PasswordService,
		cfg.ActivationService,
		cfg.LoginService,
		cfg.SessionService,
	)
	r.Group(func(r chi.Router) {
		r.Use(loginLimiter)
		r.Post("/v1/auth/register", loginHandler.Register)
		r.Post("/v1/auth/activate", loginHandler.Activate)
		r.Post("/v1/auth/login", loginHandler.Login)
	})
	// Second-factor attempts get their own, tighter limiter.
	r.With(mfaLimiter).Post("/v1/auth/mfa/verify", loginHandler.VerifyMFA)

	// Session lifecycle
	sessionHandler := session.NewHandler(cfg.SessionService)
	r.Post("/v1/auth/refresh", sessionHandler.Refresh)
	r.Post("/v1/auth/logout", sessionHandler.Logout)
	r.With(middleware.Auth(cfg.SessionService)).Post("/v1/auth/logout/all", sessionHandler.LogoutAll)

	// Lost-device recovery
	recoveryHandler := recovery.NewHandler(cfg.Logger, cfg.RecoveryService)
	r.Group(func(r chi.Router) {
		r.Use(mfaLimiter)
		r.Post("/v1/auth/recovery/initiate", recoveryHandler.Initiate)
		r.Post("/v1/auth/recovery/verify", recoveryHandler.Verify)
		r.Post("/v1/auth/recovery/reset", recoveryHandler.Reset)
	})

	// Authenticated MFA self-service
	mfaHandler := mfa.NewHandler(cfg.Logger, cfg.EnrollmentService)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(mfaLimiter)
		r.Get("/v1/me/mfa/status", mfaHandler.Status)
		r.Post("/v1/me/mfa/enroll", mfaHandler.Enroll)
		r.Post("/v1/me/mfa/confirm", mfaHandler.Confirm)
		r.Post("/v1/me/mfa/disable", mfaHandler.Disable)
	})

	return r
}
