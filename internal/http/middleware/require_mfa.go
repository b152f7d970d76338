package middleware

import (
	"net/http"

	"github.com/nexauth/identity/internal/httputil"
)

// RequireMFA enforces MFA verification for sensitive endpoints. Must be
// applied after the Auth middleware: it checks the MFAVerified claim and
// returns 403 when the session never cleared a second factor.
func RequireMFA() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !claims.MFAVerified {
				httputil.Error(w, http.StatusForbidden, "MFA verification required for this operation")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireVerified requires a verified email address. Must be used after
// the Auth middleware.
func RequireVerified() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if !claims.EmailVerified {
				httputil.Error(w, http.StatusForbidden, "email verification required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
