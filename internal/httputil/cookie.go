package httputil

import (
	"net/http"
	"time"
)

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool // true behind HTTPS
	SameSite http.SameSite
}

// DefaultCookieConfig returns default cookie configuration.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Path:     "/",
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetAuthCookies sets HttpOnly cookies for access and refresh tokens.
func SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// ClearAuthCookies clears auth cookies.
func ClearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{"access_token", "refresh_token"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     cfg.Path,
			Domain:   cfg.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: cfg.SameSite,
		})
	}
}

// GetRefreshTokenFromCookie extracts the refresh token from its cookie.
func GetRefreshTokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

// GetAccessTokenFromCookie extracts the access token from its cookie.
func GetAccessTokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie("access_token")
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

// IsMobileClient checks if the request is from a mobile client.
// Mobile clients set the header X-Client-Type: mobile and carry tokens in
// the body instead of cookies.
func IsMobileClient(r *http.Request) bool {
	return r.Header.Get("X-Client-Type") == "mobile"
}
