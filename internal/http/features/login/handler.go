package login

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nexauth/identity/internal/httputil"
	"github.com/nexauth/identity/pkg/auth"
	"github.com/nexauth/identity/pkg/domain"
)

// Handler handles registration, activation, and the two-step login.
type Handler struct {
	logger       *slog.Logger
	passwords    *auth.PasswordService
	activation   *auth.ActivationService
	login        *auth.LoginService
	sessions     *auth.SessionService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new login handler.
func NewHandler(
	logger *slog.Logger,
	passwords *auth.PasswordService,
	activation *auth.ActivationService,
	login *auth.LoginService,
	sessions *auth.SessionService,
) *Handler {
	return &Handler{
		logger:       logger,
		passwords:    passwords,
		activation:   activation,
		login:        login,
		sessions:     sessions,
		cookieConfig: httputil.DefaultCookieConfig(),
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Register handles POST /v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.passwords.Register(r.Context(), req.Email, req.Password, req.Name, nil)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("registration failed", "error", err)
		}
		httputil.DomainError(w, err)
		return
	}

	if err := h.activation.SendActivation(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to send activation email", "error", err, "user_id", user.ID)
	}

	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		ID:      user.ID.String(),
		Email:   user.Email,
		Message: "registration successful, please verify your email",
	})
}

// ActivateRequest carries the email verification token.
type ActivateRequest struct {
	Token string `json:"token"`
}

// Activate handles POST /v1/auth/activate.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.activation.Activate(r.Context(), req.Token); err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("activation failed", "error", err)
		}
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

// LoginRequest represents a login request. TOTPCode is optional and
// collapses the MFA challenge into a single round trip. Tenant is an
// optional slug that selects the client policy to evaluate.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
	Tenant   string `json:"tenant,omitempty"`
}

// LoginResponse is either a token response or an MFA challenge.
type LoginResponse struct {
	MFARequired bool   `json:"mfa_required,omitempty"`
	MFASession  string `json:"mfa_session,omitempty"`

	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Login handles POST /v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	opts := auth.IssueSessionOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	result, err := h.login.Login(r.Context(), req.Email, req.Password, req.TOTPCode, req.Tenant, opts)
	if err != nil {
		// All credential failures collapse to one message so responses
		// do not reveal which field was wrong or whether the account
		// exists.
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("login failed", "error", err)
		}
		httputil.DomainError(w, err)
		return
	}

	if result.MFARequired {
		httputil.JSON(w, http.StatusOK, LoginResponse{
			MFARequired: true,
			MFASession:  result.Challenge,
		})
		return
	}

	h.writeTokens(w, r, result.Tokens)
}

// VerifyMFARequest completes the second login step. Code accepts both
// TOTP codes and recovery codes.
type VerifyMFARequest struct {
	MFASession string `json:"mfa_session"`
	Code       string `json:"code"`
}

// VerifyMFA handles POST /v1/auth/mfa/verify.
func (h *Handler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req VerifyMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MFASession == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "mfa_session and code are required")
		return
	}

	opts := auth.IssueSessionOpts{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	tokens, err := h.login.CompleteMFA(r.Context(), req.MFASession, req.Code, opts)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("mfa verification failed", "error", err)
		}
		httputil.DomainError(w, err)
		return
	}

	h.writeTokens(w, r, tokens)
}

// writeTokens writes tokens as cookies (web) or JSON body (mobile).
func (h *Handler) writeTokens(w http.ResponseWriter, r *http.Request, tokens *domain.TokenPair) {
	if httputil.IsMobileClient(r) {
		httputil.JSON(w, http.StatusOK, LoginResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			TokenType:    tokens.TokenType,
			ExpiresIn:    tokens.ExpiresIn,
		})
		return
	}

	httputil.SetAuthCookies(
		w,
		tokens.AccessToken,
		tokens.RefreshToken,
		h.sessions.AccessTokenTTL(),
		h.sessions.RefreshTokenTTL(),
		h.cookieConfig,
	)
	httputil.JSON(w, http.StatusOK, LoginResponse{
		TokenType: tokens.TokenType,
		ExpiresIn: tokens.ExpiresIn,
	})
}
