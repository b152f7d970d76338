package recovery

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nexauth/identity/internal/httputil"
	"github.com/nexauth/identity/pkg/auth"
	"github.com/nexauth/identity/pkg/domain"
)

// Handler handles the lost-device recovery flow under /v1/auth/recovery.
type Handler struct {
	logger   *slog.Logger
	recovery *auth.RecoveryService
}

// NewHandler creates a new recovery handler.
func NewHandler(logger *slog.Logger, recovery *auth.RecoveryService) *Handler {
	return &Handler{
		logger:   logger,
		recovery: recovery,
	}
}

// InitiateRequest starts recovery for an email address.
type InitiateRequest struct {
	Email string `json:"email"`
}

// Initiate handles POST /v1/auth/recovery/initiate. The response is the
// same whether or not the account exists.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.recovery.Initiate(r.Context(), req.Email); err != nil {
		h.logger.Error("recovery initiation failed", "error", err)
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "if the account exists, recovery instructions have been sent",
	})
}

// VerifyRequest carries the emailed token plus any supplementary
// identity answers.
type VerifyRequest struct {
	Token   string   `json:"token"`
	Answers []string `json:"answers,omitempty"`
}

// VerifyResponse returns the short-lived reset token.
type VerifyResponse struct {
	VerifiedToken string `json:"verified_token"`
	ExpiresIn     int    `json:"expires_in"`
}

// Verify handles POST /v1/auth/recovery/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.recovery.VerifyIdentity(r.Context(), req.Token, req.Answers)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("recovery verification failed", "error", err)
		}
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, VerifyResponse{
		VerifiedToken: result.VerifiedToken,
		ExpiresIn:     result.ExpiresIn,
	})
}

// ResetRequest carries the reset token issued by the verify step.
type ResetRequest struct {
	VerifiedToken string `json:"verified_token"`
}

// Reset handles POST /v1/auth/recovery/reset. On success the user's
// enrollment is cleared and MFA must be set up again.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VerifiedToken == "" {
		httputil.Error(w, http.StatusBadRequest, "verified_token is required")
		return
	}

	if err := h.recovery.ResetEnrollment(r.Context(), req.VerifiedToken); err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("enrollment reset failed", "error", err)
		}
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "two-factor enrollment has been reset",
	})
}
