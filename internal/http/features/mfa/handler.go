package mfa

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/nexauth/identity/internal/http/middleware"
	"github.com/nexauth/identity/internal/httputil"
	"github.com/nexauth/identity/pkg/auth"
	"github.com/nexauth/identity/pkg/domain"
)

// Handler handles MFA self-service endpoints under /v1/me/mfa.
type Handler struct {
	logger     *slog.Logger
	enrollment *auth.EnrollmentService
}

// NewHandler creates a new MFA handler.
func NewHandler(logger *slog.Logger, enrollment *auth.EnrollmentService) *Handler {
	return &Handler{
		logger:     logger,
		enrollment: enrollment,
	}
}

// StatusResponse describes the caller's MFA posture.
type StatusResponse struct {
	State                  string     `json:"state"`
	Enabled                bool       `json:"enabled"`
	EnrolledAt             *time.Time `json:"enrolled_at,omitempty"`
	RecoveryCodesRemaining int        `json:"recovery_codes_remaining"`
	MFARequired            bool       `json:"mfa_required"`
	ClientRequiresMFA      bool       `json:"client_requires_mfa"`
}

// Status handles GET /v1/me/mfa/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := h.enrollment.Status(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load MFA status", "error", err, "user_id", userID)
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, StatusResponse{
		State:                  string(status.State),
		Enabled:                status.Enabled,
		EnrolledAt:             status.EnrolledAt,
		RecoveryCodesRemaining: status.RecoveryCodesRemaining,
		MFARequired:            status.MFARequired,
		ClientRequiresMFA:      status.ClientRequiresMFA,
	})
}

// EnrollResponse returns the provisioning material, shown once.
type EnrollResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Enroll handles POST /v1/me/mfa/enroll.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	setup, err := h.enrollment.Start(r.Context(), userID)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("failed to start enrollment", "error", err, "user_id", userID)
		}
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, EnrollResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
	})
}

// ConfirmRequest carries the code proving possession of the new secret.
type ConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmResponse returns the recovery codes, shown exactly once.
type ConfirmResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

// Confirm handles POST /v1/me/mfa/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	recoveryCodes, err := h.enrollment.Confirm(r.Context(), userID, req.Code)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("failed to confirm enrollment", "error", err, "user_id", userID)
		}
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, ConfirmResponse{RecoveryCodes: recoveryCodes})
}

// DisableRequest requires the password as a re-confirmation.
type DisableRequest struct {
	Password string `json:"password"`
}

// Disable handles POST /v1/me/mfa/disable.
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := h.enrollment.Disable(r.Context(), userID, req.Password); err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("failed to disable MFA", "error", err, "user_id", userID)
		}
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "MFA disabled"})
}
