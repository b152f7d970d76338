package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/nexauth/identity/pkg/domain"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainError writes a JSON error response with the status derived from
// the error's classification. Internal errors get a generic message so
// persistence details never leak to clients.
func DomainError(w http.ResponseWriter, err error) {
	status := StatusForKind(domain.KindOf(err))
	if status == http.StatusInternalServerError {
		Error(w, status, "internal server error")
		return
	}
	Error(w, status, err.Error())
}

// StatusForKind maps an error classification to an HTTP status code.
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindPolicyViolation:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
