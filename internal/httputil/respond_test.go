package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexauth/identity/pkg/domain"
)

func TestDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.ErrWeakPassword, http.StatusBadRequest},
		{"not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"conflict", domain.ErrMFAAlreadyEnabled, http.StatusConflict},
		{"unauthorized", domain.ErrInvalidMFACode, http.StatusUnauthorized},
		{"policy violation", domain.ErrMFARequiredByPolicy, http.StatusForbidden},
		{"unknown", errors.New("database exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			DomainError(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("Status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestDomainError_MasksInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	DomainError(w, errors.New("pq: connection refused"))

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != "internal server error" {
		t.Errorf("Error = %q, internal detail leaked", resp.Error)
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]string{"id": "abc"})

	if w.Code != http.StatusCreated {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusCreated)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["id"] != "abc" {
		t.Errorf("body = %v", body)
	}
}
