package mfa

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

// The /v1/me/mfa endpoints check authentication before anything else;
// a request without a user in context gets 401 without touching the
// enrollment service.

func TestMFAEndpoints_RequireAuthentication(t *testing.T) {
	handler := &Handler{}

	tests := []struct {
		name   string
		method string
		path   string
		invoke func(w http.ResponseWriter, r *http.Request)
	}{
		{"status", http.MethodGet, "/v1/me/mfa/status", handler.Status},
		{"enroll", http.MethodPost, "/v1/me/mfa/enroll", handler.Enroll},
		{"confirm", http.MethodPost, "/v1/me/mfa/confirm", handler.Confirm},
		{"disable", http.MethodPost, "/v1/me/mfa/disable", handler.Disable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(`{}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			tt.invoke(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}
