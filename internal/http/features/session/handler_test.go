package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRefreshRequest_Validation_Mobile(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "refresh_token is required",
		},
		{
			name:           "empty refresh_token",
			body:           `{"refresh_token": ""}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "refresh_token is required",
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	handler := &Handler{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Client-Type", "mobile")
			rec := httptest.NewRecorder()

			handler.Refresh(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestRefreshRequest_WebClient_NoCookie(t *testing.T) {
	handler := &Handler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var response map[string]string
	json.NewDecoder(rec.Body).Decode(&response)
	if response["error"] != "refresh token not found" {
		t.Errorf("Error = %q, want %q", response["error"], "refresh token not found")
	}
}

func TestLogoutAll_RequiresAuthentication(t *testing.T) {
	handler := &Handler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout/all", nil)
	rec := httptest.NewRecorder()

	handler.LogoutAll(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
