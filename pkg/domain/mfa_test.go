package domain

import (
	"testing"
	"time"
)

func TestMFASecret_State(t *testing.T) {
	now := time.Now()

	var nilSecret *MFASecret
	if got := nilSecret.State(); got != EnrollmentNotEnrolled {
		t.Errorf("nil secret State() = %s, want %s", got, EnrollmentNotEnrolled)
	}

	pending := &MFASecret{CreatedAt: now}
	if got := pending.State(); got != EnrollmentPendingConfirmation {
		t.Errorf("unconfirmed State() = %s, want %s", got, EnrollmentPendingConfirmation)
	}

	confirmed := &MFASecret{CreatedAt: now, ConfirmedAt: &now}
	if got := confirmed.State(); got != EnrollmentEnrolled {
		t.Errorf("confirmed State() = %s, want %s", got, EnrollmentEnrolled)
	}
}

func TestPendingMFASession_IsValid(t *testing.T) {
	now := time.Now()
	consumed := now.Add(-time.Minute)

	tests := []struct {
		name    string
		session PendingMFASession
		want    bool
	}{
		{"live", PendingMFASession{ExpiresAt: now.Add(time.Minute)}, true},
		{"expired", PendingMFASession{ExpiresAt: now.Add(-time.Second)}, false},
		{"consumed", PendingMFASession{ExpiresAt: now.Add(time.Minute), ConsumedAt: &consumed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerificationToken_IsValid(t *testing.T) {
	now := time.Now()
	burned := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token VerificationToken
		want  bool
	}{
		{"live", VerificationToken{ExpiresAt: now.Add(time.Minute)}, true},
		{"expired", VerificationToken{ExpiresAt: now.Add(-time.Second)}, false},
		{"consumed", VerificationToken{ExpiresAt: now.Add(time.Minute), ConsumedAt: &burned}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
