package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	password := "correct horse battery 1"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("Hash missing argon2id prefix: %s", hash)
	}
	if strings.Contains(hash, password) {
		t.Error("Hash leaks the plaintext")
	}

	if !VerifyPassword(password, hash) {
		t.Error("VerifyPassword() rejected the correct password")
	}
	if VerifyPassword("wrong password 9", hash) {
		t.Error("VerifyPassword() accepted a wrong password")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password 1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("same password 1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if h1 == h2 {
		t.Error("Two hashes of the same password are identical; salt is not random")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "plaintext"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"truncated", "$argon2id$v=19$m=65536"},
		{"bad base64", "$argon2id$v=19$m=65536,t=1,p=4$!!!$???"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyPassword("any password 1", tt.hash) {
				t.Errorf("VerifyPassword() accepted malformed hash %q", tt.hash)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "abcdefghi1", false},
		{"valid long", strings.Repeat("a1", 30), false},
		{"too short", "abc1", true},
		{"no digit", "abcdefghijk", true},
		{"no letter", "1234567890", true},
		{"too long", strings.Repeat("a1", 100), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "user@example.com", false},
		{"valid subdomain", "user@mail.example.co.uk", false},
		{"valid plus tag", "user+tag@example.com", false},
		{"empty", "", true},
		{"no at sign", "userexample.com", true},
		{"no domain", "user@", true},
		{"spaces", "user name@example.com", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("NormalizeEmail() = %q, want %q", got, "user@example.com")
	}
}
