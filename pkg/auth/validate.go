package auth

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/nexauth/identity/pkg/domain"
)

const (
	minPasswordLength = 10
	maxPasswordLength = 128
	maxEmailLength    = 254
)

// ValidateEmail checks email syntax and length.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > maxEmailLength {
		return domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks the password against the account policy:
// length bounds plus at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return domain.ErrWeakPassword
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return domain.ErrWeakPassword
	}
	return nil
}
