package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked due to too many failed login attempts")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrSessionRevoked       = errors.New("session revoked")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrClientNotFound       = errors.New("client not found")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// Verification token errors. The three failure modes are deliberately
// distinct: a burned token must not be reported as expired.
var (
	ErrVerificationTokenNotFound = errors.New("verification token not found")
	ErrVerificationTokenExpired  = errors.New("verification token expired")
	ErrVerificationTokenConsumed = errors.New("verification token already used")
	ErrVerificationTokenInvalid  = errors.New("invalid verification token")
)

// MFA errors
var (
	ErrMFARequired           = errors.New("multi-factor authentication required")
	ErrMFANotEnabled         = errors.New("MFA is not enabled for this account")
	ErrMFAAlreadyEnabled     = errors.New("MFA is already enabled")
	ErrMFANotPending         = errors.New("MFA enrollment has not been started")
	ErrInvalidMFACode        = errors.New("invalid MFA code")
	ErrInvalidRecoveryCode   = errors.New("invalid or already used recovery code")
	ErrMFASessionExpired     = errors.New("MFA session expired")
	ErrMFARequiredByPolicy   = errors.New("MFA cannot be disabled: required by client policy")
	ErrIdentityCheckFailed   = errors.New("identity verification failed")
)

// ErrorKind is the closed classification of domain failures, used by the
// transport layer to pick a response status.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindPolicyViolation
)

// KindOf classifies a domain error. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrMFANotPending),
		errors.Is(err, ErrMFANotEnabled),
		errors.Is(err, ErrVerificationTokenInvalid):
		return KindValidation
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrTenantNotFound),
		errors.Is(err, ErrClientNotFound),
		errors.Is(err, ErrVerificationTokenNotFound):
		return KindNotFound
	case errors.Is(err, ErrUserAlreadyExists),
		errors.Is(err, ErrEmailAlreadyVerified),
		errors.Is(err, ErrMFAAlreadyEnabled),
		errors.Is(err, ErrVerificationTokenConsumed):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrEmailNotVerified),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrSessionRevoked),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrMFARequired),
		errors.Is(err, ErrInvalidMFACode),
		errors.Is(err, ErrInvalidRecoveryCode),
		errors.Is(err, ErrMFASessionExpired),
		errors.Is(err, ErrVerificationTokenExpired),
		errors.Is(err, ErrIdentityCheckFailed):
		return KindUnauthorized
	case errors.Is(err, ErrMFARequiredByPolicy):
		return KindPolicyViolation
	default:
		return KindInternal
	}
}
