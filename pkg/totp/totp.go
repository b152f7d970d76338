// Package totp implements the time-based one-time password engine
// (RFC 6238). All functions are pure over secret and timestamp so callers
// own clock and rate-limiting concerns.
package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Digits in a generated code.
	Digits = 6
	// Period is the time step in seconds.
	Period = 30
	// Skew is the number of adjacent time steps accepted on verification,
	// tolerating clock drift of one step in either direction.
	Skew = 1

	secretBytes = 20 // 160 bits
)

// GenerateSecret returns a new cryptographically random shared secret,
// base32 encoded without padding.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// ComputeCode computes the 6-digit code for the given secret at the given
// time using HMAC-SHA1 with a 30-second step.
func ComputeCode(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    Period,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to compute TOTP code: %w", err)
	}
	return code, nil
}

// Verify checks a submitted code against the secret at the given time,
// accepting the current and immediately adjacent time steps. A mismatch
// is a false return, never an error.
func Verify(secret, code string, at time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// VerifyStep checks a submitted code like Verify and additionally
// reports the step-aligned time of the matching step, so callers can
// refuse a code from a step that already produced an accepted code
// (RFC 6238 section 5.2: a used OTP must not be accepted again).
func VerifyStep(secret, code string, at time.Time) (time.Time, bool) {
	matched := time.Time{}
	found := 0
	for _, offset := range []int64{0, -1, 1} {
		step := at.Unix()/Period + offset
		stepTime := time.Unix(step*Period, 0).UTC()
		expected, err := ComputeCode(secret, stepTime)
		if err != nil {
			return time.Time{}, false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			matched = stepTime
			found++
		}
	}
	return matched, found > 0
}

// ProvisioningURI builds an otpauth:// URI for authenticator apps.
func ProvisioningURI(secret, issuer, accountName string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", fmt.Sprintf("%d", Digits))
	v.Set("period", fmt.Sprintf("%d", Period))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + accountName,
		RawQuery: v.Encode(),
	}
	return u.String()
}
