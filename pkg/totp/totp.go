// Package totp wraps time-based one-time password generation and
// validation for administrator two-factor authentication.
package totp

import (
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Issuer = "alpgraphics"
	// Period and Skew give a validation window of +/- 2 steps (~60s) to
	// tolerate client clock drift.
	Period = 30
	Skew   = 2
)

// Key holds a freshly generated shared secret and its otpauth
// provisioning URI. The URI is the QR-code payload shown during
// enrollment.
type Key struct {
	Secret string
	URI    string
}

// GenerateSecret creates a new TOTP secret bound to the given account name.
func GenerateSecret(accountName string) (*Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: accountName,
		Period:      Period,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "account", accountName, "error", err)
		return nil, err
	}

	return &Key{Secret: key.Secret(), URI: key.URL()}, nil
}

// Validate checks a six digit passcode against the secret within the
// drift window.
func Validate(secret, passcode string) bool {
	valid, err := totp.ValidateCustom(passcode, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to validate totp passcode", "error", err)
		return false
	}
	return valid
}

// GenerateCode produces the current passcode for a secret. Used by tests
// and enrollment verification flows.
func GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at.UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
