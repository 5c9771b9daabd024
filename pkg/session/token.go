package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// TokenLength is the hex length of a session token: 32 random bytes,
// 256 bits of entropy.
const TokenLength = 64

var tokenPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// NewToken mints an opaque session token from the CSPRNG.
func NewToken() (string, error) {
	buf := make([]byte, TokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidTokenFormat reports whether a candidate token has the exact shape
// of a minted token. Anything else is rejected before touching the
// datastore.
func ValidTokenFormat(token string) bool {
	return tokenPattern.MatchString(token)
}
