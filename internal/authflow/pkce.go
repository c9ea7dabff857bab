package authflow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// randomToken generates a random base64url-encoded string of n source bytes.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewVerifier generates a PKCE code verifier (43 base64url chars).
func NewVerifier() (string, error) {
	return randomToken(32)
}

// Challenge derives the S256 code challenge from a verifier:
// base64url(sha256(verifier)), no padding.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
