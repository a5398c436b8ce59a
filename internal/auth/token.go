// Package auth verifies the static bearer token protecting the API routes.
package auth

import (
	"crypto/hmac"
	"errors"
	"strings"
)

var (
	ErrMissingHeader   = errors.New("authorization header required")
	ErrMalformedHeader = errors.New("invalid authorization format")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNoServerToken   = errors.New("server token not configured")
)

// Verify checks an Authorization header value against the configured API
// token. The comparison is constant-time.
func Verify(expected, header string) error {
	if expected == "" {
		return ErrNoServerToken
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingHeader
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ErrMalformedHeader
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if !hmac.Equal([]byte(token), []byte(expected)) {
		return ErrInvalidToken
	}
	return nil
}
