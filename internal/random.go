package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

const minTokenBytes = 16

// ErrTokenTooShort is returned when fewer than 16 random bytes are requested.
var ErrTokenTooShort = errors.New("random token must be at least 16 bytes")

// RandomToken returns size bytes from crypto/rand, base64url encoded without padding.
func RandomToken(size int) (string, error) {
	return RandomTokenFrom(rand.Reader, size)
}

// RandomTokenFrom is RandomToken with an explicit entropy source.
func RandomTokenFrom(r io.Reader, size int) (string, error) {
	if size < minTokenBytes {
		return "", ErrTokenTooShort
	}
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	// base64url, no padding, safe in forms, headers and cookies
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
