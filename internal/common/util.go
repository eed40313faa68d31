package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandToken returns size random bytes encoded with the unpadded URL-safe
// base64 alphabet. The result only contains [A-Za-z0-9_-] and can be placed
// into a Telegram start parameter as is.
func MakeRandToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateRandByteArray returns a slice of n random bytes, or nil if the
// system random source fails.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil
	}
	return b
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
