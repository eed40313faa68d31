// Package cryptox hashes and verifies folder passwords.
//
// Passwords are stored as "argon2id$<salt>$<key>" with both parts in unpadded
// standard base64. Verification is an exact match of the candidate password
// against the one used to build the hash.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	hashScheme = "argon2id"
	saltSize   = 16
)

// DeriveKey stretches password with salt using argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// HashPassword returns an encoded argon2id hash of password with a fresh salt.
func HashPassword(password string) (string, error) {
	salt := common.GenerateRandByteArray(saltSize)
	if salt == nil {
		return "", common.ErrorInternal
	}
	key := DeriveKey([]byte(password), salt)

	enc := base64.RawStdEncoding
	return hashScheme + "$" + enc.EncodeToString(salt) + "$" + enc.EncodeToString(key), nil
}

// VerifyPassword reports whether candidate is the password encoded in hash.
// Malformed hashes never verify.
func VerifyPassword(hash string, candidate string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 3 || parts[0] != hashScheme {
		return false
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := enc.DecodeString(parts[2])
	if err != nil {
		return false
	}

	got := DeriveKey([]byte(candidate), salt)
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(want, got) == 1
}
