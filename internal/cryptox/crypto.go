// Package cryptox hashes and verifies credential secrets with argon2id.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// DeriveKey stretches secret with salt.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// HashSecret returns a fresh salt and the derived hash of secret.
func HashSecret(secret string) (salt, hash []byte) {
	salt = newSalt()
	return salt, DeriveKey([]byte(secret), salt)
}

// VerifySecret reports whether secret matches hash under salt.
// The comparison is constant-time.
func VerifySecret(secret string, salt, hash []byte) bool {
	got := DeriveKey([]byte(secret), salt)
	defer clear(got)
	return subtle.ConstantTimeCompare(got, hash) == 1
}

func newSalt() []byte {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
