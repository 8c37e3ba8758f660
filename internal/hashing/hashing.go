// Package hashing derives salted one-way digests for credential secrets.
// Digests are deterministic for a given (plaintext, salt) pair and encoded
// as base64 text so they round-trip through the database unchanged.
package hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// saltBytes is the entropy of a generated salt before encoding.
	saltBytes = 16

	// iterations is the PBKDF2 work factor. Changing it changes every
	// derived digest, so existing credentials would stop matching.
	iterations = 10_000

	// keyLength is the derived key size in bytes.
	keyLength = 32
)

// GenerateSalt produces a cryptographically random salt, base64-encoded.
// It fails only if the operating system's entropy source is unavailable,
// which is fatal for any operation that needs a digest.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// DeriveDigest computes the PBKDF2-SHA256 digest of plaintext under salt.
// The same inputs always yield the same output; a different salt yields a
// different digest. The result is never reversible to the plaintext.
func DeriveDigest(plaintext, salt string) string {
	key := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, keyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}
