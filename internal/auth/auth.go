// Package auth guards the admin surface with a single bcrypt-hashed API key.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateAdminKey creates a new admin key with the "morel_" prefix followed
// by 32 URL-safe random characters. It returns the plaintext key and its
// bcrypt hash; only the hash belongs in configuration.
func GenerateAdminKey() (plaintext, hash string, err error) {
	b := make([]byte, 24) // 24 bytes -> 32 base64url chars
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	plaintext = "morel_" + base64.RawURLEncoding.EncodeToString(b)
	hash, err = HashKey(plaintext)
	if err != nil {
		return "", "", err
	}
	return plaintext, hash, nil
}

// HashKey returns the bcrypt hash of the given plaintext key.
func HashKey(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing key: %w", err)
	}
	return string(h), nil
}

// VerifyKey reports whether plaintext matches the stored bcrypt hash.
func VerifyKey(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
