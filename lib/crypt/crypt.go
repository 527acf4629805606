package crypt

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a one-way hash from a plaintext password. The result
// is opaque to callers; only VerifyPassword can interpret it.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches a hash produced by
// HashPassword.
func VerifyPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
