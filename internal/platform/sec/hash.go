// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/toeic/internal/platform/apperr"
)

// PasswordCost is the bcrypt work factor for new hashes. Existing hashes keep
// the cost they were created with.
var PasswordCost = bcrypt.DefaultCost

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// HashPassword returns the bcrypt hash of password.
//
// Passwords longer than 72 bytes are rejected with a validation error
// instead of being truncated silently.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("Maximum %d bytes", maxPasswordBytes),
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("sec: password_hash_failed: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash reports whether password matches hash. A blank hash,
// as stored for federated identities, never matches.
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
