package auth

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{"min_length": MinPasswordLength})
	}
	if len(password) > 72 {
		return apperrors.NewValidationError("password too long", map[string]any{"max_bytes": 72})
	}
	return nil
}
