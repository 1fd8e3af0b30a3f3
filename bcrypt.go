package authware

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// ComparePlaintext is the constant-time comparison used in plaintext mode.
// Plaintext mode exists for legacy data sets and tests, never as a default.
func ComparePlaintext(password, stored string) error {
	if subtle.ConstantTimeCompare([]byte(password), []byte(stored)) != 1 {
		return ErrMismatchedHashAndPassword
	}
	return nil
}
