package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"storefront/apperr"
)

// HashPassword returns a salted bcrypt hash of password at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", apperr.New(apperr.InvalidInput, "Password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.Wrap(apperr.InvalidInput, "Password is too long", err)
		}
		return "", apperr.Wrap(apperr.InvalidInput, "Unable to hash password", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches hashed. A mismatch is not
// an error; a stored hash that cannot be parsed is CorruptCredential.
func VerifyPassword(password, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperr.Wrap(apperr.CorruptCredential, "Stored credential is unreadable", err)
	}
}
