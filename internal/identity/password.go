package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// The modeled system compared plaintext credentials. This implementation
// stores bcrypt hashes instead, behind the same Authenticate contract.

// HashPassword hashes a plaintext credential using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext credential with the stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
