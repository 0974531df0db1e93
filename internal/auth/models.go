package auth

import (
	"crypto/rand"
	"encoding/base32"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// OperatorToken is the bcrypt hash of the bearer token that unlocks the
// operator routes
type OperatorToken struct {
	hash []byte
}

// NewOperatorToken wraps a stored hash. An empty hash disables operator routes.
func NewOperatorToken(hash string) OperatorToken {
	return OperatorToken{hash: []byte(hash)}
}

// Configured reports whether a hash is present
func (t OperatorToken) Configured() bool {
	return len(t.hash) > 0
}

// Matches checks if a plaintext token matches the hash
func (t OperatorToken) Matches(plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(t.hash, []byte(plaintext))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// HashToken returns the bcrypt hash to store for plaintext
func HashToken(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("token must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateToken creates a random 26 character token
func GenerateToken() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes), nil
}
