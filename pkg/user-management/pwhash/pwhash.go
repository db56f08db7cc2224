package pwhash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const DEFAULT_COST = 12

var ErrMismatch = errors.New("password does not match")

func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DEFAULT_COST)
}

func HashPasswordWithCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePasswordWithHash returns ErrMismatch if password does not belong to hash.
func ComparePasswordWithHash(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
