package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyKey = errors.New("key is empty")

// HashKey hashes a shared key so the plaintext need not be kept in memory
func HashKey(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
}

// KeyMatches compares a presented key with a hash from HashKey
func KeyMatches(hash []byte, key string) bool {
	if len(hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil
}
