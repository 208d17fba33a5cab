// Package password wraps credential hashing for portal accounts. Account
// passwords use bcrypt; refresh tokens are digested with SHA-256 so the raw
// token never reaches the database.
package password

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost applied to account passwords.
const DefaultCost = 12

// MinLength is the shortest password accepted at registration.
const MinLength = 8

// Hash derives the bcrypt hash stored against an account.
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored hash.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashToken returns the hex SHA-256 digest of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidatePassword reports whether a new password meets the minimum length.
func ValidatePassword(plain string) bool {
	return len(plain) >= MinLength
}
