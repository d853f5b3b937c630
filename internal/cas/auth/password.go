// Package auth implements CAS-side authentication: bcrypt password
// verification for normal database users, and HMAC-signed replication
// keys for the replication-broker client type (spec §4.6 "The
// replication-broker path validates a shared key from broker shared
// memory and disables password authentication for the session").
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/rimdb/rim/pkg/caserr"
)

// DefaultBcryptCost mirrors the cost used for the control-plane's own
// admin-password hashing.
const DefaultBcryptCost = 10

// HashPassword bcrypt-hashes a plaintext password for storage in a
// user's catalog row.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", caserr.New(caserr.CodeInternal, "hash password: %v", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt
// hash, returning NotAuthorized on mismatch (spec §4.6 step 5 "On
// rejection, send NotAuthorized and close").
func VerifyPassword(password, hash string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return caserr.New(caserr.CodeNotAuthorized, "invalid username or password")
	}
	return nil
}
