package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rimdb/rim/pkg/caserr"
)

// ReplicationClaims is carried by the shared key a replication broker
// hands a CAS process instead of a user/password pair (spec §4.6
// "validates a shared key from broker shared memory and disables
// password authentication for the session").
type ReplicationClaims struct {
	jwt.RegisteredClaims
	BrokerName string `json:"broker_name"`
	DBName     string `json:"db_name"`
}

// ReplicationValidator verifies broker-issued shared keys against the
// broker's HMAC secret, published to CAS via shared memory at startup.
type ReplicationValidator struct {
	secret []byte
}

// NewReplicationValidator builds a validator for the given shared
// secret. The secret is read once from broker shared memory by the
// connection layer and never logged.
func NewReplicationValidator(secret []byte) *ReplicationValidator {
	return &ReplicationValidator{secret: secret}
}

// Validate parses and verifies a replication shared key, checking it
// names dbName and has not expired. It returns a CasError with the
// ReplAuth code on any failure.
func (v *ReplicationValidator) Validate(sharedKey, dbName string) (*ReplicationClaims, error) {
	token, err := jwt.ParseWithClaims(sharedKey, &ReplicationClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, caserr.New(caserr.CodeReplAuth, "replication shared key rejected: %v", err)
	}
	claims, ok := token.Claims.(*ReplicationClaims)
	if !ok || !token.Valid {
		return nil, caserr.New(caserr.CodeReplAuth, "replication shared key rejected: malformed claims")
	}
	if claims.DBName != dbName {
		return nil, caserr.New(caserr.CodeReplAuth, "replication shared key targets %q, not %q", claims.DBName, dbName)
	}
	return claims, nil
}

// Issue mints a shared key for brokerName/dbName, valid for ttl. Used by
// the broker side (or test harnesses standing in for it) to hand a CAS
// process a key instead of a password.
func (v *ReplicationValidator) Issue(brokerName, dbName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &ReplicationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		BrokerName: brokerName,
		DBName:     dbName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", caserr.New(caserr.CodeInternal, "sign replication shared key: %v", err)
	}
	return signed, nil
}
