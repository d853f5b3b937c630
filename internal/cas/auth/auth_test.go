package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword("correct horse battery staple", hash))
	assert.Error(t, VerifyPassword("wrong password", hash))
}

func TestReplicationValidatorAcceptsMatchingKey(t *testing.T) {
	v := NewReplicationValidator([]byte("super-secret-broker-key"))
	key, err := v.Issue("broker1", "mydb", time.Minute)
	require.NoError(t, err)

	claims, err := v.Validate(key, "mydb")
	require.NoError(t, err)
	assert.Equal(t, "broker1", claims.BrokerName)
}

func TestReplicationValidatorRejectsWrongDB(t *testing.T) {
	v := NewReplicationValidator([]byte("super-secret-broker-key"))
	key, err := v.Issue("broker1", "mydb", time.Minute)
	require.NoError(t, err)

	_, err = v.Validate(key, "otherdb")
	assert.Error(t, err)
}

func TestReplicationValidatorRejectsExpiredKey(t *testing.T) {
	v := NewReplicationValidator([]byte("super-secret-broker-key"))
	key, err := v.Issue("broker1", "mydb", -time.Minute)
	require.NoError(t, err)

	_, err = v.Validate(key, "mydb")
	assert.Error(t, err)
}

func TestReplicationValidatorRejectsWrongSecret(t *testing.T) {
	v1 := NewReplicationValidator([]byte("secret-one-secret-one"))
	v2 := NewReplicationValidator([]byte("secret-two-secret-two"))
	key, err := v1.Issue("broker1", "mydb", time.Minute)
	require.NoError(t, err)

	_, err = v2.Validate(key, "mydb")
	assert.Error(t, err)
}
