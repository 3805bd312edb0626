package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialCodec_PasswordRoundTrip(t *testing.T) {
	c := NewCredentialCodec(testArgon2, bcrypt.MinCost)

	hash, err := c.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), hash)
	assert.NotContains(t, hash, "correct horse")

	assert.True(t, c.VerifyPassword(hash, "correct horse"))
	assert.False(t, c.VerifyPassword(hash, "correct horse "))
	assert.False(t, c.VerifyPassword(hash, ""))
}

func TestCredentialCodec_SaltsDiffer(t *testing.T) {
	c := NewCredentialCodec(testArgon2, bcrypt.MinCost)

	a, err := c.HashPassword("same password")
	require.NoError(t, err)
	b, err := c.HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, c.VerifyPassword(a, "same password"))
	assert.True(t, c.VerifyPassword(b, "same password"))
}

func TestCredentialCodec_VerifiesHashesMadeWithOtherParams(t *testing.T) {
	old := NewCredentialCodec(Argon2Params{Memory: 2048, Iterations: 2, Parallelism: 1}, bcrypt.MinCost)
	hash, err := old.HashPassword("pw123456")
	require.NoError(t, err)

	current := NewCredentialCodec(testArgon2, bcrypt.MinCost)
	assert.True(t, current.VerifyPassword(hash, "pw123456"))
}

func TestCredentialCodec_MalformedHashNeverMatches(t *testing.T) {
	c := NewCredentialCodec(testArgon2, bcrypt.MinCost)

	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
		"$2a$04$abcdefghijklmnopqrstuu",
	} {
		assert.False(t, c.VerifyPassword(hash, "anything"), "hash %q", hash)
	}
}

func TestCredentialCodec_RefreshSecretRoundTrip(t *testing.T) {
	c := NewCredentialCodec(testArgon2, bcrypt.MinCost)

	hash, err := c.HashRefreshSecret("s3cr3t-value")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cr3t-value", hash)

	assert.True(t, c.VerifyRefreshSecret("s3cr3t-value", hash))
	assert.False(t, c.VerifyRefreshSecret("other", hash))
	assert.False(t, c.VerifyRefreshSecret("s3cr3t-value", "not-a-bcrypt-hash"))
}
