package service

import (
	"encoding/base64"
	"testing"
	"time"

	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_AccessTokenRoundTrip(t *testing.T) {
	clock := newTestClock()
	issuer := NewTokenIssuer(testJWTSecret, 15*time.Minute, "socialhub").WithClock(clock.Now)

	token, err := issuer.IssueAccessToken(42, "ann")
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.ID)
	assert.Equal(t, "ann", claims.Username)
	assert.NotEmpty(t, claims.RegisteredClaims.ID)
	assert.Equal(t, clock.Now().Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenIssuer_ExpiredToken(t *testing.T) {
	clock := newTestClock()
	issuer := NewTokenIssuer(testJWTSecret, 15*time.Minute, "socialhub").WithClock(clock.Now)

	token, err := issuer.IssueAccessToken(1, "ann")
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)
	_, err = issuer.VerifyAccessToken(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestTokenIssuer_RejectsForgedTokens(t *testing.T) {
	clock := newTestClock()
	issuer := NewTokenIssuer(testJWTSecret, 15*time.Minute, "socialhub").WithClock(clock.Now)
	other := NewTokenIssuer("another-secret", 15*time.Minute, "socialhub").WithClock(clock.Now)

	wrongKey, err := other.IssueAccessToken(1, "ann")
	require.NoError(t, err)

	claims := AccessClaims{
		ID:       1,
		Username: "ann",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{ID: 1, Username: "ann"}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key": wrongKey,
		"alg none":  none,
		"no expiry": noExpiry,
		"other alg": hs512,
		"garbage":   "not.a.jwt",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.VerifyAccessToken(token)
			assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	}
}

func TestTokenIssuer_RefreshSecretEntropy(t *testing.T) {
	issuer := NewTokenIssuer(testJWTSecret, 0, "socialhub")

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		secret, err := issuer.IssueRefreshSecret()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(secret)
		require.NoError(t, err)
		assert.Len(t, raw, 32)

		assert.False(t, seen[secret], "duplicate secret")
		seen[secret] = true
	}
}
